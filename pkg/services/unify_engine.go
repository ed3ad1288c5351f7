package services

import (
	"encoding/json"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-unify/pkg/logging"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// UnifyInput is one raw provider object to convert.
type UnifyInput struct {
	// Raw is the flattened provider object: map[string]any, *unified.Bag,
	// json.RawMessage or []byte.
	Raw         any
	Provider    models.ProviderID
	ObjectType  models.ObjectType
	Mapping     *ResolvedMapping
	Descriptors []models.FieldDescriptor // provider custom-field metadata, optional
}

// UnifyEngine converts provider objects to unified objects.
type UnifyEngine interface {
	Unify(in UnifyInput) (*unified.Object, error)
}

type unifyEngine struct {
	logger *zap.Logger
}

// NewUnifyEngine creates a UnifyEngine.
func NewUnifyEngine(logger *zap.Logger) UnifyEngine {
	return &unifyEngine{logger: logger.Named("unify")}
}

var _ UnifyEngine = (*unifyEngine)(nil)

// Unify assigns canonical fields in schema order, normalizes relations into
// associations, applies custom-field renames and captures every remaining
// key into additional. Canonical fields always win collisions.
func (e *unifyEngine) Unify(in UnifyInput) (*unified.Object, error) {
	objectType, provider := string(in.ObjectType), string(in.Provider)

	raw, err := rawObject(in.Raw)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(objectType, provider, err.Error())
	}
	if !in.Mapping.Matches(in.ObjectType, in.Provider) {
		return nil, apperrors.NewMappingResolutionError(objectType, provider,
			"mapping was not resolved for this object type and provider", nil)
	}

	obj := unified.NewObject()
	consumed := make(map[string]bool, len(raw))

	for _, field := range in.Mapping.fields {
		key, ok := in.Mapping.ProviderKey(field)
		if !ok {
			continue
		}
		consumed[key] = true
		if value, present := raw[key]; present {
			if err := obj.SetField(field, value); err != nil {
				return nil, apperrors.NewMappingResolutionError(objectType, provider, "invalid canonical field", err)
			}
		}
	}

	e.captureRelations(in, raw, obj, consumed)

	for _, r := range in.Mapping.renames {
		if consumed[r.Source] {
			continue
		}
		if value, present := raw[r.Source]; present {
			consumed[r.Source] = true
			obj.AddAdditional(r.Target, value)
		}
	}

	names := descriptorNames(in.Descriptors)
	for _, key := range sortedKeys(raw) {
		if consumed[key] {
			continue
		}
		value := raw[key]
		if unified.IsReservedKey(key) {
			obj.KeepReserved(key, value)
			continue
		}
		name, described := names[key]
		switch {
		case described && !obj.Collides(name):
			obj.AddAdditional(name, value)
		case described && !obj.Collides(key):
			// Human name taken; keep the value under its provider key.
			obj.AddAdditional(key, value)
		case described:
			obj.AddAdditional(name, value)
		default:
			obj.AddAdditional(key, value)
		}
	}

	if dropped := obj.Dropped(); len(dropped) > 0 {
		e.logger.Debug("Dropped custom fields colliding with canonical fields",
			zap.String("object_type", objectType),
			zap.String("provider", provider),
			zap.Strings("keys", logging.TruncateKeys(dropped)))
	}
	return obj, nil
}

// captureRelations moves provider relation keys and the provider-native
// associations structure into the associations bag.
func (e *unifyEngine) captureRelations(in UnifyInput, raw map[string]any, obj *unified.Object, consumed map[string]bool) {
	domain := in.ObjectType.Domain()
	table := RelationKeys(in.Provider)

	for _, rel := range RelationsForDomain(domain) {
		key, ok := table[rel]
		if !ok || consumed[key] {
			continue
		}
		if value, present := raw[key]; present {
			consumed[key] = true
			obj.SetAssociation(rel, value)
		}
	}

	// Any other shape is kept verbatim in additional by the capture loop.
	nativeMap, ok := raw[unified.KeyAssociations].(map[string]any)
	if !ok {
		return
	}
	consumed[unified.KeyAssociations] = true

	aliases := nativeAssociationNames[in.Provider]
	for _, name := range sortedKeys(nativeMap) {
		rel, value := name, nativeMap[name]
		if canonical, ok := aliases[name]; ok {
			rel, value = canonical, nativeAssociationIDs(value)
		}
		if _, exists := obj.Association(rel); exists {
			continue
		}
		obj.SetAssociation(rel, value)
	}
}

// nativeAssociationIDs flattens a HubSpot-style {"results":[{"id":..}]} block
// into one id or a list of ids. Other shapes are kept verbatim.
func nativeAssociationIDs(v any) any {
	block, ok := v.(map[string]any)
	if !ok {
		return v
	}
	results, ok := block["results"].([]any)
	if !ok {
		return v
	}
	var ids []any
	for _, r := range results {
		entry, ok := r.(map[string]any)
		if !ok {
			return v
		}
		id, ok := jsonutil.FlexibleString(entry["id"])
		if !ok {
			return v
		}
		ids = append(ids, id)
	}
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return ids[0]
	default:
		return ids
	}
}

func descriptorNames(descriptors []models.FieldDescriptor) map[string]string {
	names := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		if d.Key == "" || d.Name == "" {
			continue
		}
		if _, ok := names[d.Key]; !ok {
			names[d.Key] = d.Name
		}
	}
	return names
}

// rawObject normalizes the accepted raw input shapes to a map.
func rawObject(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		if v == nil {
			return nil, jsonutil.ErrNotObject
		}
		return v, nil
	case *unified.Bag:
		if v == nil {
			return nil, jsonutil.ErrNotObject
		}
		return v.Map(), nil
	case json.RawMessage:
		return jsonutil.DecodeObject(v)
	case []byte:
		return jsonutil.DecodeObject(v)
	default:
		return nil, jsonutil.ErrNotObject
	}
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
