package services

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/logging"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// DisunifyInput is one unified object to convert to a provider payload.
type DisunifyInput struct {
	Object     *unified.Object
	Provider   models.ProviderID
	ObjectType models.ObjectType
	Mapping    *ResolvedMapping
}

// DisunifyEngine converts unified objects to provider payloads.
// The domain variants reject object types outside their domain and otherwise
// share one algorithm, parameterized by the provider's relation-key table.
type DisunifyEngine interface {
	Disunify(in DisunifyInput) (*unified.Bag, error)
	DisunifyCRMObject(in DisunifyInput) (*unified.Bag, error)
	DisunifyATSObject(in DisunifyInput) (*unified.Bag, error)
	DisunifyChatObject(in DisunifyInput) (*unified.Bag, error)
	DisunifyTicketingObject(in DisunifyInput) (*unified.Bag, error)
	DisunifyAccountingObject(in DisunifyInput) (*unified.Bag, error)
}

type disunifyEngine struct {
	logger *zap.Logger
}

// NewDisunifyEngine creates a DisunifyEngine.
func NewDisunifyEngine(logger *zap.Logger) DisunifyEngine {
	return &disunifyEngine{logger: logger.Named("disunify")}
}

var _ DisunifyEngine = (*disunifyEngine)(nil)

func (e *disunifyEngine) DisunifyCRMObject(in DisunifyInput) (*unified.Bag, error) {
	return e.disunifyDomain(models.DomainCRM, in)
}

func (e *disunifyEngine) DisunifyATSObject(in DisunifyInput) (*unified.Bag, error) {
	return e.disunifyDomain(models.DomainATS, in)
}

func (e *disunifyEngine) DisunifyChatObject(in DisunifyInput) (*unified.Bag, error) {
	return e.disunifyDomain(models.DomainChat, in)
}

func (e *disunifyEngine) DisunifyTicketingObject(in DisunifyInput) (*unified.Bag, error) {
	return e.disunifyDomain(models.DomainTicketing, in)
}

func (e *disunifyEngine) DisunifyAccountingObject(in DisunifyInput) (*unified.Bag, error) {
	return e.disunifyDomain(models.DomainAccounting, in)
}

func (e *disunifyEngine) disunifyDomain(d models.Domain, in DisunifyInput) (*unified.Bag, error) {
	if in.ObjectType.IsValid() && in.ObjectType.Domain() != d {
		return nil, apperrors.NewInvalidInputError(string(in.ObjectType), string(in.Provider),
			"object type is not part of the "+string(d)+" domain")
	}
	return e.Disunify(in)
}

// Disunify writes canonical fields under their provider keys, passes fields
// outside the schema through verbatim, re-keys relations, reverses
// custom-field renames and passes the rest of additional through. Earlier
// steps win when two steps target the same provider key; the losing keys are
// logged.
func (e *disunifyEngine) Disunify(in DisunifyInput) (*unified.Bag, error) {
	objectType, provider := string(in.ObjectType), string(in.Provider)

	if err := checkSupported(in.ObjectType, in.Provider); err != nil {
		return nil, err
	}
	if !in.Mapping.Matches(in.ObjectType, in.Provider) {
		return nil, apperrors.NewMappingResolutionError(objectType, provider,
			"mapping was not resolved for this object type and provider", nil)
	}
	if in.Object == nil {
		return nil, apperrors.NewInvalidInputError(objectType, provider, "unified object is required")
	}

	payload := unified.NewBag()
	var unrepresentable []string

	for _, field := range in.Mapping.fields {
		value, present := in.Object.Field(field)
		if !present {
			continue
		}
		key, ok := in.Mapping.ProviderKey(field)
		if !ok {
			unrepresentable = append(unrepresentable, field)
			continue
		}
		payload.PutExact(key, value)
	}

	var skipped []string
	in.Object.Fields().Range(func(key string, value any) bool {
		if !in.Mapping.HasField(key) && !payload.PutExact(key, value) {
			skipped = append(skipped, key)
		}
		return true
	})

	consumed := e.writeRelations(in, payload)

	additional := in.Object.Additional()
	for _, r := range in.Mapping.renames {
		if value, ok := additional.Get(r.Target); ok {
			consumed[r.Target] = true
			if !payload.PutExact(r.Source, value) {
				skipped = append(skipped, r.Target)
			}
		}
	}

	additional.Range(func(key string, value any) bool {
		if !consumed[key] && !payload.PutExact(key, value) {
			skipped = append(skipped, key)
		}
		return true
	})

	if len(skipped) > 0 {
		e.logger.Debug("Skipped keys already written by an earlier step",
			zap.String("object_type", objectType),
			zap.String("provider", provider),
			zap.Strings("keys", logging.TruncateKeys(skipped)))
	}
	if dropped := in.Object.Dropped(); len(dropped) > 0 {
		e.logger.Debug("Input carried additional keys colliding with canonical fields",
			zap.String("object_type", objectType),
			zap.String("provider", provider),
			zap.Strings("keys", logging.TruncateKeys(dropped)))
	}
	if len(unrepresentable) > 0 {
		e.logger.Debug("Dropped canonical fields with no provider equivalent",
			zap.String("object_type", objectType),
			zap.String("provider", provider),
			zap.Strings("fields", logging.TruncateKeys(unrepresentable)))
	}
	return payload, nil
}

// writeRelations re-keys relations through the provider's relation-key table.
// Relations come from associations, then additional["associations"], then
// additional keys named like a canonical relation. Relations without a flat
// provider key are kept under the payload's associations key. Returns the
// additional keys consumed.
func (e *disunifyEngine) writeRelations(in DisunifyInput, payload *unified.Bag) map[string]bool {
	domain := in.ObjectType.Domain()
	table := RelationKeys(in.Provider)
	additional := in.Object.Additional()
	consumed := map[string]bool{}

	// A non-object additional["associations"] is provider data and passes through.
	nested, _ := additional.Get(unified.KeyAssociations)
	nestedMap, isMap := nested.(map[string]any)
	if isMap {
		consumed[unified.KeyAssociations] = true
	}

	relations := unified.NewBag()
	in.Object.Associations().Range(func(rel string, value any) bool {
		relations.Set(rel, value)
		return true
	})
	for _, rel := range sortedKeys(nestedMap) {
		relations.PutExact(rel, nestedMap[rel])
	}
	for _, rel := range RelationsForDomain(domain) {
		if relations.Has(rel) {
			continue
		}
		if value, ok := additional.Get(rel); ok {
			consumed[rel] = true
			relations.Set(rel, value)
		}
	}

	unmapped := unified.NewBag()
	emit := func(rel string, value any) {
		if value == nil {
			return
		}
		if key, ok := table[rel]; ok {
			payload.PutExact(key, value)
			return
		}
		unmapped.Set(rel, value)
	}
	for _, rel := range RelationsForDomain(domain) {
		if value, ok := relations.Get(rel); ok {
			emit(rel, value)
		}
	}
	relations.Range(func(rel string, value any) bool {
		if !isDomainRelation(domain, rel) {
			emit(rel, value)
		}
		return true
	})

	if unmapped.Len() > 0 {
		payload.PutExact(unified.KeyAssociations, unmapped)
	}
	return consumed
}
