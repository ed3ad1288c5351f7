package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// ResolveRequest identifies the mapping to resolve.
type ResolveRequest struct {
	ObjectType      models.ObjectType
	Provider        models.ProviderID
	SchemaMappingID string                            // empty selects the root mapping
	AccountConfig   *models.AccountFieldMappingConfig // optional
}

// MappingResolver produces the effective mapping for an object type and provider.
type MappingResolver interface {
	// Resolve applies tenant overrides over root defaults, field by field.
	// A tenant override replaces the root default wholesale; an override with
	// no source field removes the provider equivalent.
	Resolve(ctx context.Context, req ResolveRequest) (*ResolvedMapping, error)
}

type mappingResolver struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewMappingResolver creates a resolver over a loaded registry.
func NewMappingResolver(reg *registry.Registry, logger *zap.Logger) MappingResolver {
	return &mappingResolver{
		registry: reg,
		logger:   logger.Named("mapping-resolver"),
	}
}

var _ MappingResolver = (*mappingResolver)(nil)

func (r *mappingResolver) Resolve(ctx context.Context, req ResolveRequest) (*ResolvedMapping, error) {
	if err := checkSupported(req.ObjectType, req.Provider); err != nil {
		return nil, err
	}

	schema := r.registry.Schema(req.SchemaMappingID, req.ObjectType)
	if schema == nil {
		return nil, apperrors.NewMappingResolutionError(string(req.ObjectType), string(req.Provider),
			"no object schema registered", nil)
	}

	b := newResolvedMappingBuilder(req.ObjectType, req.Provider)
	overrides := 0
	for _, field := range schema.Fields {
		if o, ok := req.AccountConfig.Lookup(req.Provider, req.ObjectType, field); ok {
			src, _ := o.SourceField()
			b.field(field, src, FieldSourceTenant)
			overrides++
			continue
		}
		if fm, ok := r.registry.Default(schema.ID, req.Provider, field); ok {
			src, _ := fm.SourceField()
			b.field(field, src, FieldSourceRoot)
			continue
		}
		b.field(field, "", FieldSourceNone)
	}

	r.resolveRenames(b, schema, req)

	m := b.build()
	r.logger.Debug("Resolved mapping",
		zap.String("object_type", string(req.ObjectType)),
		zap.String("provider", string(req.Provider)),
		zap.String("schema_id", schema.ID.String()),
		zap.Int("fields", len(schema.Fields)),
		zap.Int("tenant_overrides", overrides),
		zap.Int("custom_renames", len(m.renames)))
	return m, nil
}

// resolveRenames merges root and tenant non-standard mappings. Tenant rows
// replace root rows with the same target; a tenant row with no source removes it.
// Sources already claimed by a canonical field are skipped.
func (r *mappingResolver) resolveRenames(b *resolvedMappingBuilder, schema *models.ObjectSchema, req ResolveRequest) {
	var order []string
	byTarget := make(map[string]string)
	set := func(target, source string) {
		if _, ok := byTarget[target]; !ok {
			order = append(order, target)
		}
		byTarget[target] = source
	}

	for _, fm := range r.registry.CustomDefaults(schema.ID, req.Provider) {
		src, _ := fm.SourceField()
		set(fm.TargetFieldName, src)
	}
	for _, o := range req.AccountConfig.CustomMappings(req.Provider, req.ObjectType) {
		src, _ := o.SourceField()
		set(o.TargetFieldName, src)
	}

	for _, target := range order {
		src := byTarget[target]
		if src == "" || unified.IsReservedKey(target) {
			continue
		}
		if owner, claimed := b.m.toCanonical[src]; claimed {
			r.logger.Debug("Skipping custom rename of canonical provider key",
				zap.String("object_type", string(req.ObjectType)),
				zap.String("provider", string(req.Provider)),
				zap.String("source", src),
				zap.String("canonical_field", owner))
			continue
		}
		b.rename(src, target)
	}
}

// checkSupported validates the object type and that the provider serves it.
func checkSupported(objectType models.ObjectType, provider models.ProviderID) error {
	if !objectType.IsValid() {
		return apperrors.NewInvalidInputError(string(objectType), string(provider), "unknown object type")
	}
	if _, ok := registry.LookupProvider(provider); !ok {
		return apperrors.NewUnrecognizedProviderError(string(objectType), string(provider), "provider is not configured")
	}
	if !registry.SupportsObject(provider, objectType) {
		return apperrors.NewUnrecognizedProviderError(string(objectType), string(provider),
			"provider does not serve the "+string(objectType.Domain())+" domain")
	}
	return nil
}
