// Package registry holds the schema registry: canonical object schemas per
// SchemaMapping, their per-provider default FieldMappings and the provider
// support table.
package registry

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// Source loads schema mappings and their field mappings from the store.
type Source interface {
	ListSchemaMappings(ctx context.Context) ([]*models.SchemaMapping, error)
	ListFieldMappings(ctx context.Context, schemaMappingID uuid.UUID) ([]*models.FieldMapping, error)
}

type defaultKey struct {
	schemaID uuid.UUID
	provider models.ProviderID
	target   string
}

type customKey struct {
	schemaID uuid.UUID
	provider models.ProviderID
}

// Registry is an immutable, validated view of the field mapping store.
// Safe for concurrent use.
type Registry struct {
	root     *models.SchemaMapping
	mappings map[uuid.UUID]*models.SchemaMapping
	schemas  map[uuid.UUID]*models.ObjectSchema
	defaults map[defaultKey]*models.FieldMapping
	custom   map[customKey][]*models.FieldMapping
}

// New validates mappings and field mappings and builds a Registry.
func New(mappings []*models.SchemaMapping, fieldMappings []*models.FieldMapping) (*Registry, error) {
	r := &Registry{
		mappings: make(map[uuid.UUID]*models.SchemaMapping, len(mappings)),
		schemas:  make(map[uuid.UUID]*models.ObjectSchema),
		defaults: make(map[defaultKey]*models.FieldMapping, len(fieldMappings)),
		custom:   make(map[customKey][]*models.FieldMapping),
	}

	for _, m := range mappings {
		if m.IsRoot {
			if r.root != nil {
				return nil, fmt.Errorf("multiple root schema mappings: %s and %s", r.root.ID, m.ID)
			}
			r.root = m
		}
		r.mappings[m.ID] = m
		seen := make(map[models.ObjectType]bool, len(m.Schemas))
		for _, s := range m.Schemas {
			if seen[s.ObjectType] {
				return nil, fmt.Errorf("schema mapping %s: object type %q defined twice", m.Name, s.ObjectType)
			}
			seen[s.ObjectType] = true
			if err := validateSchema(s); err != nil {
				return nil, fmt.Errorf("schema mapping %s: %w", m.Name, err)
			}
			r.schemas[s.ID] = s
		}
	}
	if r.root == nil {
		return nil, apperrors.ErrNoRootMapping
	}

	for _, fm := range fieldMappings {
		schema, ok := r.schemas[fm.SchemaID]
		if !ok {
			return nil, fmt.Errorf("field mapping %s references unknown schema %s", fm.ID, fm.SchemaID)
		}
		if !SupportsObject(fm.SourceProvider, schema.ObjectType) {
			return nil, fmt.Errorf("field mapping %s: provider %q does not serve %q", fm.ID, fm.SourceProvider, schema.ObjectType)
		}
		if !fm.IsStandardField {
			if _, ok := fm.SourceField(); !ok {
				return nil, fmt.Errorf("field mapping %s: non-standard mapping for %q has no source field", fm.ID, fm.TargetFieldName)
			}
			if unified.IsReservedKey(fm.TargetFieldName) {
				return nil, fmt.Errorf("field mapping %s: target %q is reserved", fm.ID, fm.TargetFieldName)
			}
			ck := customKey{schemaID: fm.SchemaID, provider: fm.SourceProvider}
			for _, existing := range r.custom[ck] {
				if existing.TargetFieldName == fm.TargetFieldName {
					return nil, fmt.Errorf("duplicate custom mapping for %s/%s target %q", schema.ObjectType, fm.SourceProvider, fm.TargetFieldName)
				}
			}
			r.custom[ck] = append(r.custom[ck], fm)
			continue
		}
		if !schema.HasField(fm.TargetFieldName) {
			return nil, fmt.Errorf("field mapping %s: %q is not a canonical field of %q", fm.ID, fm.TargetFieldName, schema.ObjectType)
		}
		key := defaultKey{schemaID: fm.SchemaID, provider: fm.SourceProvider, target: fm.TargetFieldName}
		if _, dup := r.defaults[key]; dup {
			return nil, fmt.Errorf("duplicate mapping for %s/%s target %q", schema.ObjectType, fm.SourceProvider, fm.TargetFieldName)
		}
		r.defaults[key] = fm
	}

	return r, nil
}

func validateSchema(s *models.ObjectSchema) error {
	if !s.ObjectType.IsValid() {
		return fmt.Errorf("unknown object type %q", s.ObjectType)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f == "" {
			return fmt.Errorf("%s: empty canonical field name", s.ObjectType)
		}
		if unified.IsReservedKey(f) {
			return fmt.Errorf("%s: canonical field %q is reserved", s.ObjectType, f)
		}
		if seen[f] {
			return fmt.Errorf("%s: canonical field %q defined twice", s.ObjectType, f)
		}
		seen[f] = true
	}
	return nil
}

// FromSeed builds a Registry from the embedded seed.
func FromSeed() (*Registry, error) {
	seed, err := BuildSeed()
	if err != nil {
		return nil, err
	}
	return New([]*models.SchemaMapping{seed.Root}, seed.FieldMappings)
}

// Load builds a Registry from the store.
func Load(ctx context.Context, src Source) (*Registry, error) {
	mappings, err := src.ListSchemaMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema mappings: %w", err)
	}

	var fieldMappings []*models.FieldMapping
	for _, m := range mappings {
		fms, err := src.ListFieldMappings(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list field mappings for %s: %w", m.Name, err)
		}
		fieldMappings = append(fieldMappings, fms...)
	}

	return New(mappings, fieldMappings)
}

// Root returns the root SchemaMapping.
func (r *Registry) Root() *models.SchemaMapping {
	return r.root
}

// Schema returns the ObjectSchema for objectType under the given SchemaMapping.
// An empty or unknown schemaMappingID, or a mapping without the object type,
// falls back to the root mapping. Returns nil if root lacks the type too.
func (r *Registry) Schema(schemaMappingID string, objectType models.ObjectType) *models.ObjectSchema {
	if schemaMappingID != "" {
		if id, err := uuid.Parse(schemaMappingID); err == nil {
			if m, ok := r.mappings[id]; ok {
				if s := m.Schema(objectType); s != nil {
					return s
				}
			}
		}
	}
	return r.root.Schema(objectType)
}

// Default returns the standard FieldMapping for a canonical field.
func (r *Registry) Default(schemaID uuid.UUID, provider models.ProviderID, target string) (*models.FieldMapping, bool) {
	fm, ok := r.defaults[defaultKey{schemaID: schemaID, provider: provider, target: target}]
	return fm, ok
}

// CustomDefaults returns the non-standard FieldMappings for (schema, provider)
// in store order.
func (r *Registry) CustomDefaults(schemaID uuid.UUID, provider models.ProviderID) []*models.FieldMapping {
	return r.custom[customKey{schemaID: schemaID, provider: provider}]
}
