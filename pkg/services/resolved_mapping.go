package services

import (
	"slices"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

// FieldSource records where a canonical field's provider key came from.
type FieldSource string

const (
	FieldSourceTenant FieldSource = "tenant"
	FieldSourceRoot   FieldSource = "root"
	FieldSourceNone   FieldSource = "none"
)

// CustomFieldRename maps a provider custom field to a stable additional key.
type CustomFieldRename struct {
	Source string // provider key
	Target string // additional key
}

// ResolvedMapping is the effective mapping for one (objectType, provider, account).
// Immutable after construction; safe to share between goroutines.
type ResolvedMapping struct {
	objectType  models.ObjectType
	provider    models.ProviderID
	fields      []string
	toProvider  map[string]string
	toCanonical map[string]string
	sources     map[string]FieldSource
	renames     []CustomFieldRename
}

// resolvedMappingBuilder assembles a ResolvedMapping. Fields must be added in schema order.
type resolvedMappingBuilder struct {
	m *ResolvedMapping
}

func newResolvedMappingBuilder(objectType models.ObjectType, provider models.ProviderID) *resolvedMappingBuilder {
	return &resolvedMappingBuilder{m: &ResolvedMapping{
		objectType:  objectType,
		provider:    provider,
		toProvider:  make(map[string]string),
		toCanonical: make(map[string]string),
		sources:     make(map[string]FieldSource),
	}}
}

// field adds a canonical field. An empty providerKey means no equivalent.
// When two fields share a provider key the first one owns the inverse entry.
func (b *resolvedMappingBuilder) field(name, providerKey string, source FieldSource) {
	b.m.fields = append(b.m.fields, name)
	if providerKey == "" {
		b.m.sources[name] = FieldSourceNone
		return
	}
	b.m.sources[name] = source
	b.m.toProvider[name] = providerKey
	if _, taken := b.m.toCanonical[providerKey]; !taken {
		b.m.toCanonical[providerKey] = name
	}
}

func (b *resolvedMappingBuilder) rename(source, target string) {
	b.m.renames = append(b.m.renames, CustomFieldRename{Source: source, Target: target})
}

func (b *resolvedMappingBuilder) build() *ResolvedMapping {
	return b.m
}

// NewResolvedMapping builds a mapping directly from a canonical -> provider
// key list. Fields with an empty provider key have no equivalent.
func NewResolvedMapping(objectType models.ObjectType, provider models.ProviderID, fields [][2]string, renames ...CustomFieldRename) *ResolvedMapping {
	b := newResolvedMappingBuilder(objectType, provider)
	for _, f := range fields {
		b.field(f[0], f[1], FieldSourceRoot)
	}
	for _, r := range renames {
		b.rename(r.Source, r.Target)
	}
	return b.build()
}

func (m *ResolvedMapping) ObjectType() models.ObjectType { return m.objectType }

func (m *ResolvedMapping) Provider() models.ProviderID { return m.provider }

// Fields returns the canonical fields in schema order.
func (m *ResolvedMapping) Fields() []string {
	return slices.Clone(m.fields)
}

// HasField reports whether field is a canonical field of the mapped schema.
func (m *ResolvedMapping) HasField(field string) bool {
	_, ok := m.sources[field]
	return ok
}

// ProviderKey returns the provider key for a canonical field.
func (m *ResolvedMapping) ProviderKey(field string) (string, bool) {
	key, ok := m.toProvider[field]
	return key, ok
}

// CanonicalField returns the canonical field owning a provider key.
func (m *ResolvedMapping) CanonicalField(providerKey string) (string, bool) {
	field, ok := m.toCanonical[providerKey]
	return field, ok
}

// Source returns where the field's mapping came from.
func (m *ResolvedMapping) Source(field string) FieldSource {
	if s, ok := m.sources[field]; ok {
		return s
	}
	return FieldSourceNone
}

// CustomRenames returns the custom-field renames in resolution order.
func (m *ResolvedMapping) CustomRenames() []CustomFieldRename {
	return slices.Clone(m.renames)
}

// Matches reports whether the mapping was resolved for (objectType, provider).
func (m *ResolvedMapping) Matches(objectType models.ObjectType, provider models.ProviderID) bool {
	return m != nil && m.objectType == objectType && m.provider == provider
}
