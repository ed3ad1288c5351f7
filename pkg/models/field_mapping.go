package models

import (
	"time"

	"github.com/google/uuid"
)

// FieldMapping is a seed-time default mapping between a canonical field of an
// ObjectSchema and a provider's literal key.
// Within one (SchemaID, SourceProvider) pair, TargetFieldName is unique.
type FieldMapping struct {
	ID              uuid.UUID  `json:"id"`
	SchemaID        uuid.UUID  `json:"schema_id"`
	SourceProvider  ProviderID `json:"source_tp_id"`
	SourceFieldName *string    `json:"source_field_name,omitempty"` // nil when the provider has no equivalent
	TargetFieldName string     `json:"target_field_name"`
	IsStandardField bool       `json:"is_standard_field"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SourceField returns the provider key and whether one is defined.
func (m *FieldMapping) SourceField() (string, bool) {
	if m.SourceFieldName == nil || *m.SourceFieldName == "" {
		return "", false
	}
	return *m.SourceFieldName, true
}

// AccountFieldMapping is a per-account override of a FieldMapping.
// A standard override with no source field removes the provider equivalent
// for that account.
type AccountFieldMapping struct {
	ID              uuid.UUID  `json:"id"`
	AccountID       uuid.UUID  `json:"account_id"`
	ObjectType      ObjectType `json:"object_type"`
	SourceProvider  ProviderID `json:"source_tp_id"`
	SourceFieldName *string    `json:"source_field_name,omitempty"`
	TargetFieldName string     `json:"target_field_name"`
	IsStandardField bool       `json:"is_standard_field"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SourceField returns the provider key and whether one is defined.
func (m *AccountFieldMapping) SourceField() (string, bool) {
	if m.SourceFieldName == nil || *m.SourceFieldName == "" {
		return "", false
	}
	return *m.SourceFieldName, true
}

// AccountFieldMappingConfig is the current snapshot of one account's overrides.
// It is read-only from the engine's perspective.
type AccountFieldMappingConfig struct {
	AccountID uuid.UUID              `json:"account_id"`
	Mappings  []*AccountFieldMapping `json:"mappings"`
}

// Lookup returns the standard override for (provider, objectType, target), if any.
// Safe to call on a nil config.
func (c *AccountFieldMappingConfig) Lookup(provider ProviderID, objectType ObjectType, target string) (*AccountFieldMapping, bool) {
	if c == nil {
		return nil, false
	}
	for _, m := range c.Mappings {
		if m.IsStandardField && m.SourceProvider == provider && m.ObjectType == objectType && m.TargetFieldName == target {
			return m, true
		}
	}
	return nil, false
}

// CustomMappings returns the account's non-standard mappings for (provider, objectType).
func (c *AccountFieldMappingConfig) CustomMappings(provider ProviderID, objectType ObjectType) []*AccountFieldMapping {
	if c == nil {
		return nil
	}
	var out []*AccountFieldMapping
	for _, m := range c.Mappings {
		if !m.IsStandardField && m.SourceProvider == provider && m.ObjectType == objectType {
			out = append(out, m)
		}
	}
	return out
}

// StringPtr returns a pointer to s. Convenience for building mapping rows.
func StringPtr(s string) *string {
	return &s
}
