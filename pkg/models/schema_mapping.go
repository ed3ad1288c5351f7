package models

import (
	"time"

	"github.com/google/uuid"
)

// RootSchemaMappingName is the name of the deployment-wide default SchemaMapping.
const RootSchemaMappingName = "root"

// ObjectSchema is one canonical object type and its ordered canonical fields.
// Schemas are created at seed time and never mutated at runtime.
type ObjectSchema struct {
	ID              uuid.UUID  `json:"id"`
	SchemaMappingID uuid.UUID  `json:"schema_mapping_id"`
	ObjectType      ObjectType `json:"object_type"`
	Fields          []string   `json:"fields"`
	CreatedAt       time.Time  `json:"created_at"`
}

// HasField returns true if name is one of the schema's canonical fields.
func (s *ObjectSchema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// SchemaMapping is a named collection of ObjectSchemas.
// Exactly one root SchemaMapping exists per deployment.
type SchemaMapping struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	IsRoot    bool            `json:"is_root"`
	Schemas   []*ObjectSchema `json:"schemas,omitempty"` // populated on demand
	CreatedAt time.Time       `json:"created_at"`
}

// Schema returns the ObjectSchema for an object type, or nil if absent.
func (m *SchemaMapping) Schema(objectType ObjectType) *ObjectSchema {
	for _, s := range m.Schemas {
		if s.ObjectType == objectType {
			return s
		}
	}
	return nil
}
