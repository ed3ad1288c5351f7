package repositories

import (
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
)

// MappingStore combines the schema and field mapping repositories so a
// registry can be loaded, and seeded, from them.
type MappingStore struct {
	SchemaMappingRepository
	FieldMappingRepository
}

// NewMappingStore creates a MappingStore over the PostgreSQL repositories.
func NewMappingStore() *MappingStore {
	return &MappingStore{
		SchemaMappingRepository: NewSchemaMappingRepository(),
		FieldMappingRepository:  NewFieldMappingRepository(),
	}
}

var _ registry.Store = (*MappingStore)(nil)
