package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

// Store is a Source that can also replace the root mapping.
type Store interface {
	Source
	ReplaceRoot(ctx context.Context, root *models.SchemaMapping, fieldMappings []*models.FieldMapping) error
}

// LoadOrSeed loads the Registry from store. When the store has no root
// mapping and seed is true, the embedded seed is written first. The returned
// bool reports whether seeding happened.
func LoadOrSeed(ctx context.Context, store Store, seed bool) (*Registry, bool, error) {
	reg, err := Load(ctx, store)
	if err == nil {
		return reg, false, nil
	}
	if !seed || !errors.Is(err, apperrors.ErrNoRootMapping) {
		return nil, false, err
	}

	if err := WriteSeed(ctx, store); err != nil {
		return nil, false, err
	}
	reg, err = Load(ctx, store)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload seeded mappings: %w", err)
	}
	return reg, true, nil
}

// WriteSeed replaces the store's root mapping with the embedded seed.
// Seed ids are deterministic, so rewriting an unchanged seed is a no-op for
// readers.
func WriteSeed(ctx context.Context, store Store) error {
	seed, err := BuildSeed()
	if err != nil {
		return err
	}
	if err := store.ReplaceRoot(ctx, seed.Root, seed.FieldMappings); err != nil {
		return fmt.Errorf("failed to write seed mappings: %w", err)
	}
	return nil
}
