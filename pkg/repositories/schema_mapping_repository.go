package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/database"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

// SchemaMappingRepository defines data access for schema mappings and their
// object schemas.
type SchemaMappingRepository interface {
	// ListSchemaMappings returns every mapping with Schemas populated, root first.
	ListSchemaMappings(ctx context.Context) ([]*models.SchemaMapping, error)
	GetRoot(ctx context.Context) (*models.SchemaMapping, error)
	// ReplaceRoot deletes the current root mapping (cascading to its schemas
	// and field mappings) and writes root and fieldMappings in one transaction.
	ReplaceRoot(ctx context.Context, root *models.SchemaMapping, fieldMappings []*models.FieldMapping) error
}

type schemaMappingRepository struct{}

// NewSchemaMappingRepository creates a new schema mapping repository.
func NewSchemaMappingRepository() SchemaMappingRepository {
	return &schemaMappingRepository{}
}

var _ SchemaMappingRepository = (*schemaMappingRepository)(nil)

func (r *schemaMappingRepository) ListSchemaMappings(ctx context.Context) ([]*models.SchemaMapping, error) {
	scope, ok := database.GetAccountScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoAccountScope
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, name, is_root, created_at
		FROM unify_schema_mappings
		ORDER BY is_root DESC, name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema mappings: %w", err)
	}
	mappings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.SchemaMapping, error) {
		var m models.SchemaMapping
		err := row.Scan(&m.ID, &m.Name, &m.IsRoot, &m.CreatedAt)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan schema mapping: %w", err)
	}

	byID := make(map[string]*models.SchemaMapping, len(mappings))
	for _, m := range mappings {
		byID[m.ID.String()] = m
	}

	rows, err = scope.Conn.Query(ctx, `
		SELECT id, schema_mapping_id, object_type, fields, created_at
		FROM unify_object_schemas
		ORDER BY schema_mapping_id, object_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list object schemas: %w", err)
	}
	schemas, err := pgx.CollectRows(rows, scanObjectSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to scan object schema: %w", err)
	}
	for _, s := range schemas {
		if m, ok := byID[s.SchemaMappingID.String()]; ok {
			m.Schemas = append(m.Schemas, s)
		}
	}

	return mappings, nil
}

func (r *schemaMappingRepository) GetRoot(ctx context.Context) (*models.SchemaMapping, error) {
	scope, ok := database.GetAccountScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoAccountScope
	}

	var m models.SchemaMapping
	err := scope.Conn.QueryRow(ctx, `
		SELECT id, name, is_root, created_at
		FROM unify_schema_mappings
		WHERE is_root`).Scan(&m.ID, &m.Name, &m.IsRoot, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get root schema mapping: %w", err)
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, schema_mapping_id, object_type, fields, created_at
		FROM unify_object_schemas
		WHERE schema_mapping_id = $1
		ORDER BY object_type`, m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list root object schemas: %w", err)
	}
	m.Schemas, err = pgx.CollectRows(rows, scanObjectSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to scan object schema: %w", err)
	}
	return &m, nil
}

func scanObjectSchema(row pgx.CollectableRow) (*models.ObjectSchema, error) {
	var s models.ObjectSchema
	err := row.Scan(&s.ID, &s.SchemaMappingID, &s.ObjectType, &s.Fields, &s.CreatedAt)
	return &s, err
}

func (r *schemaMappingRepository) ReplaceRoot(ctx context.Context, root *models.SchemaMapping, fieldMappings []*models.FieldMapping) error {
	scope, ok := database.GetAccountScope(ctx)
	if !ok {
		return apperrors.ErrNoAccountScope
	}
	if root == nil || !root.IsRoot {
		return fmt.Errorf("replacement must be a root schema mapping")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM unify_schema_mappings WHERE is_root`); err != nil {
		return fmt.Errorf("failed to delete root schema mapping: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO unify_schema_mappings (id, name, is_root)
		VALUES ($1, $2, true)`, root.ID, root.Name); err != nil {
		return fmt.Errorf("failed to insert root schema mapping: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range root.Schemas {
		batch.Queue(`
			INSERT INTO unify_object_schemas (id, schema_mapping_id, object_type, fields)
			VALUES ($1, $2, $3, $4)`, s.ID, root.ID, s.ObjectType, s.Fields)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert object schemas: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"unify_field_mappings"},
		[]string{"id", "schema_id", "source_tp_id", "source_field_name", "target_field_name", "is_standard_field"},
		pgx.CopyFromSlice(len(fieldMappings), func(i int) ([]any, error) {
			fm := fieldMappings[i]
			return []any{fm.ID, fm.SchemaID, string(fm.SourceProvider), fm.SourceFieldName, fm.TargetFieldName, fm.IsStandardField}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to copy field mappings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit root schema mapping: %w", err)
	}
	return nil
}
