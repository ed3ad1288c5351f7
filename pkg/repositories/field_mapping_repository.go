package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/database"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

// FieldMappingRepository reads the default field mappings of a schema mapping.
type FieldMappingRepository interface {
	ListFieldMappings(ctx context.Context, schemaMappingID uuid.UUID) ([]*models.FieldMapping, error)
	CountFieldMappings(ctx context.Context, schemaMappingID uuid.UUID) (int, error)
}

type fieldMappingRepository struct{}

// NewFieldMappingRepository creates a new field mapping repository.
func NewFieldMappingRepository() FieldMappingRepository {
	return &fieldMappingRepository{}
}

var _ FieldMappingRepository = (*fieldMappingRepository)(nil)

func (r *fieldMappingRepository) ListFieldMappings(ctx context.Context, schemaMappingID uuid.UUID) ([]*models.FieldMapping, error) {
	scope, ok := database.GetAccountScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoAccountScope
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT fm.id, fm.schema_id, fm.source_tp_id, fm.source_field_name,
		       fm.target_field_name, fm.is_standard_field, fm.created_at
		FROM unify_field_mappings fm
		JOIN unify_object_schemas os ON os.id = fm.schema_id
		WHERE os.schema_mapping_id = $1
		ORDER BY os.object_type, fm.source_tp_id, fm.is_standard_field DESC, fm.target_field_name`,
		schemaMappingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list field mappings: %w", err)
	}

	mappings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.FieldMapping, error) {
		var fm models.FieldMapping
		err := row.Scan(&fm.ID, &fm.SchemaID, &fm.SourceProvider, &fm.SourceFieldName,
			&fm.TargetFieldName, &fm.IsStandardField, &fm.CreatedAt)
		return &fm, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan field mapping: %w", err)
	}
	return mappings, nil
}

func (r *fieldMappingRepository) CountFieldMappings(ctx context.Context, schemaMappingID uuid.UUID) (int, error) {
	scope, ok := database.GetAccountScope(ctx)
	if !ok {
		return 0, apperrors.ErrNoAccountScope
	}

	var n int
	err := scope.Conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM unify_field_mappings fm
		JOIN unify_object_schemas os ON os.id = fm.schema_id
		WHERE os.schema_mapping_id = $1`, schemaMappingID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count field mappings: %w", err)
	}
	return n, nil
}
