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

// AccountFieldMappingRepository defines data access for per-account overrides.
// All operations run under the account scope in ctx and are isolated by RLS.
type AccountFieldMappingRepository interface {
	// GetConfig returns the account's overrides. An account without overrides
	// gets an empty config, not ErrNotFound.
	GetConfig(ctx context.Context, accountID uuid.UUID) (*models.AccountFieldMappingConfig, error)
	// Upsert creates the override or replaces the source field of an existing
	// one with the same (object type, provider, target, standard) key.
	Upsert(ctx context.Context, m *models.AccountFieldMapping) error
	Delete(ctx context.Context, accountID, id uuid.UUID) error
}

type accountFieldMappingRepository struct{}

// NewAccountFieldMappingRepository creates a new account field mapping repository.
func NewAccountFieldMappingRepository() AccountFieldMappingRepository {
	return &accountFieldMappingRepository{}
}

var _ AccountFieldMappingRepository = (*accountFieldMappingRepository)(nil)

func (r *accountFieldMappingRepository) GetConfig(ctx context.Context, accountID uuid.UUID) (*models.AccountFieldMappingConfig, error) {
	scope, ok := database.GetAccountScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoAccountScope
	}
	if accountID == uuid.Nil {
		return nil, apperrors.ErrAccountMissing
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, account_id, object_type, source_tp_id, source_field_name,
		       target_field_name, is_standard_field, created_at, updated_at
		FROM unify_account_field_mappings
		WHERE account_id = $1
		ORDER BY object_type, source_tp_id, is_standard_field DESC, target_field_name`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account field mappings: %w", err)
	}

	mappings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.AccountFieldMapping, error) {
		var m models.AccountFieldMapping
		err := row.Scan(&m.ID, &m.AccountID, &m.ObjectType, &m.SourceProvider, &m.SourceFieldName,
			&m.TargetFieldName, &m.IsStandardField, &m.CreatedAt, &m.UpdatedAt)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan account field mapping: %w", err)
	}

	return &models.AccountFieldMappingConfig{
		AccountID: accountID,
		Mappings:  mappings,
	}, nil
}

func (r *accountFieldMappingRepository) Upsert(ctx context.Context, m *models.AccountFieldMapping) error {
	scope, ok := database.GetAccountScope(ctx)
	if !ok {
		return apperrors.ErrNoAccountScope
	}
	if m.AccountID == uuid.Nil {
		return apperrors.ErrAccountMissing
	}

	err := scope.Conn.QueryRow(ctx, `
		INSERT INTO unify_account_field_mappings
			(account_id, object_type, source_tp_id, source_field_name, target_field_name, is_standard_field)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT uq_unify_account_field_mappings_target DO UPDATE
		SET source_field_name = EXCLUDED.source_field_name,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		m.AccountID,
		string(m.ObjectType),
		string(m.SourceProvider),
		m.SourceFieldName,
		m.TargetFieldName,
		m.IsStandardField,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert account field mapping: %w", err)
	}
	return nil
}

func (r *accountFieldMappingRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	scope, ok := database.GetAccountScope(ctx)
	if !ok {
		return apperrors.ErrNoAccountScope
	}

	tag, err := scope.Conn.Exec(ctx, `
		DELETE FROM unify_account_field_mappings
		WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("failed to delete account field mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
