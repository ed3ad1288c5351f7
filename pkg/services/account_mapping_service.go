package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/cache"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
	"github.com/ekaya-inc/ekaya-unify/pkg/repositories"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// AccountMappingService manages per-account field mapping overrides and
// keeps the resolved-mapping cache consistent with them.
type AccountMappingService interface {
	GetConfig(ctx context.Context, accountID uuid.UUID) (*models.AccountFieldMappingConfig, error)
	// SetMapping validates and stores an override, then invalidates the account.
	SetMapping(ctx context.Context, m *models.AccountFieldMapping) error
	DeleteMapping(ctx context.Context, accountID, id uuid.UUID) error
}

type accountMappingService struct {
	repo     repositories.AccountFieldMappingRepository
	registry *registry.Registry
	notifier cache.Notifier
	logger   *zap.Logger
}

// NewAccountMappingService creates an AccountMappingService.
func NewAccountMappingService(
	repo repositories.AccountFieldMappingRepository,
	reg *registry.Registry,
	notifier cache.Notifier,
	logger *zap.Logger,
) AccountMappingService {
	return &accountMappingService{
		repo:     repo,
		registry: reg,
		notifier: notifier,
		logger:   logger.Named("account-mappings"),
	}
}

var _ AccountMappingService = (*accountMappingService)(nil)

func (s *accountMappingService) GetConfig(ctx context.Context, accountID uuid.UUID) (*models.AccountFieldMappingConfig, error) {
	return s.repo.GetConfig(ctx, accountID)
}

func (s *accountMappingService) SetMapping(ctx context.Context, m *models.AccountFieldMapping) error {
	if err := s.validate(m); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, m); err != nil {
		return err
	}

	s.logger.Info("Account field mapping stored",
		zap.String("account_id", m.AccountID.String()),
		zap.String("object_type", string(m.ObjectType)),
		zap.String("provider", string(m.SourceProvider)),
		zap.String("target", m.TargetFieldName),
		zap.Bool("standard", m.IsStandardField))
	s.invalidate(ctx, m.AccountID)
	return nil
}

func (s *accountMappingService) DeleteMapping(ctx context.Context, accountID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, accountID, id); err != nil {
		return err
	}
	s.logger.Info("Account field mapping deleted",
		zap.String("account_id", accountID.String()),
		zap.String("mapping_id", id.String()))
	s.invalidate(ctx, accountID)
	return nil
}

// invalidate drops the account's cached mappings. A failed publish leaves other
// processes stale until their next invalidation, so it is logged, not returned.
func (s *accountMappingService) invalidate(ctx context.Context, accountID uuid.UUID) {
	if err := s.notifier.AccountChanged(ctx, accountID); err != nil {
		s.logger.Warn("Failed to publish account invalidation",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
	}
}

func (s *accountMappingService) validate(m *models.AccountFieldMapping) error {
	objectType, provider := string(m.ObjectType), string(m.SourceProvider)

	if m.AccountID == uuid.Nil {
		return apperrors.NewInvalidInputError(objectType, provider, "account id is required")
	}
	if err := checkSupported(m.ObjectType, m.SourceProvider); err != nil {
		return err
	}
	if m.TargetFieldName == "" {
		return apperrors.NewInvalidInputError(objectType, provider, "target field name is required")
	}

	if !m.IsStandardField {
		if _, ok := m.SourceField(); !ok {
			return apperrors.NewInvalidInputError(objectType, provider, "custom mapping requires a source field")
		}
		if unified.IsReservedKey(m.TargetFieldName) {
			return apperrors.NewInvalidInputError(objectType, provider, "target "+m.TargetFieldName+" is reserved")
		}
		return nil
	}

	schema := s.registry.Schema("", m.ObjectType)
	if schema == nil || !schema.HasField(m.TargetFieldName) {
		return apperrors.NewInvalidInputError(objectType, provider, m.TargetFieldName+" is not a canonical field")
	}
	return nil
}
