package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/logging"
	"github.com/ekaya-inc/ekaya-unify/pkg/metrics"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// UnifyRequest carries one raw provider object and its mapping context.
type UnifyRequest struct {
	Obj                   any
	Provider              models.ProviderID
	ObjectType            models.ObjectType
	TenantSchemaMappingID string
	AccountConfig         *models.AccountFieldMappingConfig
	Descriptors           []models.FieldDescriptor
}

// DisunifyRequest carries one unified object and its mapping context.
type DisunifyRequest struct {
	Obj                   *unified.Object
	Provider              models.ProviderID
	ObjectType            models.ObjectType
	TenantSchemaMappingID string
	AccountConfig         *models.AccountFieldMappingConfig
}

// TransformService resolves the mapping for a request and runs the matching engine.
type TransformService interface {
	UnifyObject(ctx context.Context, req UnifyRequest) (*unified.Object, error)
	DisunifyObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error)
	DisunifyCRMObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error)
	DisunifyATSObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error)
	DisunifyChatObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error)
	DisunifyTicketingObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error)
	DisunifyAccountingObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error)
}

type transformService struct {
	resolver MappingResolver
	unify    UnifyEngine
	disunify DisunifyEngine
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewTransformService creates a TransformService. m may be nil.
func NewTransformService(resolver MappingResolver, unify UnifyEngine, disunify DisunifyEngine, m *metrics.Metrics, logger *zap.Logger) TransformService {
	return &transformService{
		resolver: resolver,
		unify:    unify,
		disunify: disunify,
		metrics:  m,
		logger:   logger.Named("transform"),
	}
}

var _ TransformService = (*transformService)(nil)

func (s *transformService) UnifyObject(ctx context.Context, req UnifyRequest) (*unified.Object, error) {
	start := time.Now()
	obj, err := s.unifyObject(ctx, req)
	s.record("unify", req.ObjectType, req.Provider, start, err)
	return obj, err
}

func (s *transformService) unifyObject(ctx context.Context, req UnifyRequest) (*unified.Object, error) {
	mapping, err := s.resolver.Resolve(ctx, ResolveRequest{
		ObjectType:      req.ObjectType,
		Provider:        req.Provider,
		SchemaMappingID: req.TenantSchemaMappingID,
		AccountConfig:   req.AccountConfig,
	})
	if err != nil {
		return nil, err
	}

	return s.unify.Unify(UnifyInput{
		Raw:         req.Obj,
		Provider:    req.Provider,
		ObjectType:  req.ObjectType,
		Mapping:     mapping,
		Descriptors: req.Descriptors,
	})
}

func (s *transformService) DisunifyObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error) {
	return s.disunifyWith(ctx, "disunify", req, s.disunify.Disunify)
}

func (s *transformService) DisunifyCRMObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error) {
	return s.disunifyWith(ctx, "disunify_crm", req, s.disunify.DisunifyCRMObject)
}

func (s *transformService) DisunifyATSObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error) {
	return s.disunifyWith(ctx, "disunify_ats", req, s.disunify.DisunifyATSObject)
}

func (s *transformService) DisunifyChatObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error) {
	return s.disunifyWith(ctx, "disunify_chat", req, s.disunify.DisunifyChatObject)
}

func (s *transformService) DisunifyTicketingObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error) {
	return s.disunifyWith(ctx, "disunify_ticketing", req, s.disunify.DisunifyTicketingObject)
}

func (s *transformService) DisunifyAccountingObject(ctx context.Context, req DisunifyRequest) (*unified.Bag, error) {
	return s.disunifyWith(ctx, "disunify_accounting", req, s.disunify.DisunifyAccountingObject)
}

func (s *transformService) disunifyWith(ctx context.Context, op string, req DisunifyRequest, run func(DisunifyInput) (*unified.Bag, error)) (*unified.Bag, error) {
	start := time.Now()
	payload, err := func() (*unified.Bag, error) {
		mapping, err := s.resolver.Resolve(ctx, ResolveRequest{
			ObjectType:      req.ObjectType,
			Provider:        req.Provider,
			SchemaMappingID: req.TenantSchemaMappingID,
			AccountConfig:   req.AccountConfig,
		})
		if err != nil {
			return nil, err
		}
		return run(DisunifyInput{
			Object:     req.Obj,
			Provider:   req.Provider,
			ObjectType: req.ObjectType,
			Mapping:    mapping,
		})
	}()
	s.record(op, req.ObjectType, req.Provider, start, err)
	return payload, err
}

func (s *transformService) record(op string, objectType models.ObjectType, provider models.ProviderID, start time.Time, err error) {
	elapsed := time.Since(start)
	label := string(provider)
	if _, known := registry.LookupProvider(provider); !known {
		label = "unknown"
	}
	s.metrics.Transform(op, label, err, elapsed.Seconds())

	if err == nil {
		s.logger.Debug("Transform completed",
			zap.String("operation", op),
			zap.String("object_type", string(objectType)),
			zap.String("provider", string(provider)),
			zap.Duration("elapsed", elapsed))
		return
	}

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("object_type", string(objectType)),
		zap.String("provider", string(provider)),
		zap.String("kind", string(apperrors.Kind(err))),
		zap.String("error", logging.SanitizeError(err)),
	}
	if apperrors.IsMappingResolution(err) {
		s.logger.Error("Transform failed", fields...)
		return
	}
	s.logger.Warn("Transform rejected", fields...)
}
