package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/services"
	"github.com/ekaya-inc/ekaya-unify/pkg/unified"
)

// TransformRequest is the body of POST .../unify and POST .../disunify.
type TransformRequest struct {
	Obj                   json.RawMessage          `json:"obj" validate:"required"`
	TpID                  string                   `json:"tpId" validate:"required"`
	ObjType               string                   `json:"objType" validate:"required"`
	TenantSchemaMappingID string                   `json:"tenantSchemaMappingId,omitempty" validate:"omitempty,uuid"`
	FieldDescriptors      []models.FieldDescriptor `json:"fieldDescriptors,omitempty" validate:"omitempty,dive"`
	// Domain selects the domain-specific disunify variant. Ignored by unify.
	Domain string `json:"domain,omitempty" validate:"omitempty,oneof=crm ats chat ticketing accounting"`
}

// TransformResponse carries the transformed object.
type TransformResponse struct {
	Obj any `json:"obj"`
	// Dropped lists keys refused by the standard-wins rule: provider keys on
	// unify, caller additional keys on disunify.
	Dropped []string `json:"dropped,omitempty"`
}

// MergeCustomFieldsRequest is the body of POST .../merge-custom-fields.
type MergeCustomFieldsRequest struct {
	Obj              json.RawMessage          `json:"obj" validate:"required"`
	FieldDescriptors []models.FieldDescriptor `json:"fieldDescriptors" validate:"required,dive"`
}

// AccountMiddleware binds the account named in the path to the request context.
type AccountMiddleware func(http.HandlerFunc) http.HandlerFunc

// TransformHandler exposes the unify and disunify operations.
type TransformHandler struct {
	transform services.TransformService
	accounts  services.AccountMappingService
	validate  *requestValidator
	logger    *zap.Logger
}

// NewTransformHandler creates a new transform handler.
func NewTransformHandler(transform services.TransformService, accounts services.AccountMappingService, logger *zap.Logger) *TransformHandler {
	return &TransformHandler{
		transform: transform,
		accounts:  accounts,
		validate:  newRequestValidator(),
		logger:    logger.Named("transform-handler"),
	}
}

// RegisterRoutes registers the transform routes on the given mux.
func (h *TransformHandler) RegisterRoutes(mux *http.ServeMux, accountMiddleware AccountMiddleware) {
	base := "/api/accounts/{account_id}"
	mux.HandleFunc("POST "+base+"/unify", accountMiddleware(h.Unify))
	mux.HandleFunc("POST "+base+"/disunify", accountMiddleware(h.Disunify))
	mux.HandleFunc("POST "+base+"/merge-custom-fields", accountMiddleware(h.MergeCustomFields))
}

// Unify handles POST /api/accounts/{account_id}/unify
func (h *TransformHandler) Unify(w http.ResponseWriter, r *http.Request) {
	req, cfg, ok := h.parse(w, r)
	if !ok {
		return
	}

	obj, err := h.transform.UnifyObject(r.Context(), services.UnifyRequest{
		Obj:                   req.Obj,
		Provider:              models.ProviderID(req.TpID),
		ObjectType:            objectType(req.ObjType),
		TenantSchemaMappingID: req.TenantSchemaMappingID,
		AccountConfig:         cfg,
		Descriptors:           req.FieldDescriptors,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: TransformResponse{Obj: obj, Dropped: obj.Dropped()}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Disunify handles POST /api/accounts/{account_id}/disunify
func (h *TransformHandler) Disunify(w http.ResponseWriter, r *http.Request) {
	req, cfg, ok := h.parse(w, r)
	if !ok {
		return
	}

	objType := objectType(req.ObjType)
	var obj unified.Object
	if err := json.Unmarshal(req.Obj, &obj); err != nil {
		writeError(w, h.logger, apperrors.NewInvalidInputError(string(objType), req.TpID, err.Error()))
		return
	}

	payload, err := h.disunifyVariant(models.Domain(req.Domain))(r.Context(), services.DisunifyRequest{
		Obj:                   &obj,
		Provider:              models.ProviderID(req.TpID),
		ObjectType:            objType,
		TenantSchemaMappingID: req.TenantSchemaMappingID,
		AccountConfig:         cfg,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: TransformResponse{Obj: payload, Dropped: obj.Dropped()}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// MergeCustomFields handles POST /api/accounts/{account_id}/merge-custom-fields
// It returns obj with human-readable aliases added next to opaque provider keys.
func (h *TransformHandler) MergeCustomFields(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseAccountID(w, r, h.logger); !ok {
		return
	}

	var req MergeCustomFieldsRequest
	if err := jsonutil.DecodeStrict(r.Body, &req); err != nil {
		writeBadRequest(w, h.logger, "invalid_request", "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeBadRequest(w, h.logger, "validation_failed", err.Error())
		return
	}

	raw, err := jsonutil.DecodeObject(req.Obj)
	if err != nil {
		writeError(w, h.logger, apperrors.NewInvalidInputError("", "", err.Error()))
		return
	}

	merged := services.MergeCustomFields(raw, req.FieldDescriptors)
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: TransformResponse{Obj: merged}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type disunifyFunc func(context.Context, services.DisunifyRequest) (*unified.Bag, error)

func (h *TransformHandler) disunifyVariant(domain models.Domain) disunifyFunc {
	switch domain {
	case models.DomainCRM:
		return h.transform.DisunifyCRMObject
	case models.DomainATS:
		return h.transform.DisunifyATSObject
	case models.DomainChat:
		return h.transform.DisunifyChatObject
	case models.DomainTicketing:
		return h.transform.DisunifyTicketingObject
	case models.DomainAccounting:
		return h.transform.DisunifyAccountingObject
	default:
		return h.transform.DisunifyObject
	}
}

// parse decodes and validates the body and loads the account's overrides.
func (h *TransformHandler) parse(w http.ResponseWriter, r *http.Request) (*TransformRequest, *models.AccountFieldMappingConfig, bool) {
	accountID, ok := ParseAccountID(w, r, h.logger)
	if !ok {
		return nil, nil, false
	}

	var req TransformRequest
	if err := jsonutil.DecodeStrict(r.Body, &req); err != nil {
		writeBadRequest(w, h.logger, "invalid_request", "Invalid request body")
		return nil, nil, false
	}
	if err := h.validate.Struct(&req); err != nil {
		writeBadRequest(w, h.logger, "validation_failed", err.Error())
		return nil, nil, false
	}

	cfg, err := h.accounts.GetConfig(r.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to load account field mappings",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		writeError(w, h.logger, err)
		return nil, nil, false
	}
	return &req, cfg, true
}

// objectType normalizes name, passing unknown names through so the resolver
// reports them with the caller's spelling.
func objectType(name string) models.ObjectType {
	if t, ok := models.ParseObjectType(name); ok {
		return t
	}
	return models.ObjectType(name)
}
