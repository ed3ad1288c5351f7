package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/services"
)

// SetFieldMappingRequest is the body of PUT .../field-mappings.
type SetFieldMappingRequest struct {
	ObjectType      string  `json:"objectType" validate:"required"`
	TpID            string  `json:"tpId" validate:"required"`
	SourceFieldName *string `json:"sourceFieldName"` // null unmaps a standard field
	TargetFieldName string  `json:"targetFieldName" validate:"required"`
	IsStandardField *bool   `json:"isStandardField" validate:"required"`
}

// FieldMappingHandler manages per-account field mapping overrides.
type FieldMappingHandler struct {
	accounts services.AccountMappingService
	validate *requestValidator
	logger   *zap.Logger
}

// NewFieldMappingHandler creates a new field mapping handler.
func NewFieldMappingHandler(accounts services.AccountMappingService, logger *zap.Logger) *FieldMappingHandler {
	return &FieldMappingHandler{
		accounts: accounts,
		validate: newRequestValidator(),
		logger:   logger.Named("field-mapping-handler"),
	}
}

// RegisterRoutes registers the field mapping routes on the given mux.
func (h *FieldMappingHandler) RegisterRoutes(mux *http.ServeMux, accountMiddleware AccountMiddleware) {
	base := "/api/accounts/{account_id}/field-mappings"
	mux.HandleFunc("GET "+base, accountMiddleware(h.List))
	mux.HandleFunc("PUT "+base, accountMiddleware(h.Set))
	mux.HandleFunc("DELETE "+base+"/{mapping_id}", accountMiddleware(h.Delete))
}

// List handles GET /api/accounts/{account_id}/field-mappings
func (h *FieldMappingHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ParseAccountID(w, r, h.logger)
	if !ok {
		return
	}

	cfg, err := h.accounts.GetConfig(r.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to list account field mappings",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		writeError(w, h.logger, err)
		return
	}
	if cfg.Mappings == nil {
		cfg.Mappings = []*models.AccountFieldMapping{}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: cfg}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Set handles PUT /api/accounts/{account_id}/field-mappings
func (h *FieldMappingHandler) Set(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ParseAccountID(w, r, h.logger)
	if !ok {
		return
	}

	var req SetFieldMappingRequest
	if err := jsonutil.DecodeStrict(r.Body, &req); err != nil {
		writeBadRequest(w, h.logger, "invalid_request", "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeBadRequest(w, h.logger, "validation_failed", err.Error())
		return
	}

	m := &models.AccountFieldMapping{
		AccountID:       accountID,
		ObjectType:      objectType(req.ObjectType),
		SourceProvider:  models.ProviderID(req.TpID),
		SourceFieldName: req.SourceFieldName,
		TargetFieldName: req.TargetFieldName,
		IsStandardField: *req.IsStandardField,
	}
	if err := h.accounts.SetMapping(r.Context(), m); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: m}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/accounts/{account_id}/field-mappings/{mapping_id}
func (h *FieldMappingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ParseAccountID(w, r, h.logger)
	if !ok {
		return
	}
	mappingID, ok := ParseMappingID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.accounts.DeleteMapping(r.Context(), accountID, mappingID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
