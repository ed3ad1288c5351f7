package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/database"
)

// ParseAccountID extracts and validates the account ID from the request path.
// Returns uuid.Nil and false after writing an error response on failure.
func ParseAccountID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, database.AccountIDPathValue, "invalid_account_id", "Invalid account ID format", logger)
}

// ParseMappingID extracts and validates the field mapping ID from the request path.
func ParseMappingID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "mapping_id", "invalid_mapping_id", "Invalid mapping ID format", logger)
}

func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(pathParam))
	if err != nil {
		writeBadRequest(w, logger, errorCode, errorMessage)
		return uuid.Nil, false
	}
	return id, true
}
