package database

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountIDPathValue is the route wildcard carrying the account id.
const AccountIDPathValue = "account_id"

// WithAccountContext creates middleware that binds a connection to the
// account named in the request path. The connection is released after the
// handler returns.
func WithAccountContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := r.PathValue(AccountIDPathValue)
			accountID, err := uuid.Parse(raw)
			if err != nil {
				logger.Debug("Invalid account ID in path", zap.String("account_id", raw))
				writeError(w, http.StatusBadRequest, "invalid_account_id", "Invalid account ID format")
				return
			}

			scope, err := db.WithAccount(r.Context(), accountID)
			if err != nil {
				logger.Error("Failed to acquire account connection",
					zap.String("account_id", accountID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			next(w, r.WithContext(SetAccountScope(r.Context(), scope)))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
