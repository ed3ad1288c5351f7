package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrAccountMismatch      = errors.New("account ID mismatch between token and URL")
)

// Middleware checks bearer tokens against the account in the request path.
type Middleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewMiddleware creates auth middleware over validator.
func NewMiddleware(validator TokenValidator, logger *zap.Logger) *Middleware {
	return &Middleware{validator: validator, logger: logger.Named("auth")}
}

// RequireAccount validates the bearer token and requires its account claim
// to equal the path parameter pathParamName. Claims are stored in the
// request context.
func (m *Middleware) RequireAccount(pathParamName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, err := m.validateRequest(r)
			if err != nil {
				m.logger.Debug("Rejected request",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			if err := matchAccount(claims, r.PathValue(pathParamName)); err != nil {
				m.logger.Warn("Account mismatch",
					zap.String("url_account_id", r.PathValue(pathParamName)),
					zap.String("token_account_id", claims.AccountID),
					zap.String("subject", claims.Subject))
				writeError(w, http.StatusForbidden, "forbidden", "Token is not valid for this account")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

func (m *Middleware) validateRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return nil, ErrInvalidAuthFormat
	}
	return m.validator.ValidateToken(token)
}

// matchAccount compares ids as UUIDs so letter case does not matter.
func matchAccount(claims *Claims, urlAccountID string) error {
	tokenID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return ErrAccountMismatch
	}
	urlID, err := uuid.Parse(urlAccountID)
	if err != nil || urlID != tokenID {
		return ErrAccountMismatch
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}
