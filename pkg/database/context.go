package database

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// AccountScopeKey is the context key for the account-scoped connection.
	AccountScopeKey contextKey = "accountScope"
)

// GetAccountScope retrieves the scoped connection from context.
func GetAccountScope(ctx context.Context) (*AccountScope, bool) {
	scope, ok := ctx.Value(AccountScopeKey).(*AccountScope)
	return scope, ok
}

// SetAccountScope stores the scoped connection in context.
func SetAccountScope(ctx context.Context, scope *AccountScope) context.Context {
	return context.WithValue(ctx, AccountScopeKey, scope)
}

// ScopeProvider opens scoped contexts for callers outside the HTTP
// middleware, such as startup loading and the seed tool.
type ScopeProvider struct {
	db *DB
}

// NewScopeProvider creates a ScopeProvider for the given database.
func NewScopeProvider(db *DB) *ScopeProvider {
	return &ScopeProvider{db: db}
}

// WithAccountScope returns a context bound to accountID.
// The cleanup function must be called when the scope is no longer needed.
func (p *ScopeProvider) WithAccountScope(ctx context.Context, accountID uuid.UUID) (context.Context, func(), error) {
	scope, err := p.db.WithAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	return SetAccountScope(ctx, scope), scope.Close, nil
}

// WithoutAccountScope returns a context with an unbound connection.
// The cleanup function must be called when the scope is no longer needed.
func (p *ScopeProvider) WithoutAccountScope(ctx context.Context) (context.Context, func(), error) {
	scope, err := p.db.WithoutAccount(ctx)
	if err != nil {
		return nil, nil, err
	}
	return SetAccountScope(ctx, scope), scope.Close, nil
}
