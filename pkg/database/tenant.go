package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountScope wraps a pooled connection, optionally bound to one account.
// A bound connection has app.current_account_id set for RLS policy evaluation.
type AccountScope struct {
	Conn      *pgxpool.Conn
	AccountID uuid.UUID // uuid.Nil when unscoped
}

// Close resets the account context and releases the connection to the pool.
// This MUST be called so the account never leaks to the next borrower.
func (s *AccountScope) Close() {
	if s.Conn == nil {
		return
	}
	if s.AccountID != uuid.Nil {
		_, _ = s.Conn.Exec(context.Background(), "RESET app.current_account_id")
	}
	s.Conn.Release()
}

// WithAccount acquires a connection bound to accountID for RLS.
// The returned AccountScope MUST be closed with defer scope.Close().
func (db *DB) WithAccount(ctx context.Context, accountID uuid.UUID) (*AccountScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_account_id', $1, false)", accountID.String())
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &AccountScope{Conn: conn, AccountID: accountID}, nil
}

// WithoutAccount acquires a connection with no account bound. Used for the
// deployment-wide mapping tables and for maintenance tools.
// The returned AccountScope MUST be closed with defer scope.Close().
func (db *DB) WithoutAccount(ctx context.Context) (*AccountScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &AccountScope{Conn: conn}, nil
}
