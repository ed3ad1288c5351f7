//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/database"
	"github.com/ekaya-inc/ekaya-unify/pkg/testhelpers"
)

func currentAccount(t *testing.T, scope *database.AccountScope) string {
	t.Helper()
	var v *string
	err := scope.Conn.QueryRow(context.Background(),
		"SELECT current_setting('app.current_account_id', true)").Scan(&v)
	require.NoError(t, err)
	if v == nil {
		return ""
	}
	return *v
}

func TestWithAccount_SetsAndResetsSetting(t *testing.T) {
	ctx := context.Background()
	// One connection, so the unscoped borrower reuses the account's connection.
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            testhelpers.GetUnifyDB(t).ConnStr,
		MaxConnections: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	accountID := uuid.New()
	scope, err := db.WithAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, accountID, scope.AccountID)
	assert.Equal(t, accountID.String(), currentAccount(t, scope))
	scope.Close()

	next, err := db.WithoutAccount(ctx)
	require.NoError(t, err)
	defer next.Close()
	assert.Empty(t, currentAccount(t, next))
}

func TestWithoutAccount_NoSetting(t *testing.T) {
	db := testhelpers.GetUnifyDB(t).DB

	scope, err := db.WithoutAccount(context.Background())
	require.NoError(t, err)
	defer scope.Close()

	assert.Equal(t, uuid.Nil, scope.AccountID)
	assert.Empty(t, currentAccount(t, scope))
}

func TestScopeProvider(t *testing.T) {
	db := testhelpers.GetUnifyDB(t).DB
	provider := database.NewScopeProvider(db)
	accountID := uuid.New()

	ctx, cleanup, err := provider.WithAccountScope(context.Background(), accountID)
	require.NoError(t, err)
	defer cleanup()

	scope, ok := database.GetAccountScope(ctx)
	require.True(t, ok)
	assert.Equal(t, accountID.String(), currentAccount(t, scope))
}
