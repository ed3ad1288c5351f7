package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// recordingInvalidator records the invalidations it receives.
type recordingInvalidator struct {
	mu       sync.Mutex
	accounts []uuid.UUID
	all      int
}

func (r *recordingInvalidator) InvalidateAccount(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = append(r.accounts, id)
}

func (r *recordingInvalidator) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all++
}

func (r *recordingInvalidator) snapshot() ([]uuid.UUID, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.accounts...), r.all
}

func TestRedisInvalidator_Handle(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name         string
		payload      string
		wantAccounts []uuid.UUID
		wantAll      int
	}{
		{
			name:         "account",
			payload:      `{"scope":"account","account_id":"` + accountID.String() + `"}`,
			wantAccounts: []uuid.UUID{accountID},
		},
		{
			name:    "all",
			payload: `{"scope":"all"}`,
			wantAll: 1,
		},
		{
			name:    "account without id is ignored",
			payload: `{"scope":"account"}`,
		},
		{
			name:    "unknown scope is ignored",
			payload: `{"scope":"tenant"}`,
		},
		{
			name:    "malformed payload is ignored",
			payload: `{not json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &recordingInvalidator{}
			inv := NewRedisInvalidator(nil, "test", target, zap.NewNop())

			inv.handle(tt.payload)

			accounts, all := target.snapshot()
			assert.Equal(t, tt.wantAccounts, accounts)
			assert.Equal(t, tt.wantAll, all)
		})
	}
}

func TestLocalNotifier(t *testing.T) {
	target := &recordingInvalidator{}
	n := NewLocalNotifier(target)
	accountID := uuid.New()

	assert.NoError(t, n.AccountChanged(context.Background(), accountID))
	assert.NoError(t, n.AllChanged(context.Background()))

	accounts, all := target.snapshot()
	assert.Equal(t, []uuid.UUID{accountID}, accounts)
	assert.Equal(t, 1, all)

	assert.NoError(t, NewLocalNotifier(nil).AllChanged(context.Background()))
}

func TestRedisInvalidator_SubscribeRequiresTarget(t *testing.T) {
	inv := NewRedisInvalidator(nil, "test", nil, zap.NewNop())
	assert.Error(t, inv.Subscribe(context.Background()))
}
