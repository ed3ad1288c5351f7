package database

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithAccountContext_RejectsInvalidAccountID(t *testing.T) {
	called := false
	handler := WithAccountContext(nil, zap.NewNop())(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/accounts/{account_id}/unify", handler)

	req := httptest.NewRequest(http.MethodPost, "/api/accounts/not-a-uuid/unify", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_account_id", body["error"])
}

func TestGetAccountScope_Missing(t *testing.T) {
	_, ok := GetAccountScope(context.Background())
	assert.False(t, ok)
}
