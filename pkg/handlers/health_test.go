package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/config"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeSizer int

func (s fakeSizer) Len() int { return int(s) }

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name     string
		db       Pinger
		status   int
		want     string
		database string
	}{
		{"no database", nil, http.StatusOK, "ok", ""},
		{"database up", fakePinger{}, http.StatusOK, "ok", "ok"},
		{"database down", fakePinger{err: errBoom}, http.StatusServiceUnavailable, "degraded", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&config.Config{}, tt.db, fakeSizer(3), zap.NewNop())
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.database, resp.Database)
			assert.Equal(t, 3, resp.Mappings)
		})
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	cfg := &config.Config{Version: "test-version", Env: "test"}
	h := NewHealthHandler(cfg, nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-version", resp.Version)
	assert.Equal(t, "ekaya-unify", resp.Service)
	assert.Equal(t, "test", resp.Environment)
	assert.NotEmpty(t, resp.GoVersion)
}
