package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
	"github.com/ekaya-inc/ekaya-unify/pkg/registry"
	"github.com/ekaya-inc/ekaya-unify/pkg/services"
)

// mockAccountMappingService is a hand-written AccountMappingService for handler tests.
type mockAccountMappingService struct {
	config    *models.AccountFieldMappingConfig
	getErr    error
	setErr    error
	deleteErr error
	set       []*models.AccountFieldMapping
	deleted   []uuid.UUID
}

var _ services.AccountMappingService = (*mockAccountMappingService)(nil)

func (m *mockAccountMappingService) GetConfig(_ context.Context, accountID uuid.UUID) (*models.AccountFieldMappingConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.config != nil {
		return m.config, nil
	}
	return &models.AccountFieldMappingConfig{AccountID: accountID}, nil
}

func (m *mockAccountMappingService) SetMapping(_ context.Context, fm *models.AccountFieldMapping) error {
	if m.setErr != nil {
		return m.setErr
	}
	fm.ID = uuid.New()
	m.set = append(m.set, fm)
	return nil
}

func (m *mockAccountMappingService) DeleteMapping(_ context.Context, _, id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// passthrough stands in for the database-backed account middleware.
func passthrough(next http.HandlerFunc) http.HandlerFunc { return next }

func newTestMux(t *testing.T, accounts *mockAccountMappingService) *http.ServeMux {
	t.Helper()
	reg, err := registry.FromSeed()
	require.NoError(t, err)

	logger := zap.NewNop()
	transform := services.NewTransformService(
		services.NewCachedResolver(services.NewMappingResolver(reg, logger), nil, logger),
		services.NewUnifyEngine(logger),
		services.NewDisunifyEngine(logger),
		nil,
		logger,
	)

	mux := http.NewServeMux()
	NewTransformHandler(transform, accounts, logger).RegisterRoutes(mux, passthrough)
	NewFieldMappingHandler(accounts, logger).RegisterRoutes(mux, passthrough)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) (*httptest.ResponseRecorder, ApiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp ApiResponse
	if rec.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	}
	return rec, resp
}

func dataMap(t *testing.T, resp ApiResponse) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

var errBoom = errors.New("boom")
