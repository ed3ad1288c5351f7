package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-unify/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

func TestFieldMappingHandler_List(t *testing.T) {
	mux := newTestMux(t, &mockAccountMappingService{})

	rec, resp := do(t, mux, http.MethodGet, accountPath("/field-mappings"), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, dataMap(t, resp)["mappings"])
}

func TestFieldMappingHandler_Set(t *testing.T) {
	accounts := &mockAccountMappingService{}
	mux := newTestMux(t, accounts)
	accountID := uuid.New()

	rec, resp := do(t, mux, http.MethodPut, "/api/accounts/"+accountID.String()+"/field-mappings", `{
		"objectType": "deals",
		"tpId": "pipedrive",
		"sourceFieldName": null,
		"targetFieldName": "amount",
		"isStandardField": true
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	require.Len(t, accounts.set, 1)
	got := accounts.set[0]
	assert.Equal(t, accountID, got.AccountID)
	assert.Equal(t, models.ObjectDeal, got.ObjectType)
	assert.Nil(t, got.SourceFieldName, "null unmaps the standard field")
	assert.True(t, got.IsStandardField)
}

func TestFieldMappingHandler_SetErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		accounts *mockAccountMappingService
		status   int
		code     string
	}{
		{
			name:   "missing isStandardField",
			body:   `{"objectType": "deal", "tpId": "pipedrive", "targetFieldName": "amount"}`,
			status: http.StatusBadRequest,
			code:   "validation_failed",
		},
		{
			name: "service rejects",
			body: `{"objectType": "deal", "tpId": "zendesk", "targetFieldName": "amount", "isStandardField": true}`,
			accounts: &mockAccountMappingService{
				setErr: apperrors.NewUnrecognizedProviderError("deal", "zendesk", "provider does not serve the crm domain"),
			},
			status: http.StatusNotFound,
			code:   "unrecognized_provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := tt.accounts
			if accounts == nil {
				accounts = &mockAccountMappingService{}
			}
			mux := newTestMux(t, accounts)

			rec, resp := do(t, mux, http.MethodPut, accountPath("/field-mappings"), tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, resp.Error)
			assert.Empty(t, accounts.set)
		})
	}
}

func TestFieldMappingHandler_Delete(t *testing.T) {
	accounts := &mockAccountMappingService{}
	mux := newTestMux(t, accounts)
	mappingID := uuid.New()

	rec, _ := do(t, mux, http.MethodDelete, accountPath("/field-mappings/"+mappingID.String()), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uuid.UUID{mappingID}, accounts.deleted)

	accounts.deleteErr = apperrors.ErrNotFound
	rec, resp := do(t, mux, http.MethodDelete, accountPath("/field-mappings/"+uuid.NewString()), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", resp.Error)

	rec, resp = do(t, mux, http.MethodDelete, accountPath("/field-mappings/abc"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_mapping_id", resp.Error)
}
