package transactions

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lumina-dist/lumina/internal/authz"
)

func draftRouter(drafts *DraftStore) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, nil, nil, drafts)
	r := chi.NewRouter()
	r.Route("/transactions", h.MountRoutes)
	return r
}

func draftRequest(t *testing.T, router chi.Router, u *authz.User, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(authz.ContextWithUser(req.Context(), u))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDraftEndpointsRespondWithLockedSnapshot(t *testing.T) {
	drafts := NewDraftStore()
	router := draftRouter(drafts)
	caller := salesRep()

	rec := draftRequest(t, router, caller, http.MethodPost, "/transactions/draft", `{"type":"Sell"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var opened struct {
		Type  string `json:"type"`
		Lines []any  `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	require.Equal(t, "Sell", opened.Type)

	rec = draftRequest(t, router, caller, http.MethodPut, "/transactions/draft/details", `{"customer_name":"Acme Store"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// The response body is the draft as serialized under the store lock, so
	// it already reflects the edit just applied.
	var detailed struct {
		CustomerName string `json:"customer_name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detailed))
	require.Equal(t, "Acme Store", detailed.CustomerName)

	rec = draftRequest(t, router, caller, http.MethodGet, "/transactions/draft", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// A different account has no draft.
	other := &authz.User{ID: 99, Role: authz.RoleSales, CostTier: "RD"}
	rec = draftRequest(t, router, other, http.MethodGet, "/transactions/draft", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = draftRequest(t, router, caller, http.MethodDelete, "/transactions/draft", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = draftRequest(t, router, caller, http.MethodGet, "/transactions/draft", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
