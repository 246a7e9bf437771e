package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seafood-erp/seafood-erp/internal/platform/httpx"
)

func newTestRouter(t *testing.T) (http.Handler, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	handler := NewHandler(nil, NewService(repo, nil, nil, nil))
	r := chi.NewRouter()
	r.Route("/api/products", handler.MountRoutes)
	return r, repo
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerCreateAndGet(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/products", `{"name":"Salmon","price":"12.50","on_hand":"10","unit":"kg"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.True(t, created.Price.Equal(dec("12.5")))

	rr = doJSON(t, h, http.MethodGet, "/api/products/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Salmon"`)
}

func TestHandlerAdjustBelowZeroIsConflict(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := doJSON(t, h, http.MethodPost, "/api/products", `{"name":"Oysters","price":"9.90","on_hand":"2"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/products/1/adjust", `{"operation":"remove","quantity":"5"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "insufficient-stock", problem.Type)
}

func TestHandlerValidationAndNotFound(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/products", `{"price":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"is required"`)

	rr = doJSON(t, h, http.MethodPost, "/api/products", `{"name":"x","bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/products/77", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/products/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerListAndDeactivate(t *testing.T) {
	h, _ := newTestRouter(t)
	doJSON(t, h, http.MethodPost, "/api/products", `{"name":"Hake","price":"5"}`)
	doJSON(t, h, http.MethodPost, "/api/products", `{"name":"Tuna","price":"7"}`)

	rr := doJSON(t, h, http.MethodPost, "/api/products/2/deactivate", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/products?active=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Items      []Product `json:"items"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Hake", resp.Items[0].Name)
	assert.Equal(t, 1, resp.Pagination.Total)
}
