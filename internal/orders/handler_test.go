package orders

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
	svc, repo, _ := newTestService(t)
	svc.deps.Idempotency = &memoryIdempotency{refs: map[string]string{}}
	r := chi.NewRouter()
	r.Route("/api/orders", NewHandler(nil, svc).MountRoutes)
	return r, repo
}

func send(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerPlaceOrder(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := send(h, http.MethodPost, "/api/orders", `{"customer_id":1,"lines":[{"product_id":1,"quantity":3}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var o Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &o))
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, "15", o.Total.String())
}

func TestHandlerInsufficientStockNamesProducts(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := send(h, http.MethodPost, "/api/orders", `{"customer_id":1,"lines":[{"product_id":2,"quantity":"5"},{"product_id":1,"quantity":"30"}]}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "insufficient-stock", problem.Type)
	assert.Equal(t, []int64{1, 2}, problem.ProductIDs)
}

func TestHandlerMissingReferences(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := send(h, http.MethodPost, "/api/orders", `{"customer_id":77,"lines":[{"product_id":1,"quantity":1}]}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = send(h, http.MethodPost, "/api/orders", `{"customer_id":1,"lines":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = send(h, http.MethodGet, "/api/orders/55", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerTransitions(t *testing.T) {
	h, repo := newTestRouter(t)
	rr := send(h, http.MethodPost, "/api/orders", `{"customer_id":1,"lines":[{"product_id":1,"quantity":3}]}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = send(h, http.MethodPost, "/api/orders/1/status", `{"order_id":2,"new_status":"processing"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = send(h, http.MethodPost, "/api/orders/1/status", `{"order_id":1,"new_status":"processing"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"status":"processing"`)

	rr = send(h, http.MethodPost, "/api/orders/1/status", `{"new_status":"placed"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid-transition")

	rr = send(h, http.MethodPost, "/api/orders/1/status", `{"new_status":"cancelled"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "10", repo.onHand(salmonID).String())

	rr = send(h, http.MethodPost, "/api/orders/1/status", `{"new_status":"cancelled"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "10", repo.onHand(salmonID).String())
}

func TestHandlerIdempotencyKey(t *testing.T) {
	h, repo := newTestRouter(t)
	body := `{"customer_id":1,"lines":[{"product_id":3,"quantity":2}]}`

	first := send(h, http.MethodPost, "/api/orders", body, IdempotencyHeader, "k-1")
	second := send(h, http.MethodPost, "/api/orders", body, IdempotencyHeader, "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 1, repo.orderCount())
	assert.Equal(t, "18", repo.onHand(hakeID).String())
}

func TestHandlerLinesAndList(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, send(h, http.MethodPost, "/api/orders", `{"customer_id":1,"lines":[{"product_id":1,"quantity":1}]}`).Code)

	rr := send(h, http.MethodPost, "/api/orders/1/lines", `{"product_id":3,"quantity":"1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"total":"12.9"`)

	rr = send(h, http.MethodDelete, "/api/orders/1/lines/1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"total":"7.9"`)

	rr = send(h, http.MethodPost, "/api/orders/1/recompute", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = send(h, http.MethodGet, "/api/orders?status=placed", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":1`)

	rr = send(h, http.MethodGet, "/api/orders?status=lost", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = send(h, http.MethodGet, "/api/orders?from=yesterday", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
