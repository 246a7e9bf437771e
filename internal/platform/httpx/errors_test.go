package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seafood-erp/seafood-erp/internal/shared"
)

func TestProblemForStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("catalog: get: %w", shared.ErrNotFound), http.StatusNotFound},
		{shared.NewInsufficientStockError(3, 1), http.StatusConflict},
		{shared.ErrWouldGoNegative, http.StatusConflict},
		{shared.ErrInvalidTransition, http.StatusConflict},
		{shared.ErrDuplicate, http.StatusConflict},
		{shared.ErrInUse, http.StatusConflict},
		{shared.ErrInactive, http.StatusUnprocessableEntity},
		{shared.FieldError("rut", "is invalid"), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: unexpected EOF", ErrBadRequest), http.StatusBadRequest},
		{shared.ErrConcurrentModification, http.StatusServiceUnavailable},
		{fmt.Errorf("dial tcp: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, ProblemFor(tc.err).Status, tc.err.Error())
	}
}

func TestRespondErrorBodies(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, shared.NewInsufficientStockError(7))
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, []int64{7}, problem.ProductIDs)

	rr = httptest.NewRecorder()
	RespondError(rr, shared.FieldError("email", "is invalid"))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "is invalid", problem.Errors["email"])
	assert.Empty(t, rr.Header().Get("Retry-After"))

	rr = httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("orders: create: %w", shared.ErrConcurrentModification))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestInternalErrorsHideDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	Fail(nil, rr, req, fmt.Errorf("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
}
