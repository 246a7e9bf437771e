package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	WriteProblem(w, ProblemFor(err))
}

// ProblemFor builds the problem document for err.
func ProblemFor(err error) ProblemDetail {
	var stockErr *shared.InsufficientStockError
	var validationErr *shared.ValidationError
	switch {
	case errors.As(err, &stockErr):
		return ProblemDetail{
			Type:       "insufficient-stock",
			Title:      "Insufficient Stock",
			Status:     http.StatusConflict,
			Detail:     err.Error(),
			ProductIDs: stockErr.ProductIDs,
		}
	case errors.As(err, &validationErr):
		return ProblemDetail{
			Type:   "validation",
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: validationErr.Error(),
			Errors: validationErr.Fields,
		}
	case errors.Is(err, ErrBadRequest):
		return ProblemDetail{Title: "Bad Request", Status: http.StatusBadRequest, Detail: err.Error()}
	case errors.Is(err, shared.ErrNotFound):
		return ProblemDetail{Type: "not-found", Title: "Not Found", Status: http.StatusNotFound, Detail: err.Error()}
	case errors.Is(err, shared.ErrInsufficientStock), errors.Is(err, shared.ErrWouldGoNegative):
		return ProblemDetail{Type: "insufficient-stock", Title: "Insufficient Stock", Status: http.StatusConflict, Detail: err.Error()}
	case errors.Is(err, shared.ErrInvalidTransition):
		return ProblemDetail{Type: "invalid-transition", Title: "Invalid Transition", Status: http.StatusConflict, Detail: err.Error()}
	case errors.Is(err, shared.ErrDuplicate):
		return ProblemDetail{Type: "duplicate", Title: "Duplicate", Status: http.StatusConflict, Detail: err.Error()}
	case errors.Is(err, shared.ErrInUse):
		return ProblemDetail{Type: "in-use", Title: "In Use", Status: http.StatusConflict, Detail: err.Error()}
	case errors.Is(err, shared.ErrInactive):
		return ProblemDetail{Type: "inactive", Title: "Inactive", Status: http.StatusUnprocessableEntity, Detail: err.Error()}
	case errors.Is(err, shared.ErrValidation):
		return ProblemDetail{Type: "validation", Title: "Validation Failed", Status: http.StatusUnprocessableEntity, Detail: err.Error()}
	case errors.Is(err, shared.ErrConcurrentModification):
		return ProblemDetail{Type: "concurrent-modification", Title: "Concurrent Modification", Status: http.StatusServiceUnavailable, Detail: "the resource is busy, retry the request"}
	default:
		return ProblemDetail{Title: "Internal Error", Status: http.StatusInternalServerError}
	}
}

// Fail writes the problem for err and logs failures that are not the caller's fault.
func Fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	problem := ProblemFor(err)
	if problem.Status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
	}
	WriteProblem(w, problem)
}
