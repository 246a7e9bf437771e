package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock indicates an order line asks for more than is on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrWouldGoNegative is returned by stock adjustments that would drive on-hand below zero.
	ErrWouldGoNegative = errors.New("stock would go negative")
	// ErrInvalidTransition indicates a status change that is not reachable from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrentModification indicates storage contention; callers may retry.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInUse indicates the record is still referenced and cannot be deleted.
	ErrInUse = errors.New("record in use")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrInactive indicates the referenced record is deactivated.
	ErrInactive = errors.New("record inactive")
)

// InsufficientStockError names every product that could not cover its requested quantity.
type InsufficientStockError struct {
	ProductIDs []int64
}

// NewInsufficientStockError builds the error with sorted, de-duplicated ids.
func NewInsufficientStockError(ids ...int64) *InsufficientStockError {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return &InsufficientStockError{ProductIDs: out}
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("insufficient stock for product(s) %s", strings.Join(parts, ", "))
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FieldError is a shortcut for a single-field validation failure.
func FieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
