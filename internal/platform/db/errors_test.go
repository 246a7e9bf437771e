package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seafood-erp/seafood-erp/internal/shared"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  *pgconn.PgError
		want error
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "customers_rut_key"}, shared.ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "order_lines_product_id_fkey"}, shared.ErrInUse},
		{"check", &pgconn.PgError{Code: "23514", ConstraintName: "products_on_hand_non_negative"}, shared.ErrValidation},
		{"numeric overflow", &pgconn.PgError{Code: "22003", Message: "numeric field overflow"}, shared.ErrValidation},
		{"serialization failure", &pgconn.PgError{Code: "40001", Message: "could not serialize access"}, shared.ErrConcurrentModification},
		{"deadlock", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, shared.ErrConcurrentModification},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(fmt.Errorf("orders: insert line: %w", tc.err))
			require.ErrorIs(t, got, tc.want)
		})
	}
}

func TestClassifyKeepsOtherErrors(t *testing.T) {
	assert.NoError(t, Classify(nil))

	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, Classify(plain))

	syntax := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	got := Classify(syntax)
	assert.Equal(t, error(syntax), got)
	assert.False(t, errors.Is(got, shared.ErrConcurrentModification))
}

func TestClassifyNamesConstraint(t *testing.T) {
	err := Classify(&pgconn.PgError{Code: "23505", ConstraintName: "customers_email_key"})
	assert.Contains(t, err.Error(), "customers_email_key")

	err = Classify(&pgconn.PgError{Code: "23503", Detail: "Key (id)=(4) is still referenced"})
	assert.Contains(t, err.Error(), "still referenced")
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505", ConstraintName: "products_code_key"})
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "products_code_key"))
	assert.False(t, IsUniqueViolation(err, "customers_rut_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}, ""))
}
