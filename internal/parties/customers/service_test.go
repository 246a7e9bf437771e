package customers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seafood-erp/seafood-erp/internal/shared"
	_ "github.com/seafood-erp/seafood-erp/testing"
)

type memoryRepo struct {
	mu        sync.Mutex
	customers map[int64]Customer
	orders    map[int64]int
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[int64]Customer{}, orders: map[int64]int{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	return c, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Customer{}
	for id := int64(1); id <= r.nextID; id++ {
		c, ok := r.customers[id]
		if !ok {
			continue
		}
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryRepo) checkUnique(c Customer) error {
	for _, existing := range r.customers {
		if existing.ID == c.ID {
			continue
		}
		if existing.RUT == c.RUT {
			return fmt.Errorf("customers: rut already registered: %w", shared.ErrDuplicate)
		}
		if existing.Email == c.Email {
			return fmt.Errorf("customers: email already registered: %w", shared.ErrDuplicate)
		}
	}
	return nil
}

func (r *memoryRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnique(c); err != nil {
		return Customer{}, err
	}
	r.nextID++
	c.ID = r.nextID
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryRepo) Update(ctx context.Context, c Customer) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.customers[c.ID]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	if err := r.checkUnique(c); err != nil {
		return Customer{}, err
	}
	c.Active = existing.Active
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id int64, active bool) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	c.Active = active
	r.customers[id] = c
	return c, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.customers, id)
	return nil
}

func (r *memoryRepo) HasOrders(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id] > 0, nil
}

func validRequest() CreateCustomerRequest {
	return CreateCustomerRequest{Name: "Pescadería Central", RUT: "12.345.678-5", Email: "Compras@Central.cl"}
}

func TestCreateNormalizesRUTAndEmail(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	c, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "12345678-5", c.RUT)
	assert.Equal(t, "compras@central.cl", c.Email)
	assert.True(t, c.Active)
}

func TestCreateRejectsInvalidRUT(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	req := validRequest()
	req.RUT = "12.345.678-9"
	_, err := svc.Create(context.Background(), req)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a valid RUT", verr.Fields["rut"])
}

func TestCreateRejectsDuplicates(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	sameRUT := validRequest()
	sameRUT.Email = "otro@central.cl"
	sameRUT.RUT = "12345678-5"
	_, err = svc.Create(context.Background(), sameRUT)
	assert.ErrorIs(t, err, shared.ErrDuplicate)

	sameEmail := validRequest()
	sameEmail.RUT = "11.111.111-1"
	sameEmail.Email = "compras@central.cl"
	_, err = svc.Create(context.Background(), sameEmail)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeleteWithOrdersIsInUse(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	c, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	repo.orders[c.ID] = 2

	err = svc.Delete(context.Background(), c.ID)
	require.ErrorIs(t, err, shared.ErrInUse)
	_, err = svc.Get(context.Background(), c.ID)
	require.NoError(t, err)

	repo.orders[c.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), c.ID))
	_, err = svc.Get(context.Background(), c.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestDeactivateAndActivate(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	c, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	c, err = svc.SetActive(context.Background(), c.ID, false)
	require.NoError(t, err)
	assert.False(t, c.Active)

	active := true
	items, total, err := svc.List(context.Background(), ListFilter{Active: &active})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestHandlerCreateAndConflict(t *testing.T) {
	h := NewHandler(nil, NewService(newMemoryRepo(), nil, nil))
	r := chi.NewRouter()
	r.Route("/api/customers", h.MountRoutes)

	body := `{"name":"Restaurante Mar","rut":"76.123.456-0","email":"mar@example.cl"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"rut":"76123456-0"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/customers/9", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
