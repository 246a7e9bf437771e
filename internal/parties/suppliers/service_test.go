package suppliers

import (
	"context"
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
	suppliers map[int64]Supplier
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{suppliers: map[int64]Supplier{}}
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Supplier, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Supplier{}
	for id := int64(1); id <= r.nextID; id++ {
		s, ok := r.suppliers[id]
		if ok && (filter.Active == nil || s.Active == *filter.Active) {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, s Supplier) (Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.suppliers {
		if existing.RUT == s.RUT || existing.Email == s.Email {
			return Supplier{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	s.ID = r.nextID
	r.suppliers[s.ID] = s
	return s, nil
}

func (r *memoryRepo) Update(ctx context.Context, s Supplier) (Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.suppliers[s.ID]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	s.Active = existing.Active
	r.suppliers[s.ID] = s
	return s, nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id int64, active bool) (Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	s.Active = active
	r.suppliers[id] = s
	return s, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suppliers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.suppliers, id)
	return nil
}

func TestSupplierLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	s, err := svc.Create(ctx, SupplierRequest{Name: "Caleta Quintay", RUT: "96.543.210-8", Email: "ventas@quintay.cl", Contact: " Rosa "})
	require.NoError(t, err)
	assert.Equal(t, "96543210-8", s.RUT)
	assert.Equal(t, "Rosa", s.Contact)
	assert.True(t, s.Active)

	_, err = svc.Create(ctx, SupplierRequest{Name: "Otra", RUT: "96543210-8", Email: "otra@quintay.cl"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)

	s, err = svc.Update(ctx, s.ID, SupplierRequest{Name: "Caleta Quintay Ltda", RUT: "96543210-8", Email: "ventas@quintay.cl"})
	require.NoError(t, err)
	assert.Equal(t, "Caleta Quintay Ltda", s.Name)

	s, err = svc.SetActive(ctx, s.ID, false)
	require.NoError(t, err)
	assert.False(t, s.Active)

	require.NoError(t, svc.Delete(ctx, s.ID))
	_, err = svc.Get(ctx, s.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSupplierValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Create(context.Background(), SupplierRequest{Name: "X", RUT: "1-1", Email: "not-an-email"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "rut")
	assert.Contains(t, verr.Fields, "email")
}

func TestSupplierHandler(t *testing.T) {
	h := NewHandler(nil, NewService(newMemoryRepo(), nil, nil))
	r := chi.NewRouter()
	r.Route("/api/suppliers", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/suppliers",
		strings.NewReader(`{"name":"Cultivos Chiloé","rut":"22.222.222-2","email":"info@chiloe.cl"}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/suppliers?active=true", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":1`)
}
