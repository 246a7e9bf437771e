package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seafood-erp/seafood-erp/internal/catalog"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

const (
	salmonID int64 = 1
	musselID int64 = 2
	hakeID   int64 = 3
)

type recordingHooks struct {
	mu          sync.Mutex
	invalidated []int64
	bumps       int
	bumpErr     error
	audits      []shared.AuditLog
	created     int
	transitions []string
	rejections  []string
	retries     int
}

func (h *recordingHooks) Invalidate(ctx context.Context, ids ...int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidated = append(h.invalidated, ids...)
}

func (h *recordingHooks) Bump(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bumps++
	return h.bumpErr
}

func (h *recordingHooks) Record(ctx context.Context, log shared.AuditLog) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audits = append(h.audits, log)
	return nil
}

func (h *recordingHooks) OrderCreated(total decimal.Decimal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created++
}

func (h *recordingHooks) OrderTransitioned(from, to string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transitions = append(h.transitions, from+"->"+to)
}

func (h *recordingHooks) OrderRejected(op, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejections = append(h.rejections, op+":"+reason)
}

func (h *recordingHooks) OrderRetried(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retries++
}

type memoryIdempotency struct {
	mu   sync.Mutex
	refs map[string]string
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refs[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.refs[key] = ""
	return nil
}

func (m *memoryIdempotency) Complete(ctx context.Context, key, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[key] = ref
	return nil
}

func (m *memoryIdempotency) Lookup(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[key]
	return ref, ok, nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refs, key)
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestService(t *testing.T) (*Service, *memoryRepo, *recordingHooks) {
	t.Helper()
	repo := newMemoryRepo()
	repo.addCustomer(1, "Restaurante Mar", true)
	repo.addCustomer(2, "Cliente Inactivo", false)
	repo.addProduct(salmonID, "Salmon", "5.00", "10")
	repo.addProduct(musselID, "Mussels", "2.50", "4")
	repo.addProduct(hakeID, "Hake", "7.90", "20")
	hooks := &recordingHooks{}
	svc := NewService(repo, Dependencies{
		Audit:     hooks,
		Products:  hooks,
		Dashboard: hooks,
		Metrics:   hooks,
	}, ServiceConfig{Retry: shared.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, Sleep: noSleep}})
	return svc, repo, hooks
}

func line(productID int64, qty string) LineRequest {
	return LineRequest{ProductID: productID, Quantity: decimal.RequireFromString(qty)}
}

func place(t *testing.T, svc *Service, lines ...LineRequest) Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: lines})
	require.NoError(t, err)
	return o
}

func assertTotalInvariant(t *testing.T, o Order) {
	t.Helper()
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Quantity.Mul(l.UnitPrice))
	}
	assert.True(t, o.Total.Equal(sum.Round(2)), "total %s != sum %s", o.Total, sum)
}

func TestCreateOrderReservesStock(t *testing.T) {
	svc, repo, hooks := newTestService(t)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "3")}, Notes: " rush "})
	require.NoError(t, err)

	assert.Equal(t, StatusPlaced, o.Status)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, "rush", o.Notes)
	assert.Regexp(t, `^ORD-\d{6}-[0-9A-F]{8}$`, o.Reference)
	require.Len(t, o.Lines, 1)
	assert.True(t, o.Lines[0].UnitPrice.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, "Salmon", o.Lines[0].ProductName)
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(7)))
	assertTotalInvariant(t, o)

	assert.Equal(t, []int64{salmonID}, hooks.invalidated)
	assert.Equal(t, 1, hooks.bumps)
	assert.Equal(t, 1, hooks.created)
	require.Len(t, hooks.audits, 1)
	assert.Equal(t, "orders.create", hooks.audits[0].Action)
}

func TestCreateOrderInsufficientStockNamesProduct(t *testing.T) {
	svc, repo, hooks := newTestService(t)
	repo.addProduct(salmonID, "Salmon", "5.00", "2")

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "5")}})

	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, []int64{salmonID}, stockErr.ProductIDs)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(2)))
	assert.Zero(t, repo.orderCount())
	assert.Equal(t, []string{"create:insufficient_stock"}, hooks.rejections)
	assert.Zero(t, hooks.bumps)
}

func TestCreateOrderFailingSecondLineChangesNothing(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{
		line(salmonID, "3"),
		line(musselID, "9"),
	}})
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, []int64{musselID}, stockErr.ProductIDs)
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(10)))
	assert.True(t, repo.onHand(musselID).Equal(decimal.NewFromInt(4)))
	assert.Zero(t, repo.orderCount())
}

func TestCreateOrderRollsBackReservationsOnLaterFailure(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.failInsertLine = musselID

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{
		line(salmonID, "3"),
		line(musselID, "1"),
	}})
	require.Error(t, err)
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(10)))
	assert.True(t, repo.onHand(musselID).Equal(decimal.NewFromInt(4)))
	assert.Zero(t, repo.orderCount())
	assert.Empty(t, repo.state.movements)
}

func TestCreateOrderNamesEveryShortProduct(t *testing.T) {
	svc, repo, _ := newTestService(t)
	inactive := repo.state.products[hakeID]
	inactive.Active = false
	repo.state.products[hakeID] = inactive

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{
		line(hakeID, "1"),
		line(salmonID, "1"),
		line(musselID, "5"),
	}})
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, []int64{musselID, hakeID}, stockErr.ProductIDs)
}

func TestCreateOrderAggregatesRepeatedProducts(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{
		line(musselID, "3"),
		line(musselID, "3"),
	}})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	o := place(t, svc, line(musselID, "2"), line(musselID, "2"))
	assert.Len(t, o.Lines, 2)
	assert.True(t, repo.onHand(musselID).IsZero())
	assert.True(t, o.Total.Equal(decimal.RequireFromString("10.00")))
}

func TestCreateOrderReferences(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{CustomerID: 99, Lines: []LineRequest{line(salmonID, "1")}})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{CustomerID: 2, Lines: []LineRequest{line(salmonID, "1")}})
	assert.ErrorIs(t, err, shared.ErrInactive)

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(42, "1")}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{CustomerID: 1})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lines")

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "0")}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be greater than 0", verr.Fields["lines[0].quantity"])

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "1.005")}})
	require.ErrorAs(t, err, &verr)

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{{Quantity: decimal.NewFromInt(1)}}})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lines[0].product_id")
}

func TestTotalRoundsTheExactSumOnce(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addProduct(4, "Squid rings", "1.25", "5")
	repo.addProduct(5, "Anchovies", "1.25", "5")
	repo.addProduct(6, "Sardines", "1.25", "5")

	o := place(t, svc, line(4, "0.33"), line(5, "0.33"), line(6, "0.33"))
	// 3 × 0.4125 = 1.2375; rounding every line first would give 1.23.
	assert.True(t, o.Total.Equal(decimal.RequireFromString("1.24")), "total %s", o.Total)
	assertTotalInvariant(t, o)

	recomputed, err := svc.RecomputeTotal(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, recomputed.Total.Equal(o.Total))

	assert.True(t, SumLines([]Line{
		{Quantity: decimal.RequireFromString("0.33"), UnitPrice: decimal.RequireFromString("1.25")},
	}).Equal(decimal.RequireFromString("0.41")))
}

func TestLinePriceIsCapturedAtPlacement(t *testing.T) {
	svc, repo, _ := newTestService(t)
	o := place(t, svc, line(salmonID, "2"))

	p := repo.state.products[salmonID]
	p.Price = decimal.RequireFromString("9.99")
	repo.state.products[salmonID] = p

	recomputed, err := svc.RecomputeTotal(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, recomputed.Total.Equal(decimal.RequireFromString("10.00")))
	assertTotalInvariant(t, recomputed)
}

func TestRecomputeTotalIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	o := place(t, svc, line(salmonID, "1.5"), line(hakeID, "2.25"))

	tampered := repo.state.orders[o.ID]
	tampered.Total = decimal.NewFromInt(1)
	repo.state.orders[o.ID] = tampered

	first, err := svc.RecomputeTotal(context.Background(), o.ID)
	require.NoError(t, err)
	second, err := svc.RecomputeTotal(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.Total.Equal(decimal.RequireFromString("25.28")))

	_, err = svc.RecomputeTotal(context.Background(), 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTransitionHappyPathKeepsStock(t *testing.T) {
	svc, repo, hooks := newTestService(t)
	o := place(t, svc, line(salmonID, "3"))
	ctx := context.Background()

	o, err := svc.TransitionStatus(ctx, o.ID, StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)

	o, err = svc.TransitionStatus(ctx, o.ID, StatusFulfilled)
	require.NoError(t, err)
	assert.Equal(t, StatusFulfilled, o.Status)
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(7)))
	assert.Equal(t, []string{"placed->processing", "processing->fulfilled"}, hooks.transitions)
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	o := place(t, svc, line(salmonID, "3"))

	_, err := svc.TransitionStatus(ctx, o.ID, StatusFulfilled)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.TransitionStatus(ctx, o.ID, StatusProcessing)
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, o.ID, StatusPlaced)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)

	_, err = svc.TransitionStatus(ctx, o.ID, StatusFulfilled)
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, o.ID, StatusCancelled)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(7)))

	_, err = svc.TransitionStatus(ctx, o.ID, Status("shipped"))
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.TransitionStatus(ctx, 404, StatusProcessing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCancelRestoresStockExactlyOnce(t *testing.T) {
	for _, via := range []Status{StatusPlaced, StatusProcessing} {
		t.Run(string(via), func(t *testing.T) {
			svc, repo, _ := newTestService(t)
			ctx := context.Background()
			o := place(t, svc, line(salmonID, "3"), line(musselID, "1.5"), line(salmonID, "2"))
			assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(5)))

			if via == StatusProcessing {
				_, err := svc.TransitionStatus(ctx, o.ID, StatusProcessing)
				require.NoError(t, err)
			}
			cancelled, err := svc.TransitionStatus(ctx, o.ID, StatusCancelled)
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, cancelled.Status)
			assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(10)))
			assert.True(t, repo.onHand(musselID).Equal(decimal.NewFromInt(4)))

			_, err = svc.TransitionStatus(ctx, o.ID, StatusCancelled)
			require.ErrorIs(t, err, shared.ErrInvalidTransition)
			assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(10)))
			assert.True(t, repo.onHand(musselID).Equal(decimal.NewFromInt(4)))

			var released int
			for _, mv := range repo.state.movements {
				if mv.Reason == catalog.ReasonOrderRelease {
					released++
				}
			}
			assert.Equal(t, 2, released)
		})
	}
}

func TestAddAndRemoveLines(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	o := place(t, svc, line(salmonID, "2"))

	o, err := svc.AddLine(ctx, o.ID, LineRequest{ProductID: hakeID, Quantity: decimal.NewFromInt(1), LotCode: "L-77"})
	require.NoError(t, err)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, "L-77", o.Lines[1].LotCode)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("17.90")))
	assert.True(t, repo.onHand(hakeID).Equal(decimal.NewFromInt(19)))
	assertTotalInvariant(t, o)

	_, err = svc.AddLine(ctx, o.ID, line(musselID, "5"))
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, []int64{musselID}, stockErr.ProductIDs)

	o, err = svc.RemoveLine(ctx, o.ID, o.Lines[0].ID)
	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("7.90")))
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(10)))

	_, err = svc.RemoveLine(ctx, o.ID, o.Lines[0].ID)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RemoveLine(ctx, o.ID, 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.TransitionStatus(ctx, o.ID, StatusProcessing)
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, o.ID, line(salmonID, "1"))
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestConflictsAreRetried(t *testing.T) {
	svc, repo, hooks := newTestService(t)
	repo.conflicts = 2

	o := place(t, svc, line(salmonID, "1"))
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, 3, repo.txCalls)
	assert.Equal(t, 2, hooks.retries)
}

func TestConflictsSurfaceAfterRetries(t *testing.T) {
	svc, repo, hooks := newTestService(t)
	repo.conflicts = 10

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "1")}})
	require.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.Equal(t, 3, repo.txCalls)
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(10)))
	assert.Equal(t, []string{"create:conflict"}, hooks.rejections)
}

func TestIdempotencyKeyReplaysFirstOrder(t *testing.T) {
	repo := newMemoryRepo()
	repo.addCustomer(1, "Restaurante Mar", true)
	repo.addProduct(salmonID, "Salmon", "5.00", "10")
	idem := &memoryIdempotency{refs: map[string]string{}}
	svc := NewService(repo, Dependencies{Idempotency: idem}, ServiceConfig{})
	req := CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "4")}, IdempotencyKey: "abc-123"}

	first, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.orderCount())
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(6)))

	failing := CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "40")}, IdempotencyKey: "xyz"}
	_, err = svc.CreateOrder(context.Background(), failing)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	_, found, _ := idem.Lookup(context.Background(), "orders:create:xyz")
	assert.False(t, found, "a failed request must release its key")

	idem.refs["orders:create:busy"] = ""
	_, err = svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "1")}, IdempotencyKey: "busy"})
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
}

func TestPostCommitFailuresAreNotReturned(t *testing.T) {
	svc, _, hooks := newTestService(t)
	hooks.bumpErr = errors.New("redis down")

	o := place(t, svc, line(salmonID, "1"))
	assert.NotZero(t, o.ID)
	assert.Equal(t, 1, hooks.bumps)
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	svc, repo, _ := newTestService(t)
	const workers = 10

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: []LineRequest{line(salmonID, "3")}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, short int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, shared.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, workers-3, short)
	assert.True(t, repo.onHand(salmonID).Equal(decimal.NewFromInt(1)))
	assert.False(t, repo.onHand(salmonID).IsNegative())
}

func TestCancelConservesStockAcrossMixedOrders(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	initial := map[int64]decimal.Decimal{
		salmonID: repo.onHand(salmonID),
		musselID: repo.onHand(musselID),
		hakeID:   repo.onHand(hakeID),
	}

	var ids []int64
	for _, lines := range [][]LineRequest{
		{line(salmonID, "2"), line(hakeID, "3.5")},
		{line(musselID, "1.25")},
		{line(hakeID, "4"), line(salmonID, "1"), line(musselID, "2")},
	} {
		ids = append(ids, place(t, svc, lines...).ID)
	}
	_, err := svc.TransitionStatus(ctx, ids[1], StatusProcessing)
	require.NoError(t, err)
	for _, id := range ids {
		o, err := svc.TransitionStatus(ctx, id, StatusCancelled)
		require.NoError(t, err)
		assertTotalInvariant(t, o)
	}
	for id, qty := range initial {
		assert.True(t, repo.onHand(id).Equal(qty), "product %d", id)
	}
}

func TestStatusTable(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusPlaced, StatusProcessing}:    true,
		{StatusPlaced, StatusCancelled}:     true,
		{StatusProcessing, StatusFulfilled}: true,
		{StatusProcessing, StatusCancelled}: true,
	}
	all := []Status{StatusPlaced, StatusProcessing, StatusFulfilled, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusFulfilled.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPlaced.Terminal())
	assert.False(t, Status("bogus").Valid())
}
