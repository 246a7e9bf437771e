package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/seafood-erp/seafood-erp/internal/shared"
)

const (
	topLimit         = 5
	monthlyWindow    = 90 * 24 * time.Hour
	defaultSalesDays = 30
	maxSalesDays     = 366
)

// Config tunes the readers.
type Config struct {
	LowStockThreshold decimal.Decimal
	Location          *time.Location
}

// Service builds dashboard read models. Loads go through the versioned cache and concurrent
// requests for the same key share one load.
type Service struct {
	repo      Repository
	cache     *Cache
	group     singleflight.Group
	threshold decimal.Decimal
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewService wires a Repository with a Cache helper. A nil cache loads straight from repo.
func NewService(repo Repository, cache *Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.LowStockThreshold
	if !threshold.IsPositive() {
		threshold = decimal.NewFromInt(10)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, cache: cache, threshold: threshold, loc: loc, now: time.Now, logger: logger}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Threshold returns the low-stock threshold in use.
func (s *Service) Threshold() decimal.Decimal {
	return s.threshold
}

func (s *Service) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// Summary returns the landing dashboard.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	today := s.today()
	var out Summary
	err := s.load(ctx, &out, []string{"summary", today.Format("2006-01-02")}, func(ctx context.Context) (any, error) {
		return s.buildSummary(ctx, today)
	})
	return out, err
}

func (s *Service) buildSummary(ctx context.Context, today time.Time) (Summary, error) {
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	var (
		salesToday, salesYesterday decimal.Decimal
		statuses                   map[string]int
		items                      []StockItem
		customers                  PartyCounts
		monthly                    []MonthlySales
		top                        []ProductSales
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		_, salesToday, err = s.repo.SalesBetween(gctx, today, tomorrow)
		return err
	})
	g.Go(func() error {
		var err error
		_, salesYesterday, err = s.repo.SalesBetween(gctx, yesterday, today)
		return err
	})
	g.Go(func() error {
		var err error
		statuses, err = s.repo.OrderStatusCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.repo.StockItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		customers, err = s.repo.CustomerCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = s.repo.MonthlySales(gctx, today.Add(-monthlyWindow))
		return err
	})
	g.Go(func() error {
		var err error
		top, err = s.repo.TopProductsBySales(gctx, topLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		GeneratedAt:      s.now(),
		SalesToday:       salesToday,
		SalesYesterday:   salesYesterday,
		SalesChange:      PercentChange(salesToday, salesYesterday),
		PendingOrders:    statuses["placed"],
		ProcessingOrders: statuses["processing"],
		TotalProducts:    len(items),
		TotalCustomers:   customers.Total,
		ActiveCustomers:  customers.Active,
		MonthlySales:     monthly,
		TopProducts:      top,
	}
	for _, item := range items {
		if !item.Active {
			continue
		}
		summary.ActiveProducts++
		if item.OnHand.LessThanOrEqual(s.threshold) {
			summary.LowStockProducts++
		}
	}
	return summary, nil
}

// StockLevels classifies every active product against the threshold, lowest share first.
func (s *Service) StockLevels(ctx context.Context) ([]StockLevel, error) {
	var out []StockLevel
	err := s.load(ctx, &out, []string{"stock-levels", s.threshold.String()}, func(ctx context.Context) (any, error) {
		items, err := s.repo.StockItems(ctx)
		if err != nil {
			return nil, err
		}
		levels := make([]StockLevel, 0, len(items))
		for _, item := range items {
			if !item.Active {
				continue
			}
			level, percent := Classify(item.OnHand, s.threshold)
			levels = append(levels, StockLevel{StockItem: item, Threshold: s.threshold, PercentOfThreshold: percent, Level: level})
		}
		sort.SliceStable(levels, func(i, j int) bool {
			return levels[i].PercentOfThreshold.LessThan(levels[j].PercentOfThreshold)
		})
		return levels, nil
	})
	return out, err
}

// Report builds the report named by kind. days only applies to the sales report; zero selects
// the default window.
func (s *Service) Report(ctx context.Context, kind Kind, days int) (Report, error) {
	if !kind.Valid() {
		return Report{}, shared.FieldError("kind", "must be one of sales, inventory, customers, suppliers")
	}
	if kind == KindSales {
		if days == 0 {
			days = defaultSalesDays
		}
		if days < 1 || days > maxSalesDays {
			return Report{}, shared.FieldError("days", fmt.Sprintf("must be between 1 and %d", maxSalesDays))
		}
	} else {
		days = 0
	}
	today := s.today()
	var out Report
	parts := []string{"report", string(kind), today.Format("2006-01-02"), strconv.Itoa(days)}
	err := s.load(ctx, &out, parts, func(ctx context.Context) (any, error) {
		return s.buildReport(ctx, kind, today, days)
	})
	return out, err
}

func (s *Service) buildReport(ctx context.Context, kind Kind, today time.Time, days int) (Report, error) {
	report := Report{Kind: kind, GeneratedAt: s.now()}
	switch kind {
	case KindSales:
		sales, err := s.salesReport(ctx, today, days)
		if err != nil {
			return Report{}, err
		}
		report.Sales = &sales
	case KindInventory:
		inventory, err := s.inventoryReport(ctx)
		if err != nil {
			return Report{}, err
		}
		report.Inventory = &inventory
	case KindCustomers:
		counts, err := s.repo.CustomerCounts(ctx)
		if err != nil {
			return Report{}, err
		}
		top, err := s.repo.TopCustomers(ctx, topLimit)
		if err != nil {
			return Report{}, err
		}
		report.Customers = &CustomerReport{Total: counts.Total, Active: counts.Active, Inactive: counts.Total - counts.Active, TopCustomers: top}
	case KindSuppliers:
		counts, err := s.repo.SupplierCounts(ctx)
		if err != nil {
			return Report{}, err
		}
		report.Suppliers = &SupplierReport{Total: counts.Total, Active: counts.Active, Inactive: counts.Total - counts.Active}
	}
	return report, nil
}

func (s *Service) salesReport(ctx context.Context, today time.Time, days int) (SalesReport, error) {
	to := today.AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)
	count, total, err := s.repo.SalesBetween(ctx, from, to)
	if err != nil {
		return SalesReport{}, err
	}
	top, err := s.repo.TopProductsByQuantity(ctx, from, topLimit)
	if err != nil {
		return SalesReport{}, err
	}
	average := decimal.Zero
	if count > 0 {
		average = total.Div(decimal.NewFromInt(int64(count))).Round(2)
	}
	return SalesReport{Days: days, From: from, To: to, OrderCount: count, Total: total, Average: average, TopProducts: top}, nil
}

func (s *Service) inventoryReport(ctx context.Context) (InventoryReport, error) {
	items, err := s.repo.StockItems(ctx)
	if err != nil {
		return InventoryReport{}, err
	}
	report := InventoryReport{
		ProductCount: len(items),
		Valuation:    decimal.Zero,
		Threshold:    s.threshold,
		OutOfStock:   []StockItem{},
		LowStock:     []StockItem{},
	}
	for _, item := range items {
		report.Valuation = report.Valuation.Add(item.Price.Mul(item.OnHand))
		if !item.Active {
			continue
		}
		switch {
		case !item.OnHand.IsPositive():
			report.OutOfStock = append(report.OutOfStock, item)
		case item.OnHand.LessThanOrEqual(s.threshold):
			report.LowStock = append(report.LowStock, item)
		}
	}
	report.Valuation = report.Valuation.Round(2)
	sort.SliceStable(report.LowStock, func(i, j int) bool {
		return report.LowStock[i].OnHand.LessThan(report.LowStock[j].OnHand)
	})
	return report, nil
}

// Warmup precomputes the summary, stock levels and every report into the cache.
func (s *Service) Warmup(ctx context.Context) (int, error) {
	warmed := 0
	if _, err := s.Summary(ctx); err != nil {
		return warmed, fmt.Errorf("dashboard: warm summary: %w", err)
	}
	warmed++
	if _, err := s.StockLevels(ctx); err != nil {
		return warmed, fmt.Errorf("dashboard: warm stock levels: %w", err)
	}
	warmed++
	for _, kind := range Kinds {
		if _, err := s.Report(ctx, kind, 0); err != nil {
			return warmed, fmt.Errorf("dashboard: warm %s report: %w", kind, err)
		}
		warmed++
	}
	return warmed, nil
}

func (s *Service) load(ctx context.Context, dest any, parts []string, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("dashboard: cache version", slog.Any("error", err))
		key = ""
	}
	flightKey := key
	if flightKey == "" {
		flightKey = "uncached:" + fmt.Sprint(parts)
	}
	resultChan := s.group.DoChan(flightKey, func() (any, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}
