// Command seed loads demo data for local development: a seafood catalog, customers,
// suppliers, HACCP control points and a handful of orders in every status.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/seafood-erp/seafood-erp/internal/app"
	"github.com/seafood-erp/seafood-erp/internal/catalog"
	"github.com/seafood-erp/seafood-erp/internal/orders"
	"github.com/seafood-erp/seafood-erp/internal/parties/customers"
	"github.com/seafood-erp/seafood-erp/internal/parties/suppliers"
	"github.com/seafood-erp/seafood-erp/internal/platform/db"
	"github.com/seafood-erp/seafood-erp/internal/quality"
	"github.com/seafood-erp/seafood-erp/internal/shared"
)

type productSeed struct {
	name     string
	category string
	unit     catalog.Unit
	price    string
	cost     string
	onHand   string
	lot      string
}

var productSeeds = []productSeed{
	{"Salmon fillet", "fish", catalog.UnitKilogram, "12.50", "8.10", "120", "LOT-SAL-0324"},
	{"Chilean sea bass", "fish", catalog.UnitKilogram, "28.90", "19.00", "35", "LOT-BAS-0324"},
	{"Hake", "fish", catalog.UnitKilogram, "7.90", "4.20", "60", "LOT-HAK-0324"},
	{"Mussels", "shellfish", catalog.UnitKilogram, "3.00", "1.40", "8", "LOT-MUS-0324"},
	{"Oysters (dozen)", "shellfish", catalog.UnitBox, "20.00", "11.50", "14", "LOT-OYS-0324"},
	{"King crab legs", "shellfish", catalog.UnitKilogram, "45.00", "31.00", "6", "LOT-CRB-0324"},
	{"Squid rings", "cephalopods", catalog.UnitPound, "6.40", "3.10", "40", "LOT-SQD-0324"},
	{"Octopus", "cephalopods", catalog.UnitKilogram, "18.00", "12.20", "0", "LOT-OCT-0324"},
}

var customerSeeds = []customers.CreateCustomerRequest{
	{Name: "Marisquería Puerto", RUT: "76.123.456-0", Email: "compras@marisqueriapuerto.cl", Phone: "+56 32 221 0000", Address: "Av. Altamirano 1480, Valparaíso"},
	{Name: "Restaurante Caleta Sur", RUT: "77.890.123-4", Email: "pedidos@caletasur.cl", Phone: "+56 41 245 1122", Address: "Los Carrera 350, Concepción"},
	{Name: "Hotel Pacífico", RUT: "96.543.210-8", Email: "cocina@hotelpacifico.cl", Address: "Av. del Mar 5100, La Serena"},
	{Name: "Ana Rojas", RUT: "12.345.678-5", Email: "ana.rojas@example.cl"},
}

var supplierSeeds = []suppliers.SupplierRequest{
	{Name: "Pesquera Austral", RUT: "78.456.789-3", Email: "ventas@pesqueraaustral.cl", Contact: "Jorge Muñoz", Notes: "Salmon and sea bass, Puerto Montt"},
	{Name: "Cultivos Chiloé", RUT: "76.543.219-7", Email: "contacto@cultivoschiloe.cl", Contact: "Paula Vera", Notes: "Mussels and oysters"},
	{Name: "Frigorífico Norte", RUT: "79.112.233-3", Email: "frio@frigorificonorte.cl", Contact: "Luis Soto"},
}

var controlPointSeeds = []quality.ControlPointRequest{
	{Name: "Reception temperature", Description: "Core temperature of fresh product on arrival", CriticalLimit: "<= 4 °C", CorrectiveAction: "Reject the lot and notify the supplier"},
	{Name: "Cold storage", Description: "Chamber temperature checked every shift", CriticalLimit: "0 to 2 °C", CorrectiveAction: "Move product to the backup chamber and call maintenance"},
	{Name: "Histamine", Description: "Histamine test on scombroid species", CriticalLimit: "< 50 ppm", CorrectiveAction: "Hold and destroy the affected lot"},
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{ID: "seed"})

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: 4})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if _, err := db.Migrate(ctx, pool, logger); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	var existing int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&existing); err != nil {
		logger.Error("count products", slog.Any("error", err))
		os.Exit(1)
	}
	if existing > 0 {
		logger.Info("products already present, skipping seed", slog.Int("products", existing))
		return
	}

	audit := shared.NewAuditLogger(pool)
	catalogService := catalog.NewService(catalog.NewRepository(pool), nil, audit, logger)
	customerService := customers.NewService(customers.NewRepository(pool), audit, logger)
	supplierService := suppliers.NewService(suppliers.NewRepository(pool), audit, logger)
	qualityService := quality.NewService(quality.NewRepository(pool), catalogService, audit, logger)
	orderService := orders.NewService(orders.NewRepository(pool), orders.Dependencies{Audit: audit, Logger: logger}, orders.ServiceConfig{})

	fmt.Println("→ Seeding catalog...")
	products := make([]catalog.Product, 0, len(productSeeds))
	for _, seed := range productSeeds {
		p, err := catalogService.Create(ctx, catalog.CreateProductRequest{
			Name:     seed.name,
			Category: seed.category,
			Unit:     seed.unit,
			LotCode:  seed.lot,
			Price:    decimal.RequireFromString(seed.price),
			Cost:     decimal.RequireFromString(seed.cost),
			OnHand:   decimal.RequireFromString(seed.onHand),
		})
		if err != nil {
			fail(logger, "create product "+seed.name, err)
		}
		products = append(products, p)
	}

	fmt.Println("→ Seeding customers...")
	clients := make([]customers.Customer, 0, len(customerSeeds))
	for _, req := range customerSeeds {
		c, err := customerService.Create(ctx, req)
		if err != nil {
			fail(logger, "create customer "+req.Name, err)
		}
		clients = append(clients, c)
	}

	fmt.Println("→ Seeding suppliers...")
	for _, req := range supplierSeeds {
		if _, err := supplierService.Create(ctx, req); err != nil {
			fail(logger, "create supplier "+req.Name, err)
		}
	}

	fmt.Println("→ Seeding HACCP control points...")
	points := make([]quality.ControlPoint, 0, len(controlPointSeeds))
	for _, req := range controlPointSeeds {
		cp, err := qualityService.CreateControlPoint(ctx, req)
		if err != nil {
			fail(logger, "create control point "+req.Name, err)
		}
		points = append(points, cp)
	}
	if _, err := qualityService.CreateRecord(ctx, quality.CreateRecordRequest{
		ProductID: products[0].ID, ControlPointID: points[0].ID, MeasuredValue: "2.8 °C", Status: string(quality.RecordConforming),
	}); err != nil {
		fail(logger, "create quality record", err)
	}
	if _, err := qualityService.OpenIncident(ctx, quality.CreateIncidentRequest{
		ProductID: products[3].ID, Title: "Broken cold chain on delivery", Description: "Truck arrived at 9 °C", Severity: string(quality.SeverityHigh),
	}); err != nil {
		fail(logger, "open incident", err)
	}

	fmt.Println("→ Seeding orders...")
	plan := []struct {
		customer int
		lines    map[int]string
		path     []orders.Status
	}{
		{0, map[int]string{0: "10", 3: "2"}, []orders.Status{orders.StatusProcessing, orders.StatusFulfilled}},
		{1, map[int]string{1: "3.5"}, []orders.Status{orders.StatusProcessing, orders.StatusFulfilled}},
		{2, map[int]string{4: "4", 6: "6"}, []orders.Status{orders.StatusProcessing}},
		{3, map[int]string{2: "1.5"}, nil},
		{0, map[int]string{5: "1"}, []orders.Status{orders.StatusCancelled}},
	}
	for i, step := range plan {
		req := orders.CreateOrderRequest{CustomerID: clients[step.customer].ID, Notes: fmt.Sprintf("seed order %d", i+1)}
		for idx, qty := range step.lines {
			req.Lines = append(req.Lines, orders.LineRequest{ProductID: products[idx].ID, Quantity: decimal.RequireFromString(qty)})
		}
		order, err := orderService.CreateOrder(ctx, req)
		if err != nil {
			fail(logger, "create order", err)
		}
		for _, next := range step.path {
			if _, err := orderService.TransitionStatus(ctx, order.ID, next); err != nil {
				fail(logger, "transition order "+order.Reference, err)
			}
		}
	}

	fmt.Println("✓ Seed complete")
}

func fail(logger *slog.Logger, step string, err error) {
	logger.Error("seed failed", slog.String("step", step), slog.Any("error", err))
	os.Exit(1)
}
