package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind names a report.
type Kind string

const (
	KindSales     Kind = "sales"
	KindInventory Kind = "inventory"
	KindCustomers Kind = "customers"
	KindSuppliers Kind = "suppliers"
)

// Kinds lists every report in menu order.
var Kinds = []Kind{KindSales, KindInventory, KindCustomers, KindSuppliers}

// Valid reports whether k names a known report.
func (k Kind) Valid() bool {
	switch k {
	case KindSales, KindInventory, KindCustomers, KindSuppliers:
		return true
	}
	return false
}

// Stock levels.
const (
	LevelOut = "out"
	LevelLow = "low"
	LevelOK  = "ok"
)

// Summary is the dashboard landing card set.
type Summary struct {
	GeneratedAt      time.Time       `json:"generated_at"`
	SalesToday       decimal.Decimal `json:"sales_today"`
	SalesYesterday   decimal.Decimal `json:"sales_yesterday"`
	SalesChange      decimal.Decimal `json:"sales_change"`
	PendingOrders    int             `json:"pending_orders"`
	ProcessingOrders int             `json:"processing_orders"`
	LowStockProducts int             `json:"low_stock_products"`
	TotalProducts    int             `json:"total_products"`
	ActiveProducts   int             `json:"active_products"`
	TotalCustomers   int             `json:"total_customers"`
	ActiveCustomers  int             `json:"active_customers"`
	MonthlySales     []MonthlySales  `json:"monthly_sales"`
	TopProducts      []ProductSales  `json:"top_products"`
}

// MonthlySales is the fulfilled order total for one calendar month (YYYY-MM).
type MonthlySales struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// ProductSales ranks products by revenue.
type ProductSales struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Sales     decimal.Decimal `json:"sales"`
}

// ProductQuantity ranks products by quantity sold.
type ProductQuantity struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// StockItem is the slice of a product the readers need.
type StockItem struct {
	ProductID int64           `json:"product_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Active    bool            `json:"active"`
}

// StockLevel classifies an active product against the low-stock threshold.
type StockLevel struct {
	StockItem
	Threshold          decimal.Decimal `json:"threshold"`
	PercentOfThreshold decimal.Decimal `json:"percent_of_threshold"`
	Level              string          `json:"level"`
}

// PartyCounts holds registry totals.
type PartyCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// CustomerSpend ranks customers by fulfilled order value.
type CustomerSpend struct {
	CustomerID int64           `json:"customer_id"`
	Name       string          `json:"name"`
	Orders     int             `json:"orders"`
	Spent      decimal.Decimal `json:"spent"`
}

// SalesReport covers fulfilled orders created in the last Days days.
type SalesReport struct {
	Days        int               `json:"days"`
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	OrderCount  int               `json:"order_count"`
	Total       decimal.Decimal   `json:"total"`
	Average     decimal.Decimal   `json:"average"`
	TopProducts []ProductQuantity `json:"top_products"`
}

// InventoryReport values the catalog.
type InventoryReport struct {
	ProductCount int             `json:"product_count"`
	Valuation    decimal.Decimal `json:"valuation"`
	Threshold    decimal.Decimal `json:"threshold"`
	OutOfStock   []StockItem     `json:"out_of_stock"`
	LowStock     []StockItem     `json:"low_stock"`
}

// CustomerReport summarises the customer registry.
type CustomerReport struct {
	Total        int             `json:"total"`
	Active       int             `json:"active"`
	Inactive     int             `json:"inactive"`
	TopCustomers []CustomerSpend `json:"top_customers"`
}

// SupplierReport summarises the supplier registry.
type SupplierReport struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// Report carries exactly one of the report bodies, selected by Kind.
type Report struct {
	Kind        Kind             `json:"kind"`
	GeneratedAt time.Time        `json:"generated_at"`
	Sales       *SalesReport     `json:"sales,omitempty"`
	Inventory   *InventoryReport `json:"inventory,omitempty"`
	Customers   *CustomerReport  `json:"customers,omitempty"`
	Suppliers   *SupplierReport  `json:"suppliers,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// PercentChange returns the change from previous to current in percent, rounded to 2 places.
// A zero previous value yields zero instead of dividing by it.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// Classify returns the stock level of onHand and its share of threshold in percent.
func Classify(onHand, threshold decimal.Decimal) (string, decimal.Decimal) {
	percent := decimal.Zero
	if threshold.IsPositive() {
		percent = onHand.Div(threshold).Mul(hundred).Round(2)
	}
	switch {
	case !onHand.IsPositive():
		return LevelOut, percent
	case onHand.LessThanOrEqual(threshold):
		return LevelLow, percent
	default:
		return LevelOK, percent
	}
}
