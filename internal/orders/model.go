// Package orders is the order engine. It places orders against the catalog, reserving stock at
// placement, and drives orders through placed, processing, fulfilled and cancelled. Cancelling
// returns the reserved stock exactly once.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of an order.
type Status string

const (
	StatusPlaced     Status = "placed"
	StatusProcessing Status = "processing"
	StatusFulfilled  Status = "fulfilled"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPlaced:     {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusFulfilled, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusProcessing, StatusFulfilled, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

// CanTransition reports whether an order in from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is a customer order. Total always equals the sum of its line subtotals.
type Order struct {
	ID           int64           `json:"id"`
	Reference    string          `json:"reference"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	Status       Status          `json:"status"`
	Notes        string          `json:"notes"`
	Total        decimal.Decimal `json:"total"`
	Version      int64           `json:"version"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Lines        []Line          `json:"lines,omitempty"`
}

// Line is an order line. The unit price and product name are copied from the product when the
// line is created and never change afterwards.
type Line struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LotCode     string          `json:"lot_code"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Subtotal is quantity times unit price, unrounded.
func (l Line) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// SumLines totals the exact subtotals of lines and rounds once to cents.
func SumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status     Status
	CustomerID int64
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}
