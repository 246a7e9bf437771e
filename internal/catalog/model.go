package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the unit of measure a product is sold in.
type Unit string

const (
	UnitKilogram Unit = "kg"
	UnitPound    Unit = "lb"
	UnitPiece    Unit = "unit"
	UnitBox      Unit = "box"
)

// MaxAmount is the largest value a NUMERIC(12,2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitKilogram, UnitPound, UnitPiece, UnitBox:
		return true
	}
	return false
}

// Product is a sellable catalog item. OnHand never goes below zero.
type Product struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	LotCode     string          `json:"lot_code,omitempty"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Unit        Unit            `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	OnHand      decimal.Decimal `json:"on_hand"`
	Active      bool            `json:"active"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Margin returns the gross margin percentage over price, zero when price is zero.
func (p Product) Margin() decimal.Decimal {
	if p.Price.IsZero() {
		return decimal.Zero
	}
	return p.Price.Sub(p.Cost).Div(p.Price).Mul(decimal.NewFromInt(100)).Round(2)
}

// MovementReason classifies entries of the stock ledger.
type MovementReason string

const (
	ReasonInitial      MovementReason = "initial"
	ReasonManualIn     MovementReason = "manual_in"
	ReasonManualOut    MovementReason = "manual_out"
	ReasonOrderReserve MovementReason = "order_reserve"
	ReasonOrderRelease MovementReason = "order_release"
)

// Movement is one stock_movements ledger row. Balance is on-hand after the change.
type Movement struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Delta     decimal.Decimal `json:"delta"`
	Balance   decimal.Decimal `json:"balance"`
	Reason    MovementReason  `json:"reason"`
	RefModule string          `json:"ref_module,omitempty"`
	RefID     string          `json:"ref_id,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search   string
	Category string
	Active   *bool
	// AtOrBelow keeps products whose on-hand is at or below the value.
	AtOrBelow *decimal.Decimal
	Limit     int
	Offset    int
}
