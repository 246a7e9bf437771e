package orders

import "github.com/shopspring/decimal"

// LineRequest asks for quantity of a product.
type LineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity"`
	LotCode   string          `json:"lot_code" validate:"max=50"`
	Notes     string          `json:"notes" validate:"max=500"`
}

// CreateOrderRequest is the payload of POST /api/orders.
type CreateOrderRequest struct {
	CustomerID int64         `json:"customer_id" validate:"required,gt=0"`
	Lines      []LineRequest `json:"lines" validate:"required,min=1,dive"`
	Notes      string        `json:"notes" validate:"max=2000"`
	// IdempotencyKey comes from the Idempotency-Key header.
	IdempotencyKey string `json:"-" validate:"max=120"`
}

// TransitionRequest is the payload of POST /api/orders/{id}/status. OrderID is optional and must
// match the path when present.
type TransitionRequest struct {
	OrderID   int64  `json:"order_id"`
	NewStatus Status `json:"new_status" validate:"required"`
}
