package catalog

import "github.com/shopspring/decimal"

// CreateProductRequest is the payload of POST /api/products.
type CreateProductRequest struct {
	Code        string          `json:"code" validate:"omitempty,max=32"`
	Name        string          `json:"name" validate:"required,max=200"`
	LotCode     string          `json:"lot_code" validate:"max=50"`
	Category    string          `json:"category" validate:"max=100"`
	Description string          `json:"description"`
	Unit        Unit            `json:"unit" validate:"omitempty,oneof=kg lb unit box"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	OnHand      decimal.Decimal `json:"on_hand"`
	Active      *bool           `json:"active"`
}

// UpdateProductRequest is the payload of PUT /api/products/{id}. Version must match the stored
// product.
type UpdateProductRequest struct {
	Version     int64           `json:"version" validate:"required,gt=0"`
	Name        string          `json:"name" validate:"required,max=200"`
	LotCode     string          `json:"lot_code" validate:"max=50"`
	Category    string          `json:"category" validate:"max=100"`
	Description string          `json:"description"`
	Unit        Unit            `json:"unit" validate:"required,oneof=kg lb unit box"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
}

// Stock adjustment operations.
const (
	OperationAdd    = "add"
	OperationRemove = "remove"
)

// AdjustStockRequest is a manual stock correction.
type AdjustStockRequest struct {
	Operation string          `json:"operation" validate:"required,oneof=add remove"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note" validate:"max=500"`
}

// Delta returns the signed change.
func (r AdjustStockRequest) Delta() decimal.Decimal {
	if r.Operation == OperationRemove {
		return r.Quantity.Neg()
	}
	return r.Quantity
}
