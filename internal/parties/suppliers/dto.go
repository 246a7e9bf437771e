package suppliers

// SupplierRequest is the payload for creating or replacing a supplier.
type SupplierRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	RUT     string `json:"rut" validate:"required,rut"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=500"`
	Contact string `json:"contact" validate:"max=100"`
	Notes   string `json:"notes"`
}
