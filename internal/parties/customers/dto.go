package customers

// CreateCustomerRequest is the payload of POST /api/customers.
type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	RUT     string `json:"rut" validate:"required,rut"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=500"`
}

// UpdateCustomerRequest replaces the editable fields of a customer.
type UpdateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	RUT     string `json:"rut" validate:"required,rut"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=500"`
}
