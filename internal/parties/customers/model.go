// Package customers is the customer registry. Customers are referenced by orders and can only be
// deleted while no order points at them.
package customers

import "time"

// Customer is a buyer identified by a unique RUT and email.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RUT       string    `json:"rut"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search string
	Active *bool
	Limit  int
	Offset int
}
