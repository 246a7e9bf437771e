// Package suppliers is the supplier registry.
package suppliers

import "time"

// Supplier is a vendor of product, identified by a unique RUT and email.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RUT       string    `json:"rut"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Contact   string    `json:"contact"`
	Notes     string    `json:"notes"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows supplier listings.
type ListFilter struct {
	Search string
	Active *bool
	Limit  int
	Offset int
}
