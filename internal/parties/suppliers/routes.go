package suppliers

import "github.com/go-chi/chi/v5"

// MountRoutes registers supplier routes relative to /api/suppliers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/activate", h.SetActive(true))
	r.Post("/{id}/deactivate", h.SetActive(false))
}
