package items

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the listing routes with the Chi router
func RegisterRoutes(r chi.Router, handler *ItemHandler) {
	r.Route("/secondchance/items", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
	})
}
