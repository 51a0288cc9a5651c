package tree

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/memristor/internal/ui/features/common"
)

// SetupRoutes registers the tree feature routes.
func SetupRoutes(router chi.Router, deps common.Deps) error {
	handlers := NewHandlers(deps)

	router.Route("/api/tree", func(r chi.Router) {
		r.Get("/", handlers.Rows)
		r.Post("/{id}/toggle", handlers.Toggle)
	})
	router.Post("/api/open", handlers.Open)

	return nil
}
