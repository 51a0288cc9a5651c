package preview

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/memristor/internal/ui/features/common"
)

// SetupRoutes registers the preview feature routes.
func SetupRoutes(router chi.Router, deps common.Deps) error {
	handlers := NewHandlers(deps)

	// Page routes
	router.Get("/", handlers.PreviewPage)
	router.Get("/updates", handlers.PreviewUpdates)
	router.Get("/pages/{cycle}/{name}", handlers.ServePage)

	// Actions
	router.Post("/api/preview", handlers.RequestPreview)

	return nil
}
