package runs

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/memristor/internal/ui/features/common"
)

// SetupRoutes registers the compile history feature routes.
func SetupRoutes(router chi.Router, deps common.Deps) error {
	handlers := NewHandlers(deps)

	router.Get("/runs", handlers.RunsPage)
	router.Get("/runs/updates", handlers.RunsPageUpdates)
	router.Get("/api/runs", handlers.ListRuns)

	return nil
}
