// Package router sets up HTTP routes for the UI server.
package router

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/memristor/internal/ui/features/common"
	previewFeature "github.com/leapstack-labs/memristor/internal/ui/features/preview"
	runsFeature "github.com/leapstack-labs/memristor/internal/ui/features/runs"
	treeFeature "github.com/leapstack-labs/memristor/internal/ui/features/tree"
	"github.com/leapstack-labs/memristor/internal/ui/resources"
)

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps common.Deps) error {
	// Hot reload endpoint for dev mode
	if deps.IsDev {
		setupReload(router)
	}

	router.Handle("/static/*", resources.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Feature routes
	if err := previewFeature.SetupRoutes(router, deps); err != nil {
		return err
	}

	if err := treeFeature.SetupRoutes(router, deps); err != nil {
		return err
	}

	if err := runsFeature.SetupRoutes(router, deps); err != nil {
		return err
	}

	return nil
}

// setupReload reloads open pages once after a server restart and again on
// every GET /hotreload.
func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
