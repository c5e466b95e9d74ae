package api

import (
	"net/http"

	"github.com/legisbr/consolida/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	storage := newStorageHandler(runtime.Storage, runtime.Logger)

	routes.Register(
		mux,
		domain.Norms.Handler().Routes(),
		domain.Devices.Handler().Routes(),
		domain.Events.Handler().Routes(),
		domain.Consolidation.Handler().Routes(),
		storage.routes(),
	)
}
