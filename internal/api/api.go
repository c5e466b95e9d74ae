// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/legisbr/consolida/internal/config"
	"github.com/legisbr/consolida/internal/infrastructure"
	"github.com/legisbr/consolida/pkg/middleware"
	"github.com/legisbr/consolida/pkg/module"
	"github.com/legisbr/consolida/pkg/openapi"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	specBytes, err := buildSpec(cfg)
	if err != nil {
		return nil, err
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
