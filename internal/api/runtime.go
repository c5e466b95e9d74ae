package api

import (
	"github.com/legisbr/consolida/internal/config"
	"github.com/legisbr/consolida/internal/infrastructure"
	"github.com/legisbr/consolida/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination    pagination.Config
	Consolidation config.ConsolidationConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Notify:    infra.Notify,
		},
		Pagination:    cfg.API.Pagination,
		Consolidation: cfg.Consolidation,
	}
}
