package api

import (
	"github.com/legisbr/consolida/internal/consolidation"
	"github.com/legisbr/consolida/internal/devices"
	"github.com/legisbr/consolida/internal/events"
	"github.com/legisbr/consolida/internal/locks"
	"github.com/legisbr/consolida/internal/norms"
	"github.com/legisbr/consolida/internal/retrieval"
	"github.com/legisbr/consolida/internal/segmentation"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Norms         norms.System
	Devices       devices.System
	Events        events.System
	Consolidation consolidation.System
}

// NewDomain creates all domain systems from the API runtime. The lock
// registry is shared between the event system and the consolidation
// engine so replay and review-state changes serialize per norm.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	registry := locks.New()

	index := retrieval.New(db, runtime.Notify, runtime.Logger)

	builder := segmentation.NewBuilder(
		runtime.Consolidation.OCRThreshold,
		runtime.Logger,
	)

	normSystem := norms.New(
		db,
		runtime.Storage,
		builder,
		index,
		runtime.Logger,
		runtime.Pagination,
	)

	deviceSystem := devices.New(db, runtime.Logger)

	eventSystem := events.New(
		db,
		registry,
		runtime.Consolidation.ConfidenceThreshold,
		runtime.Logger,
		runtime.Pagination,
	)

	consolidationSystem := consolidation.New(
		db,
		normSystem,
		deviceSystem,
		eventSystem,
		registry,
		index,
		consolidation.Policy(runtime.Consolidation.ConflictPolicy),
		runtime.Consolidation.BatchConcurrency,
		runtime.Logger,
	)

	return &Domain{
		Norms:         normSystem,
		Devices:       deviceSystem,
		Events:        eventSystem,
		Consolidation: consolidationSystem,
	}
}
