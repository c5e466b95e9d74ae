package consolidation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Report summarizes one consolidation run for one norm.
type Report struct {
	NormID          uuid.UUID  `json:"norm_id"`
	AsOf            time.Time  `json:"as_of"`
	LatencyPeriod   bool       `json:"latency_period"`
	EventsApplied   int        `json:"events_applied"`
	DevicesInserted int        `json:"devices_inserted"`
	VersionsCreated int        `json:"versions_created"`
	Conflicts       []Conflict `json:"conflicts,omitempty"`
}

// BatchReport summarizes a batch run over all consolidatable norms.
// Failures are scoped per norm; one bad norm never fails the batch.
type BatchReport struct {
	Norms     int                  `json:"norms"`
	Succeeded int                  `json:"succeeded"`
	Failures  map[uuid.UUID]string `json:"failures,omitempty"`
}

// System defines the public contract for consolidation operations.
type System interface {
	Handler() *Handler

	// Consolidate replays the applicable event log for one norm up to
	// asOf, materializing new device versions. Replay for one norm is
	// atomic and serialized; re-runs over the same log are idempotent.
	Consolidate(ctx context.Context, normID uuid.UUID, asOf time.Time) (*Report, error)

	// Project renders the norm's consolidated tree as of the given
	// date. Read-only; a projection is always derived, never stored.
	Project(ctx context.Context, normID uuid.UUID, asOf time.Time) (*Tree, error)

	// ConsolidateAll runs Consolidate for every norm with a device
	// tree, bounded by the configured concurrency. Cancellation takes
	// effect between norms, never mid-replay.
	ConsolidateAll(ctx context.Context) (*BatchReport, error)
}
