package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/pkg/pagination"
)

// System defines the public contract for amendment event operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Event], error)

	Find(ctx context.Context, id uuid.UUID) (*Event, error)

	// Create validates a candidate event and appends it to the log.
	// Validation failures do not fail the call: the event is stored
	// with review_state rejected and a reason code.
	Create(ctx context.Context, cmd CreateCommand) (*Event, error)

	// Resolve records a human review decision for one event. The
	// decision is stored as a synthetic audit event alongside the
	// review state change.
	Resolve(ctx context.Context, id uuid.UUID, decision Decision) (*Event, error)

	// Applicable returns the applicable events targeting a norm with
	// effective date at or before asOf, in replay order: effective
	// date, then source publication date, then insertion sequence.
	Applicable(ctx context.Context, targetNormID uuid.UUID, asOf time.Time) ([]Event, error)
}
