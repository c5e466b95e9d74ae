package norms

import (
	"context"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/segmentation"
	"github.com/legisbr/consolida/pkg/pagination"
)

// System defines the public contract for norm domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Norm], error)

	Find(ctx context.Context, id uuid.UUID) (*Norm, error)
	Create(ctx context.Context, cmd CreateCommand) (*Norm, error)

	// RawText returns the archived source text and its OCR confidence
	// map for the given norm.
	RawText(ctx context.Context, id uuid.UUID) (string, segmentation.ConfidenceMap, error)

	// Segment runs the device tree builder over the norm's raw text
	// and persists the resulting forest as version 0. A malformed
	// structure flags the norm needs_manual_segmentation and returns
	// an error wrapping ErrMalformed.
	Segment(ctx context.Context, id uuid.UUID) (*SegmentReport, error)

	// Transition moves the norm to the next pipeline status, enforcing
	// the closed transition set.
	Transition(ctx context.Context, id uuid.UUID, next Status) (*Norm, error)
}
