package devices

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for device domain operations.
type System interface {
	Handler() *Handler

	Find(ctx context.Context, id uuid.UUID) (*Device, error)

	// ForNorm returns every device of a norm in document order:
	// parents before children, siblings by ordinal.
	ForNorm(ctx context.Context, normID uuid.UUID) ([]Device, error)

	// History returns the full version sequence of a device, oldest
	// first. Versions are append-only, so the sequence only grows.
	History(ctx context.Context, id uuid.UUID) ([]Version, error)
}
