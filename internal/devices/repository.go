package devices

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/pkg/query"
	"github.com/legisbr/consolida/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a device repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "devices"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Device, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDevice)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) ForNorm(ctx context.Context, normID uuid.UUID) ([]Device, error) {
	// Recursive walk preserves document order without relying on
	// span offsets surviving re-segmentation.
	q := `
		WITH RECURSIVE tree AS (
			SELECT d.*, ARRAY[d.ordinal] AS path
			FROM devices d
			WHERE d.norm_id = $1 AND d.parent_id IS NULL
			UNION ALL
			SELECT c.*, tree.path || c.ordinal
			FROM devices c
			JOIN tree ON c.parent_id = tree.id
		)
		SELECT id, norm_id, parent_id, kind, label, ordinal, span_start, span_end, created_at
		FROM tree
		ORDER BY path`

	ds, err := repository.QueryMany(ctx, r.db, q, []any{normID}, scanDevice)
	if err != nil {
		return nil, fmt.Errorf("query norm devices: %w", err)
	}
	return ds, nil
}

func (r *repo) History(ctx context.Context, id uuid.UUID) ([]Version, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	q := `
		SELECT id, device_id, effective_from, text, status, event_id, unverified, conflict_note, created_at
		FROM device_versions
		WHERE device_id = $1
		ORDER BY effective_from, created_at`

	vs, err := repository.QueryMany(ctx, r.db, q, []any{id}, scanVersion)
	if err != nil {
		return nil, fmt.Errorf("query device history: %w", err)
	}
	return vs, nil
}
