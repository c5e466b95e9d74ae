package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/locks"
	"github.com/legisbr/consolida/pkg/pagination"
	"github.com/legisbr/consolida/pkg/query"
	"github.com/legisbr/consolida/pkg/repository"
)

type repo struct {
	db                  *sql.DB
	locks               *locks.Registry
	confidenceThreshold float64
	logger              *slog.Logger
	pagination          pagination.Config
}

// New creates an amendment event repository implementing the System
// interface. The lock registry must be shared with the consolidation
// engine: review state for a norm's events never changes while that
// norm's replay is in progress.
func New(
	db *sql.DB,
	registry *locks.Registry,
	confidenceThreshold float64,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:                  db,
		locks:               registry,
		confidenceThreshold: confidenceThreshold,
		logger:              logger.With("system", "events"),
		pagination:          pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Event], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	evs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	result := pagination.NewPageResult(evs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Event, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	e, err := repository.QueryOne(ctx, r.db, q, args, scanEvent)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &e, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Event, error) {
	v, err := r.validate(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	payload, err := json.Marshal(cmd.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode event payload: %w", err)
	}

	var e Event

	// The target norm's lock guards the review state: an event must
	// not become auto_applied while that norm's replay is running.
	err = r.locks.WithLock(ctx, cmd.TargetNormID, func() error {
		q := fmt.Sprintf(`
			INSERT INTO amendment_events(id, source_norm_id, target_norm_id, target_device_id, action, effective_date, payload, extraction_confidence, review_state, reject_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING %s`, eventColumns)

		insertArgs := []any{
			uuid.New(),
			cmd.SourceNormID,
			cmd.TargetNormID,
			cmd.TargetDeviceID,
			string(cmd.Action),
			cmd.EffectiveDate,
			payload,
			cmd.ExtractionConfidence,
			string(v.state),
			v.reason,
		}

		created, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Event, error) {
			return repository.QueryOne(ctx, tx, q, insertArgs, scanEvent)
		})
		if err != nil {
			return repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		e = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("event recorded",
		"id", e.ID,
		"action", e.Action,
		"target_norm_id", e.TargetNormID,
		"review_state", e.ReviewState,
	)
	return &e, nil
}

func (r *repo) Resolve(ctx context.Context, id uuid.UUID, decision Decision) (*Event, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	e, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.Synthetic {
		return nil, ErrSynthetic
	}

	switch e.ReviewState {
	case ReviewRejected, ReviewAppliedManual:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyResolved, e.ReviewState)
	}

	next := ReviewAppliedManual
	if decision == DecisionReject {
		next = ReviewRejected
	}

	auditPayload, err := json.Marshal(map[string]string{"decision": string(decision)})
	if err != nil {
		return nil, fmt.Errorf("encode audit payload: %w", err)
	}

	var resolved Event

	err = r.locks.WithLock(ctx, e.TargetNormID, func() error {
		updated, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Event, error) {
			q := fmt.Sprintf(`
				UPDATE amendment_events SET review_state = $2
				WHERE id = $1
				RETURNING %s`, eventColumns)

			updated, err := repository.QueryOne(ctx, tx, q, []any{id, string(next)}, scanEvent)
			if err != nil {
				return updated, err
			}

			// The decision itself joins the audit log as a synthetic
			// event referencing the one it resolves.
			_, err = tx.ExecContext(
				ctx,
				`INSERT INTO amendment_events(id, source_norm_id, target_norm_id, target_device_id, action, effective_date, payload, extraction_confidence, review_state, synthetic, resolves_event_id)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, 1.0, $8, TRUE, $9)`,
				uuid.New(),
				e.SourceNormID,
				e.TargetNormID,
				e.TargetDeviceID,
				string(e.Action),
				e.EffectiveDate,
				auditPayload,
				string(next),
				id,
			)
			return updated, err
		})
		if err != nil {
			return repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		resolved = updated
		return nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("event resolved",
		"id", id,
		"decision", decision,
		"review_state", resolved.ReviewState,
	)
	return &resolved, nil
}

func (r *repo) Applicable(ctx context.Context, targetNormID uuid.UUID, asOf time.Time) ([]Event, error) {
	// Replay order: effective date, then the amending norm's
	// publication date, then insertion sequence. Deterministic for
	// identical inputs.
	q := `
		SELECT e.id, e.source_norm_id, e.target_norm_id, e.target_device_id, e.action, e.effective_date, e.payload, e.extraction_confidence, e.review_state, e.reject_reason, e.synthetic, e.resolves_event_id, e.sequence, e.created_at
		FROM amendment_events e
		JOIN norms s ON s.id = e.source_norm_id
		WHERE e.target_norm_id = $1
		  AND e.review_state IN ('auto_applied', 'applied_manual')
		  AND e.synthetic = FALSE
		  AND e.effective_date <= $2
		ORDER BY e.effective_date, s.publication_date NULLS LAST, e.sequence`

	evs, err := repository.QueryMany(ctx, r.db, q, []any{targetNormID, asOf}, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query applicable events: %w", err)
	}
	return evs, nil
}
