package consolidation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/legisbr/consolida/internal/devices"
	"github.com/legisbr/consolida/internal/events"
	"github.com/legisbr/consolida/internal/locks"
	"github.com/legisbr/consolida/internal/norms"
	"github.com/legisbr/consolida/internal/retrieval"
	"github.com/legisbr/consolida/pkg/repository"
)

type engine struct {
	db          *sql.DB
	norms       norms.System
	devices     devices.System
	events      events.System
	locks       *locks.Registry
	index       retrieval.Index
	policy      Policy
	concurrency int
	logger      *slog.Logger
}

// New creates the consolidation engine. The lock registry must be the
// instance shared with the event system: replay and review-state
// transitions for one norm serialize on the same lock.
func New(
	db *sql.DB,
	normSys norms.System,
	deviceSys devices.System,
	eventSys events.System,
	registry *locks.Registry,
	index retrieval.Index,
	policy Policy,
	concurrency int,
	logger *slog.Logger,
) System {
	return &engine{
		db:          db,
		norms:       normSys,
		devices:     deviceSys,
		events:      eventSys,
		locks:       registry,
		index:       index,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger.With("system", "consolidation"),
	}
}

func (e *engine) Handler() *Handler {
	return NewHandler(e, e.logger)
}

func (e *engine) Consolidate(ctx context.Context, normID uuid.UUID, asOf time.Time) (*Report, error) {
	n, err := e.norms.Find(ctx, normID)
	if err != nil {
		return nil, err
	}

	if !hasTree(n.Status) {
		return nil, fmt.Errorf("%w: status %s", ErrNotSegmented, n.Status)
	}

	report := &Report{NormID: normID, AsOf: asOf}

	// Latency gate: a norm that is not yet binding at asOf renders as
	// version 0 and takes no amendments.
	if n.EffectiveDate != nil && asOf.Before(*n.EffectiveDate) {
		report.LatencyPeriod = true
		return report, nil
	}

	var units []retrieval.Unit

	err = e.locks.WithLock(ctx, normID, func() error {
		evs, err := e.events.Applicable(ctx, normID, asOf)
		if err != nil {
			return err
		}

		ds, err := e.devices.ForNorm(ctx, normID)
		if err != nil {
			return err
		}

		result := Replay(Input{
			NormID:  normID,
			Devices: ds,
			Events:  evs,
			Policy:  e.policy,
		})

		report.EventsApplied = len(evs)
		report.Conflicts = result.Conflicts

		units, err = e.apply(ctx, ds, result, report)
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("consolidate norm %s: %w", normID, err)
	}

	// Index upkeep after the replay transaction commits.
	for _, u := range units {
		e.index.DeviceVersionCreated(ctx, u)
	}

	if _, err := e.norms.Transition(ctx, normID, norms.StatusConsolidated); err != nil {
		// The materialized versions stand either way; the status row
		// catches up on the next run.
		if !errors.Is(err, norms.ErrInvalidTransition) {
			e.logger.Warn("status transition after consolidation failed", "norm_id", normID, "error", err)
		}
	}

	e.logger.Info("norm consolidated",
		"norm_id", normID,
		"as_of", asOf.Format(time.DateOnly),
		"events", report.EventsApplied,
		"versions_created", report.VersionsCreated,
		"conflicts", len(report.Conflicts),
	)
	return report, nil
}

// apply reconciles a replay result against stored state in one
// transaction. Deterministic identifiers make the inserts idempotent:
// already-materialized devices and versions no-op.
func (e *engine) apply(
	ctx context.Context,
	existing []devices.Device,
	result *Result,
	report *Report,
) ([]retrieval.Unit, error) {
	labels := make(map[uuid.UUID]string, len(existing))
	parents := make(map[uuid.UUID]*uuid.UUID, len(existing))

	for _, d := range existing {
		labels[d.ID] = d.Label
		parents[d.ID] = d.ParentID
	}
	for _, d := range result.NewDevices {
		labels[d.ID] = d.Label
		parents[d.ID] = d.ParentID
	}
	for _, rl := range result.Relabels {
		labels[rl.DeviceID] = rl.Label
	}

	var units []retrieval.Unit

	_, err := repository.WithTx(ctx, e.db, func(tx *sql.Tx) (struct{}, error) {
		for _, d := range result.NewDevices {
			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO devices(id, norm_id, parent_id, kind, label, ordinal, span_start, span_end)
				 VALUES ($1, $2, $3, $4, $5, $6, 0, 0)
				 ON CONFLICT (id) DO NOTHING`,
				d.ID, d.NormID, d.ParentID, string(d.Kind), d.Label, d.Ordinal,
			)
			if err != nil {
				return struct{}{}, err
			}
			if n, _ := res.RowsAffected(); n == 1 {
				report.DevicesInserted++
			}
		}

		for id, ordinal := range result.Ordinals {
			if _, err := tx.ExecContext(
				ctx,
				"UPDATE devices SET ordinal = $2 WHERE id = $1",
				id, ordinal,
			); err != nil {
				return struct{}{}, err
			}
		}

		for _, rl := range result.Relabels {
			if _, err := tx.ExecContext(
				ctx,
				"UPDATE devices SET label = $2 WHERE id = $1",
				rl.DeviceID, rl.Label,
			); err != nil {
				return struct{}{}, err
			}
		}

		for _, v := range result.NewVersions {
			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO device_versions(id, device_id, effective_from, text, status, event_id, unverified, conflict_note)
				 VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
				 ON CONFLICT (id) DO NOTHING`,
				v.ID, v.DeviceID, v.EffectiveFrom, v.Text, string(v.Status), v.EventID, v.ConflictNote,
			)
			if err != nil {
				return struct{}{}, err
			}

			n, _ := res.RowsAffected()
			if n != 1 {
				continue
			}

			report.VersionsCreated++
			units = append(units, retrieval.Unit{
				NormID:        report.NormID,
				DeviceID:      v.DeviceID,
				VersionID:     v.ID,
				DevicePath:    renderPath(labels, parents, v.DeviceID),
				Text:          v.Text,
				Status:        string(v.Status),
				EffectiveFrom: v.EffectiveFrom,
			})
		}

		return struct{}{}, nil
	})

	return units, err
}

func (e *engine) Project(ctx context.Context, normID uuid.UUID, asOf time.Time) (*Tree, error) {
	n, err := e.norms.Find(ctx, normID)
	if err != nil {
		return nil, err
	}

	if !hasTree(n.Status) {
		return nil, fmt.Errorf("%w: status %s", ErrNotSegmented, n.Status)
	}

	ds, err := e.devices.ForNorm(ctx, normID)
	if err != nil {
		return nil, err
	}

	versions, err := e.allVersions(ctx, normID)
	if err != nil {
		return nil, err
	}

	return Project(ProjectionInput{
		NormID:        normID,
		AsOf:          asOf,
		LatencyPeriod: n.EffectiveDate != nil && asOf.Before(*n.EffectiveDate),
		Devices:       ds,
		Versions:      versions,
	}), nil
}

func (e *engine) ConsolidateAll(ctx context.Context) (*BatchReport, error) {
	ids, err := e.consolidatableNorms(ctx)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{
		Norms:    len(ids),
		Failures: make(map[uuid.UUID]string),
	}

	var mu sync.Mutex
	now := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, id := range ids {
		// Cooperative cancellation between norms; a replay already
		// underway runs to completion.
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if _, err := e.Consolidate(gctx, id, now); err != nil {
				mu.Lock()
				report.Failures[id] = err.Error()
				mu.Unlock()
				return nil
			}

			mu.Lock()
			report.Succeeded++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("batch consolidation complete",
		"norms", report.Norms,
		"succeeded", report.Succeeded,
		"failed", len(report.Failures),
	)
	return report, nil
}

func hasTree(s norms.Status) bool {
	switch s {
	case norms.StatusSegmented, norms.StatusEventsExtracted, norms.StatusConsolidated:
		return true
	}
	return false
}

// allVersions loads the full version history for every device of the
// norm, keyed by device.
func (e *engine) allVersions(ctx context.Context, normID uuid.UUID) (map[uuid.UUID][]devices.Version, error) {
	rows, err := e.db.QueryContext(
		ctx,
		`SELECT v.id, v.device_id, v.effective_from, v.text, v.status, v.event_id, v.unverified, v.conflict_note, v.created_at
		 FROM device_versions v
		 JOIN devices d ON d.id = v.device_id
		 WHERE d.norm_id = $1
		 ORDER BY v.effective_from, v.created_at`,
		normID,
	)
	if err != nil {
		return nil, fmt.Errorf("query version history: %w", err)
	}
	defer rows.Close()

	versions := make(map[uuid.UUID][]devices.Version)
	for rows.Next() {
		v, err := scanEngineVersion(rows)
		if err != nil {
			return nil, err
		}
		versions[v.DeviceID] = append(versions[v.DeviceID], v)
	}
	return versions, rows.Err()
}

func (e *engine) consolidatableNorms(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := e.db.QueryContext(
		ctx,
		`SELECT id FROM norms
		 WHERE status IN ('segmented', 'events_extracted', 'consolidated')
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query consolidatable norms: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEngineVersion(rows *sql.Rows) (devices.Version, error) {
	var v devices.Version
	var status string

	err := rows.Scan(
		&v.ID,
		&v.DeviceID,
		&v.EffectiveFrom,
		&v.Text,
		&status,
		&v.EventID,
		&v.Unverified,
		&v.ConflictNote,
		&v.CreatedAt,
	)

	v.Status = devices.VersionStatus(status)
	return v, err
}

func renderPath(labels map[uuid.UUID]string, parents map[uuid.UUID]*uuid.UUID, id uuid.UUID) string {
	var chain []string
	cur := &id
	for cur != nil {
		chain = append(chain, labels[*cur])
		cur = parents[*cur]
	}

	for lo, hi := 0, len(chain)-1; lo < hi; lo, hi = lo+1, hi-1 {
		chain[lo], chain[hi] = chain[hi], chain[lo]
	}

	return strings.Join(chain, ", ")
}
