package norms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/devices"
	"github.com/legisbr/consolida/internal/retrieval"
	"github.com/legisbr/consolida/internal/segmentation"
	"github.com/legisbr/consolida/pkg/pagination"
	"github.com/legisbr/consolida/pkg/query"
	"github.com/legisbr/consolida/pkg/repository"
	"github.com/legisbr/consolida/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	builder    *segmentation.Builder
	index      retrieval.Index
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a norm repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	builder *segmentation.Builder,
	index retrieval.Index,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		builder:    builder,
		index:      index,
		logger:     logger.With("system", "norms"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Norm], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Number", "Summary")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count norms: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	norms, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanNorm)
	if err != nil {
		return nil, fmt.Errorf("query norms: %w", err)
	}

	result := pagination.NewPageResult(norms, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Norm, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	n, err := repository.QueryOne(ctx, r.db, q, args, scanNorm)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &n, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Norm, error) {
	if cmd.Kind == "" || cmd.Number == "" || cmd.Year == 0 {
		return nil, ErrInvalidIdentity
	}

	id := uuid.New()

	status := StatusAcquired
	key := ""
	meanConfidence := 1.0

	if cmd.RawText != "" {
		status = StatusTextExtracted
		key = buildStorageKey(id)
		meanConfidence = cmd.ConfidenceMap.Mean(0, len(cmd.RawText))

		if err := r.storage.Upload(
			ctx, key,
			strings.NewReader(cmd.RawText),
			"text/plain; charset=utf-8",
		); err != nil {
			return nil, fmt.Errorf("upload norm source text: %w", err)
		}
	}

	confJSON, err := json.Marshal(cmd.ConfidenceMap)
	if err != nil {
		return nil, fmt.Errorf("encode confidence map: %w", err)
	}

	q := `
		INSERT INTO norms(id, kind, number, year, summary, publication_date, effective_date, storage_key, ocr_mean_confidence, confidence_map, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, kind, number, year, summary, publication_date, effective_date, storage_key, ocr_mean_confidence, status, needs_review, processing_error, created_at, updated_at`

	insertArgs := []any{
		id,
		cmd.Kind,
		cmd.Number,
		cmd.Year,
		cmd.Summary,
		cmd.PublicationDate,
		cmd.EffectiveDate,
		key,
		meanConfidence,
		confJSON,
		string(status),
	}

	n, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Norm, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanNorm)
	})

	if err != nil {
		if key != "" {
			if delErr := r.storage.Delete(ctx, key); delErr != nil {
				r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
			}
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("norm created",
		"id", n.ID,
		"kind", n.Kind,
		"number", n.Number,
		"year", n.Year,
		"status", n.Status,
	)
	return &n, nil
}

func (r *repo) RawText(ctx context.Context, id uuid.UUID) (string, segmentation.ConfidenceMap, error) {
	n, err := r.Find(ctx, id)
	if err != nil {
		return "", nil, err
	}

	if n.StorageKey == "" {
		return "", nil, ErrEmptyText
	}

	reader, err := r.storage.Download(ctx, n.StorageKey)
	if err != nil {
		return "", nil, fmt.Errorf("download norm source text: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("read norm source text: %w", err)
	}

	var confJSON []byte
	if err := r.db.QueryRowContext(
		ctx,
		"SELECT confidence_map FROM norms WHERE id = $1",
		id,
	).Scan(&confJSON); err != nil {
		return "", nil, fmt.Errorf("query confidence map: %w", err)
	}

	var conf segmentation.ConfidenceMap
	if len(confJSON) > 0 {
		if err := json.Unmarshal(confJSON, &conf); err != nil {
			return "", nil, fmt.Errorf("decode confidence map: %w", err)
		}
	}

	return string(raw), conf, nil
}

func (r *repo) Segment(ctx context.Context, id uuid.UUID) (*SegmentReport, error) {
	n, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !n.Status.CanTransition(StatusSegmented) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, n.Status, StatusSegmented)
	}

	raw, conf, err := r.RawText(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := r.builder.Build(raw, conf)
	if err != nil {
		var malformed *segmentation.MalformedStructureError
		if errors.As(err, &malformed) {
			if markErr := r.markMalformed(ctx, id, malformed); markErr != nil {
				r.logger.Error("failed to record malformed segmentation", "id", id, "error", markErr)
			}
			return nil, fmt.Errorf("%w: %s", ErrMalformed, malformed.Error())
		}
		return nil, fmt.Errorf("segment norm: %w", err)
	}

	effectiveFrom := versionZeroEffectiveFrom(n)
	unverified := 0
	units := make([]retrieval.Unit, 0, len(result.Nodes))

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		// Re-segmentation replaces the whole forest; device_versions
		// and embed_units cascade on device delete.
		if _, err := tx.ExecContext(
			ctx,
			"DELETE FROM devices WHERE norm_id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}

		ids := make([]uuid.UUID, len(result.Nodes))
		for i := range ids {
			ids[i] = uuid.New()
		}

		for i, node := range result.Nodes {
			var parentID *uuid.UUID
			if node.Parent >= 0 {
				parentID = &ids[node.Parent]
			}

			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO devices(id, norm_id, parent_id, kind, label, ordinal, span_start, span_end)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				ids[i], id, parentID, string(node.Kind), node.Label,
				node.Ordinal, node.Span.Start, node.Span.End,
			); err != nil {
				return struct{}{}, err
			}

			versionID := uuid.New()
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO device_versions(id, device_id, effective_from, text, status, event_id, unverified)
				 VALUES ($1, $2, $3, $4, $5, NULL, $6)`,
				versionID, ids[i], effectiveFrom, node.Text,
				string(devices.StatusOriginal), node.Unverified,
			); err != nil {
				return struct{}{}, err
			}

			if node.Unverified {
				unverified++
			}

			units = append(units, retrieval.Unit{
				NormID:        id,
				DeviceID:      ids[i],
				VersionID:     versionID,
				DevicePath:    devicePath(result.Nodes, i),
				Text:          node.Text,
				Status:        string(devices.StatusOriginal),
				EffectiveFrom: effectiveFrom,
			})
		}

		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			`UPDATE norms
			 SET status = $2, needs_review = $3, processing_error = NULL, updated_at = now()
			 WHERE id = $1`,
			id, string(StatusSegmented), unverified > 0,
		)
	})

	if err != nil {
		return nil, fmt.Errorf("persist device forest: %w", err)
	}

	// Index upkeep runs after commit so a rollback never leaves
	// phantom units behind.
	for _, u := range units {
		r.index.DeviceVersionCreated(ctx, u)
	}

	report := &SegmentReport{
		NormID:     id,
		Devices:    len(result.Nodes),
		Articles:   result.Counts[devices.KindArticle],
		Paragraphs: result.Counts[devices.KindParagraph],
		Items:      result.Counts[devices.KindItem],
		Subitems:   result.Counts[devices.KindSubitem],
		Clauses:    result.Counts[devices.KindClause],
		Unverified: unverified,
	}

	r.logger.Info("norm segmented",
		"id", id,
		"devices", report.Devices,
		"unverified", report.Unverified,
	)
	return report, nil
}

func (r *repo) Transition(ctx context.Context, id uuid.UUID, next Status) (*Norm, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	n, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !n.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, n.Status, next)
	}

	q := `
		UPDATE norms SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, kind, number, year, summary, publication_date, effective_date, storage_key, ocr_mean_confidence, status, needs_review, processing_error, created_at, updated_at`

	updated, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Norm, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, string(next)}, scanNorm)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("norm status changed", "id", id, "from", n.Status, "to", next)
	return &updated, nil
}

func (r *repo) markMalformed(ctx context.Context, id uuid.UUID, cause *segmentation.MalformedStructureError) error {
	msg := cause.Error()

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			`UPDATE norms
			 SET status = $2, needs_review = TRUE, processing_error = $3, updated_at = now()
			 WHERE id = $1`,
			id, string(StatusNeedsManualSegmentation), msg,
		)
	})
	return err
}

// versionZeroEffectiveFrom picks the effective date for original
// versions: the norm's effective date when known, otherwise its
// publication date, otherwise registration time.
func versionZeroEffectiveFrom(n *Norm) time.Time {
	if n.EffectiveDate != nil {
		return *n.EffectiveDate
	}
	if n.PublicationDate != nil {
		return *n.PublicationDate
	}
	return n.CreatedAt
}

// devicePath renders the labels from the root down to node i,
// e.g. "Art. 5, § 2º, a)".
func devicePath(nodes []segmentation.Node, i int) string {
	var labels []string
	for j := i; j >= 0; j = nodes[j].Parent {
		labels = append(labels, nodes[j].Label)
	}

	for lo, hi := 0, len(labels)-1; lo < hi; lo, hi = lo+1, hi-1 {
		labels[lo], labels[hi] = labels[hi], labels[lo]
	}

	return strings.Join(labels, ", ")
}

func buildStorageKey(id uuid.UUID) string {
	return fmt.Sprintf("norms/%s/source.txt", id)
}
