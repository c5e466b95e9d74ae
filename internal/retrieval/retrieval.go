// Package retrieval keeps the semantic search index in step with
// consolidation output. It maintains one embeddable text unit per
// device version and publishes a notification for every version
// created, so the external embedding worker re-embeds exactly the
// changed unit and search never returns stale wording.
package retrieval

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/pkg/notify"
	"github.com/legisbr/consolida/pkg/repository"
)

// SubjectVersionCreated is the NATS subject for device version notifications.
const SubjectVersionCreated = "consolida.device_version.created"

// Unit is one embeddable text unit: the full wording of a device
// version together with its hierarchical path for display.
type Unit struct {
	NormID        uuid.UUID `json:"norm_id"`
	DeviceID      uuid.UUID `json:"device_id"`
	VersionID     uuid.UUID `json:"version_id"`
	DevicePath    string    `json:"device_path"`
	Text          string    `json:"text"`
	Status        string    `json:"status"`
	EffectiveFrom time.Time `json:"effective_from"`
}

// Index receives device version creation events. Implementations must
// never fail the caller: index upkeep is best-effort and consolidation
// does not block on it.
type Index interface {
	DeviceVersionCreated(ctx context.Context, u Unit)
}

type adapter struct {
	db     *sql.DB
	notify notify.System
	logger *slog.Logger
}

// New creates the retrieval index adapter.
func New(db *sql.DB, n notify.System, logger *slog.Logger) Index {
	return &adapter{
		db:     db,
		notify: n,
		logger: logger.With("system", "retrieval"),
	}
}

func (a *adapter) DeviceVersionCreated(ctx context.Context, u Unit) {
	if err := a.upsertUnit(ctx, u); err != nil {
		a.logger.Error("embed unit upsert failed",
			"version_id", u.VersionID,
			"error", err,
		)
		return
	}

	if err := a.notify.Publish(SubjectVersionCreated, u); err != nil {
		// The unit row is already marked stale; the embedding worker
		// will pick it up on its next sweep even without the message.
		a.logger.Warn("version notification failed",
			"version_id", u.VersionID,
			"error", err,
		)
	}
}

func (a *adapter) upsertUnit(ctx context.Context, u Unit) error {
	_, err := repository.WithTx(ctx, a.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(
			ctx,
			"UPDATE embed_units SET stale = TRUE WHERE device_id = $1",
			u.DeviceID,
		); err != nil {
			return struct{}{}, err
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO embed_units (id, device_version_id, norm_id, device_id, device_path, content, stale)
			 VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			 ON CONFLICT (device_version_id) DO NOTHING`,
			uuid.New(),
			u.VersionID,
			u.NormID,
			u.DeviceID,
			u.DevicePath,
			embedContent(u),
		); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, nil
	})

	return err
}

// embedContent renders the text the embedding worker will encode.
// Revoked versions embed only the path so the tombstone remains
// findable without surfacing dead wording.
func embedContent(u Unit) string {
	if u.Status == "revoked" || u.Text == "" {
		return u.DevicePath
	}
	return u.DevicePath + "\n" + u.Text
}
