// Package devices implements the device domain for Consolida.
// A device is one structural unit of a legal norm (article, paragraph,
// item, sub-item, clause). Devices carry an append-only sequence of
// versions; the wording of a device at any date is always derived from
// that sequence, never stored as mutable state.
package devices

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies a device's position in the structural hierarchy.
type Kind string

// Hierarchy kinds, shallowest to deepest, following Brazilian
// legislative drafting conventions (artigo, parágrafo, inciso,
// alínea, item).
const (
	KindArticle   Kind = "article"
	KindParagraph Kind = "paragraph"
	KindItem      Kind = "item"
	KindSubitem   Kind = "subitem"
	KindClause    Kind = "clause"
)

// Level returns the hierarchy depth of the kind: articles are 0,
// each nested kind one deeper. Unknown kinds return -1.
func (k Kind) Level() int {
	switch k {
	case KindArticle:
		return 0
	case KindParagraph:
		return 1
	case KindItem:
		return 2
	case KindSubitem:
		return 3
	case KindClause:
		return 4
	}
	return -1
}

// Valid reports whether k is a recognized hierarchy kind.
func (k Kind) Valid() bool {
	return k.Level() >= 0
}

// VersionStatus describes how a device version came to be.
type VersionStatus string

// Version statuses. Original versions come from segmentation; amended
// and revoked versions are produced by consolidation replay.
const (
	StatusOriginal VersionStatus = "original"
	StatusAmended  VersionStatus = "amended"
	StatusRevoked  VersionStatus = "revoked"
)

// SourceSpan locates a device's text within its norm's raw source blob.
// Offsets are byte positions into the stored source text.
type SourceSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Device represents one node in a norm's hierarchy.
// ParentID is nil for root devices (articles). The parent always
// belongs to the same norm; the repository enforces this on insert.
type Device struct {
	ID        uuid.UUID  `json:"id"`
	NormID    uuid.UUID  `json:"norm_id"`
	ParentID  *uuid.UUID `json:"parent_id"`
	Kind      Kind       `json:"kind"`
	Label     string     `json:"label"`
	Ordinal   int        `json:"ordinal"`
	Span      SourceSpan `json:"span"`
	CreatedAt time.Time  `json:"created_at"`
}

// Version is an immutable snapshot of a device's text at one effective
// date. EventID is nil only for version 0, which comes directly from
// segmentation. Versions are inserted, never updated or deleted.
type Version struct {
	ID            uuid.UUID     `json:"id"`
	DeviceID      uuid.UUID     `json:"device_id"`
	EffectiveFrom time.Time     `json:"effective_from"`
	Text          string        `json:"text"`
	Status        VersionStatus `json:"status"`
	EventID       *uuid.UUID    `json:"event_id"`
	Unverified    bool          `json:"unverified"`
	ConflictNote  *string       `json:"conflict_note"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Revoked reports whether this version blanks the device.
func (v *Version) Revoked() bool {
	return v.Status == StatusRevoked
}
