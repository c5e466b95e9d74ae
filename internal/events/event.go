// Package events implements the amendment event domain for Consolida.
// An amendment event is a typed assertion that one norm revokes,
// replaces, inserts, or renumbers part of another. Events are appended
// to a per-target-norm log, validated here, and replayed by the
// consolidation engine. The log is append-only; review state is the
// only mutable column, and human overrides are themselves recorded as
// synthetic events so every decision shares one audit trail.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/devices"
)

// Action identifies what an amendment event does to its target.
type Action string

// Supported amendment actions.
const (
	ActionRevoke       Action = "revoke"
	ActionReplaceText  Action = "replace_text"
	ActionInsertDevice Action = "insert_device"
	ActionRenumber     Action = "renumber"
)

// Valid reports whether a is a recognized action.
func (a Action) Valid() bool {
	switch a {
	case ActionRevoke, ActionReplaceText, ActionInsertDevice, ActionRenumber:
		return true
	}
	return false
}

// ReviewState tracks an event's position in the review lifecycle.
// Events enter as needs_review; only auto_applied and applied_manual
// events participate in consolidation replay.
type ReviewState string

const (
	ReviewNeedsReview   ReviewState = "needs_review"
	ReviewAutoApplied   ReviewState = "auto_applied"
	ReviewRejected      ReviewState = "rejected"
	ReviewAppliedManual ReviewState = "applied_manual"
)

// Applicable reports whether an event in this state is replayed.
func (s ReviewState) Applicable() bool {
	return s == ReviewAutoApplied || s == ReviewAppliedManual
}

// InsertSpec describes a device created by an insert_device event.
// A nil ParentDeviceID inserts a new root article. Position is the
// target ordinal among siblings; later siblings shift right.
type InsertSpec struct {
	ParentDeviceID *uuid.UUID   `json:"parent_device_id,omitempty"`
	Kind           devices.Kind `json:"kind" validate:"required"`
	Label          string       `json:"label" validate:"required"`
	Position       int          `json:"position" validate:"gte=0"`
}

// Payload carries the action-dependent data of an event. Which fields
// are required depends on the action; validation enforces the shape.
type Payload struct {
	// Text is the new wording for replace_text and insert_device.
	Text string `json:"text,omitempty"`
	// NewLabel is the replacement display label for renumber.
	NewLabel string `json:"new_label,omitempty"`
	// Insert describes the new device for insert_device.
	Insert *InsertSpec `json:"insert,omitempty"`
}

// Event is one amendment event as stored. Sequence is assigned by the
// database at insert and fixes extraction order for tie-breaking.
// Synthetic events record human review decisions; they reference the
// resolved event and are excluded from replay.
type Event struct {
	ID                   uuid.UUID   `json:"id"`
	SourceNormID         uuid.UUID   `json:"source_norm_id"`
	TargetNormID         uuid.UUID   `json:"target_norm_id"`
	TargetDeviceID       *uuid.UUID  `json:"target_device_id"`
	Action               Action      `json:"action"`
	EffectiveDate        time.Time   `json:"effective_date"`
	Payload              Payload     `json:"payload"`
	ExtractionConfidence float64     `json:"extraction_confidence"`
	ReviewState          ReviewState `json:"review_state"`
	RejectReason         *string     `json:"reject_reason"`
	Synthetic            bool        `json:"synthetic"`
	ResolvesEventID      *uuid.UUID  `json:"resolves_event_id"`
	Sequence             int64       `json:"sequence"`
	CreatedAt            time.Time   `json:"created_at"`
}

// CreateCommand carries the data the extraction layer supplies when
// recording a candidate event. The extractor never sets review state;
// validation decides it.
type CreateCommand struct {
	SourceNormID         uuid.UUID  `json:"source_norm_id" validate:"required"`
	TargetNormID         uuid.UUID  `json:"target_norm_id" validate:"required"`
	TargetDeviceID       *uuid.UUID `json:"target_device_id"`
	Action               Action     `json:"action" validate:"required"`
	EffectiveDate        time.Time  `json:"effective_date" validate:"required"`
	Payload              Payload    `json:"payload"`
	ExtractionConfidence float64    `json:"extraction_confidence" validate:"gte=0,lte=1"`
}

// Decision is a human review outcome for one event.
type Decision string

const (
	DecisionApply  Decision = "apply"
	DecisionReject Decision = "reject"
)

// Valid reports whether d is a recognized decision.
func (d Decision) Valid() bool {
	return d == DecisionApply || d == DecisionReject
}
