package events

import (
	"encoding/json"
	"net/url"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/pkg/query"
	"github.com/legisbr/consolida/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "amendment_events", "e").
	Project("id", "ID").
	Project("source_norm_id", "SourceNormID").
	Project("target_norm_id", "TargetNormID").
	Project("target_device_id", "TargetDeviceID").
	Project("action", "Action").
	Project("effective_date", "EffectiveDate").
	Project("payload", "Payload").
	Project("extraction_confidence", "ExtractionConfidence").
	Project("review_state", "ReviewState").
	Project("reject_reason", "RejectReason").
	Project("synthetic", "Synthetic").
	Project("resolves_event_id", "ResolvesEventID").
	Project("sequence", "Sequence").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for event queries.
// Nil fields are ignored; all matching is exact.
type Filters struct {
	SourceNormID   *uuid.UUID `json:"source_norm_id,omitempty"`
	TargetNormID   *uuid.UUID `json:"target_norm_id,omitempty"`
	TargetDeviceID *uuid.UUID `json:"target_device_id,omitempty"`
	Action         *string    `json:"action,omitempty"`
	ReviewState    *string    `json:"review_state,omitempty"`
	Synthetic      *bool      `json:"synthetic,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("SourceNormID", f.SourceNormID).
		WhereEquals("TargetNormID", f.TargetNormID).
		WhereEquals("TargetDeviceID", f.TargetDeviceID).
		WhereEquals("Action", f.Action).
		WhereEquals("ReviewState", f.ReviewState).
		WhereEquals("Synthetic", f.Synthetic)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("source_norm_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.SourceNormID = &id
		}
	}

	if s := values.Get("target_norm_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.TargetNormID = &id
		}
	}

	if s := values.Get("target_device_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.TargetDeviceID = &id
		}
	}

	if s := values.Get("action"); s != "" {
		f.Action = &s
	}

	if s := values.Get("review_state"); s != "" {
		f.ReviewState = &s
	}

	return f
}

const eventColumns = "id, source_norm_id, target_norm_id, target_device_id, action, effective_date, payload, extraction_confidence, review_state, reject_reason, synthetic, resolves_event_id, sequence, created_at"

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	var action, state string
	var payload []byte

	err := s.Scan(
		&e.ID,
		&e.SourceNormID,
		&e.TargetNormID,
		&e.TargetDeviceID,
		&action,
		&e.EffectiveDate,
		&payload,
		&e.ExtractionConfidence,
		&state,
		&e.RejectReason,
		&e.Synthetic,
		&e.ResolvesEventID,
		&e.Sequence,
		&e.CreatedAt,
	)
	if err != nil {
		return e, err
	}

	e.Action = Action(action)
	e.ReviewState = ReviewState(state)

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return e, err
		}
	}

	return e, nil
}
