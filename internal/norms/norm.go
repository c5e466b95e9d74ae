// Package norms implements the norm domain for Consolida.
// It provides types, data access, and business logic for registering
// legal norms, archiving their raw source text, and driving them
// through the processing pipeline up to segmentation.
package norms

import (
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/segmentation"
)

// Norm represents one legal instrument (law, decree) as published.
type Norm struct {
	ID                uuid.UUID  `json:"id"`
	Kind              string     `json:"kind"`
	Number            string     `json:"number"`
	Year              int        `json:"year"`
	Summary           string     `json:"summary"`
	PublicationDate   *time.Time `json:"publication_date"`
	EffectiveDate     *time.Time `json:"effective_date"`
	StorageKey        string     `json:"storage_key"`
	OCRMeanConfidence float64    `json:"ocr_mean_confidence"`
	Status            Status     `json:"status"`
	NeedsReview       bool       `json:"needs_review"`
	ProcessingError   *string    `json:"processing_error"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// InLatencyPeriod reports whether the norm is published but not yet
// binding at the given date (vacatio legis). Norms without both dates
// are never in latency.
func (n *Norm) InLatencyPeriod(at time.Time) bool {
	if n.PublicationDate == nil || n.EffectiveDate == nil {
		return false
	}
	return !at.Before(*n.PublicationDate) && at.Before(*n.EffectiveDate)
}

// CreateCommand carries the data the acquisition layer supplies when
// registering a norm: identity, dates, raw extracted text, and the OCR
// confidence map for that text.
type CreateCommand struct {
	Kind            string                     `json:"kind"`
	Number          string                     `json:"number"`
	Year            int                        `json:"year"`
	Summary         string                     `json:"summary"`
	PublicationDate *time.Time                 `json:"publication_date"`
	EffectiveDate   *time.Time                 `json:"effective_date"`
	RawText         string                     `json:"raw_text"`
	ConfidenceMap   segmentation.ConfidenceMap `json:"confidence_map"`
}

// SegmentReport summarizes a successful segmentation run.
type SegmentReport struct {
	NormID     uuid.UUID `json:"norm_id"`
	Devices    int       `json:"devices"`
	Articles   int       `json:"articles"`
	Paragraphs int       `json:"paragraphs"`
	Items      int       `json:"items"`
	Subitems   int       `json:"subitems"`
	Clauses    int       `json:"clauses"`
	Unverified int       `json:"unverified"`
}
