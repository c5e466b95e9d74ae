package events

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for amendment event operations.
var (
	ErrNotFound        = errors.New("event not found")
	ErrDuplicate       = errors.New("event already recorded")
	ErrInvalidDecision = errors.New("decision must be apply or reject")
	ErrAlreadyResolved = errors.New("event review state is already final")
	ErrSynthetic       = errors.New("synthetic audit events cannot be resolved")
)

// RejectionError carries the reason code an event was rejected with.
// Rejections are not transport errors: the event is stored with
// review_state rejected and the reason, and creation still succeeds.
// The type exists so validation can report structured reasons.
type RejectionError struct {
	Code   string
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Rejection reason codes.
const (
	ReasonBadShape         = "bad_shape"
	ReasonUnknownTarget    = "unknown_target"
	ReasonTargetMismatch   = "target_mismatch"
	ReasonDateBeforeSource = "date_before_source_publication"
)

// MapHTTPStatus maps event domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidDecision) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrSynthetic) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
