package events_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/legisbr/consolida/internal/events"
)

func TestActionValid(t *testing.T) {
	valid := []events.Action{
		events.ActionRevoke,
		events.ActionReplaceText,
		events.ActionInsertDevice,
		events.ActionRenumber,
	}
	for _, a := range valid {
		if !a.Valid() {
			t.Errorf("%s should be valid", a)
		}
	}

	for _, a := range []events.Action{"", "delete", "REVOKE"} {
		if a.Valid() {
			t.Errorf("%q should be invalid", a)
		}
	}
}

func TestReviewStateApplicable(t *testing.T) {
	tests := []struct {
		state events.ReviewState
		want  bool
	}{
		{events.ReviewAutoApplied, true},
		{events.ReviewAppliedManual, true},
		{events.ReviewNeedsReview, false},
		{events.ReviewRejected, false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.state.Applicable(); got != tt.want {
			t.Errorf("Applicable(%s) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestDecisionValid(t *testing.T) {
	if !events.DecisionApply.Valid() || !events.DecisionReject.Valid() {
		t.Error("apply and reject should be valid decisions")
	}
	if events.Decision("maybe").Valid() {
		t.Error("unknown decision should be invalid")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", events.ErrNotFound, http.StatusNotFound},
		{"duplicate", events.ErrDuplicate, http.StatusConflict},
		{"invalid decision", events.ErrInvalidDecision, http.StatusBadRequest},
		{"already resolved", events.ErrAlreadyResolved, http.StatusConflict},
		{"synthetic", events.ErrSynthetic, http.StatusConflict},
		{"wrapped not found", fmt.Errorf("resolve: %w", events.ErrNotFound), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := events.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRejectionErrorMessage(t *testing.T) {
	err := &events.RejectionError{Code: events.ReasonBadShape, Detail: "renumber requires a new label"}
	want := "bad_shape: renumber requires a new label"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
