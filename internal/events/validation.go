package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var eventValidate = validator.New()

// verdict is the outcome of validating one candidate event.
type verdict struct {
	state  ReviewState
	reason *string
}

func rejected(code, detail string) verdict {
	msg := (&RejectionError{Code: code, Detail: detail}).Error()
	return verdict{state: ReviewRejected, reason: &msg}
}

// validate classifies a candidate event. Structurally or referentially
// invalid events are rejected with a reason code; valid events are
// auto-applied only when confidence clears the threshold AND the
// target resolves unambiguously. Structural validity alone never
// authorizes automatic application.
func (r *repo) validate(ctx context.Context, cmd CreateCommand) (verdict, error) {
	if err := eventValidate.Struct(cmd); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return verdict{}, err
		}
		return rejected(ReasonBadShape, err.Error()), nil
	}

	if !cmd.Action.Valid() {
		return rejected(ReasonBadShape, fmt.Sprintf("unknown action %q", cmd.Action)), nil
	}

	if v, done := validatePayload(cmd); done {
		return v, nil
	}

	// Reference checks against current state. A target that vanishes
	// later is caught again at replay; validation reflects the log at
	// recording time.
	sourcePub, err := r.normPublicationDate(ctx, cmd.SourceNormID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rejected(ReasonUnknownTarget, "source norm does not exist"), nil
		}
		return verdict{}, err
	}

	if _, err := r.normPublicationDate(ctx, cmd.TargetNormID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rejected(ReasonUnknownTarget, "target norm does not exist"), nil
		}
		return verdict{}, err
	}

	if cmd.TargetDeviceID != nil {
		ok, err := r.deviceBelongsToNorm(ctx, *cmd.TargetDeviceID, cmd.TargetNormID)
		if err != nil {
			return verdict{}, err
		}
		if !ok {
			return rejected(ReasonTargetMismatch, "target device does not belong to target norm"), nil
		}
	} else if cmd.Action != ActionRevoke {
		// Only norm-wide revocation may omit the device path.
		return rejected(ReasonBadShape, "target device is required for this action"), nil
	}

	if cmd.Action == ActionInsertDevice && cmd.Payload.Insert.ParentDeviceID != nil {
		ok, err := r.deviceBelongsToNorm(ctx, *cmd.Payload.Insert.ParentDeviceID, cmd.TargetNormID)
		if err != nil {
			return verdict{}, err
		}
		if !ok {
			return rejected(ReasonTargetMismatch, "insert parent does not belong to target norm"), nil
		}
	}

	if sourcePub != nil && cmd.EffectiveDate.Before(*sourcePub) {
		return rejected(ReasonDateBeforeSource, fmt.Sprintf(
			"effective date %s precedes source publication %s",
			cmd.EffectiveDate.Format(time.DateOnly),
			sourcePub.Format(time.DateOnly),
		)), nil
	}

	if cmd.ExtractionConfidence >= r.confidenceThreshold {
		return verdict{state: ReviewAutoApplied}, nil
	}
	return verdict{state: ReviewNeedsReview}, nil
}

// validatePayload enforces the action-specific payload shape. Returns
// done=true with a rejection when the shape is wrong.
func validatePayload(cmd CreateCommand) (verdict, bool) {
	switch cmd.Action {
	case ActionReplaceText:
		if cmd.Payload.Text == "" {
			return rejected(ReasonBadShape, "replace_text requires non-empty text"), true
		}
	case ActionInsertDevice:
		if cmd.Payload.Insert == nil {
			return rejected(ReasonBadShape, "insert_device requires an insert spec"), true
		}
		if err := eventValidate.Struct(cmd.Payload.Insert); err != nil {
			return rejected(ReasonBadShape, err.Error()), true
		}
		if !cmd.Payload.Insert.Kind.Valid() {
			return rejected(ReasonBadShape, fmt.Sprintf("unknown device kind %q", cmd.Payload.Insert.Kind)), true
		}
		if cmd.Payload.Text == "" {
			return rejected(ReasonBadShape, "insert_device requires non-empty text"), true
		}
	case ActionRenumber:
		if cmd.Payload.NewLabel == "" {
			return rejected(ReasonBadShape, "renumber requires a new label"), true
		}
	case ActionRevoke:
		// No payload.
	}
	return verdict{}, false
}

func (r *repo) normPublicationDate(ctx context.Context, id uuid.UUID) (*time.Time, error) {
	var pub *time.Time
	err := r.db.QueryRowContext(
		ctx,
		"SELECT publication_date FROM norms WHERE id = $1",
		id,
	).Scan(&pub)
	return pub, err
}

func (r *repo) deviceBelongsToNorm(ctx context.Context, deviceID, normID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(
		ctx,
		"SELECT EXISTS (SELECT 1 FROM devices WHERE id = $1 AND norm_id = $2)",
		deviceID, normID,
	).Scan(&ok)
	return ok, err
}
