package events

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/internal/devices"
)

func baseCommand(action Action) CreateCommand {
	target := uuid.New()
	return CreateCommand{
		SourceNormID:         uuid.New(),
		TargetNormID:         uuid.New(),
		TargetDeviceID:       &target,
		Action:               action,
		EffectiveDate:        time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		ExtractionConfidence: 0.9,
	}
}

func TestValidatePayloadShapes(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*CreateCommand)
		wantReject bool
		wantDetail string
	}{
		{
			name: "revoke needs no payload",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionRevoke
			},
		},
		{
			name: "replace_text with text passes",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionReplaceText
				cmd.Payload.Text = "Nova redação"
			},
		},
		{
			name: "replace_text without text rejected",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionReplaceText
			},
			wantReject: true,
			wantDetail: "non-empty text",
		},
		{
			name: "insert_device without spec rejected",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionInsertDevice
				cmd.Payload.Text = "Texto"
			},
			wantReject: true,
			wantDetail: "insert spec",
		},
		{
			name: "insert_device with unknown kind rejected",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionInsertDevice
				cmd.Payload.Text = "Texto"
				cmd.Payload.Insert = &InsertSpec{Kind: "chapter", Label: "Cap. I"}
			},
			wantReject: true,
			wantDetail: "unknown device kind",
		},
		{
			name: "insert_device without text rejected",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionInsertDevice
				cmd.Payload.Insert = &InsertSpec{Kind: devices.KindArticle, Label: "Art. 1º-A"}
			},
			wantReject: true,
			wantDetail: "non-empty text",
		},
		{
			name: "insert_device with negative position rejected",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionInsertDevice
				cmd.Payload.Text = "Texto"
				cmd.Payload.Insert = &InsertSpec{Kind: devices.KindArticle, Label: "Art. 1º-A", Position: -1}
			},
			wantReject: true,
		},
		{
			name: "complete insert_device passes",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionInsertDevice
				cmd.Payload.Text = "Texto"
				cmd.Payload.Insert = &InsertSpec{Kind: devices.KindArticle, Label: "Art. 1º-A", Position: 1}
			},
		},
		{
			name: "renumber without label rejected",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionRenumber
			},
			wantReject: true,
			wantDetail: "new label",
		},
		{
			name: "renumber with label passes",
			mutate: func(cmd *CreateCommand) {
				cmd.Action = ActionRenumber
				cmd.Payload.NewLabel = "Art. 2º-B"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := baseCommand(ActionRevoke)
			tt.mutate(&cmd)

			v, done := validatePayload(cmd)

			if !tt.wantReject {
				if done {
					t.Fatalf("rejected valid payload: %v", *v.reason)
				}
				return
			}

			if !done {
				t.Fatal("expected rejection, payload passed")
			}
			if v.state != ReviewRejected {
				t.Errorf("state = %s, want rejected", v.state)
			}
			if v.reason == nil {
				t.Fatal("rejection carries no reason")
			}
			if !strings.HasPrefix(*v.reason, ReasonBadShape) {
				t.Errorf("reason %q does not carry the bad_shape code", *v.reason)
			}
			if tt.wantDetail != "" && !strings.Contains(*v.reason, tt.wantDetail) {
				t.Errorf("reason %q does not mention %q", *v.reason, tt.wantDetail)
			}
		})
	}
}

func TestRejectedVerdict(t *testing.T) {
	v := rejected(ReasonUnknownTarget, "target norm does not exist")

	if v.state != ReviewRejected {
		t.Errorf("state = %s, want rejected", v.state)
	}
	if v.reason == nil {
		t.Fatal("reason is nil")
	}
	want := "unknown_target: target norm does not exist"
	if *v.reason != want {
		t.Errorf("reason = %q, want %q", *v.reason, want)
	}
}
