package norms_test

import (
	"testing"
	"time"

	"github.com/legisbr/consolida/internal/norms"
)

func TestStatusValid(t *testing.T) {
	valid := []norms.Status{
		norms.StatusAcquired,
		norms.StatusTextExtracted,
		norms.StatusSegmented,
		norms.StatusEventsExtracted,
		norms.StatusConsolidated,
		norms.StatusNeedsManualSegmentation,
		norms.StatusFailed,
	}

	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}

	for _, s := range []norms.Status{"", "unknown", "ACQUIRED"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from norms.Status
		to   norms.Status
		want bool
	}{
		{"acquired to text_extracted", norms.StatusAcquired, norms.StatusTextExtracted, true},
		{"acquired skips segmentation", norms.StatusAcquired, norms.StatusSegmented, false},
		{"text_extracted to segmented", norms.StatusTextExtracted, norms.StatusSegmented, true},
		{"text_extracted to manual segmentation", norms.StatusTextExtracted, norms.StatusNeedsManualSegmentation, true},
		{"segmented straight to consolidated", norms.StatusSegmented, norms.StatusConsolidated, true},
		{"segmented to events_extracted", norms.StatusSegmented, norms.StatusEventsExtracted, true},
		{"events_extracted to consolidated", norms.StatusEventsExtracted, norms.StatusConsolidated, true},
		{"reconsolidation is allowed", norms.StatusConsolidated, norms.StatusConsolidated, true},
		{"consolidated back to events_extracted", norms.StatusConsolidated, norms.StatusEventsExtracted, true},
		{"consolidated cannot regress to acquired", norms.StatusConsolidated, norms.StatusAcquired, false},
		{"manual segmentation resumes at segmented", norms.StatusNeedsManualSegmentation, norms.StatusSegmented, true},
		{"failed retries from acquired", norms.StatusFailed, norms.StatusAcquired, true},
		{"failed retries from text_extracted", norms.StatusFailed, norms.StatusTextExtracted, true},
		{"failed cannot jump to consolidated", norms.StatusFailed, norms.StatusConsolidated, false},
		{"unknown source rejects everything", norms.Status("bogus"), norms.StatusAcquired, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestInLatencyPeriod(t *testing.T) {
	pub := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	eff := time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		norm norms.Norm
		at   time.Time
		want bool
	}{
		{
			name: "between publication and effective date",
			norm: norms.Norm{PublicationDate: &pub, EffectiveDate: &eff},
			at:   time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name: "on publication date",
			norm: norms.Norm{PublicationDate: &pub, EffectiveDate: &eff},
			at:   pub,
			want: true,
		},
		{
			name: "on effective date",
			norm: norms.Norm{PublicationDate: &pub, EffectiveDate: &eff},
			at:   eff,
			want: false,
		},
		{
			name: "before publication",
			norm: norms.Norm{PublicationDate: &pub, EffectiveDate: &eff},
			at:   time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "no effective date",
			norm: norms.Norm{PublicationDate: &pub},
			at:   time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "no publication date",
			norm: norms.Norm{EffectiveDate: &eff},
			at:   time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.norm.InLatencyPeriod(tt.at); got != tt.want {
				t.Errorf("InLatencyPeriod(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}
