package norms

// Status tracks a norm's progress through the processing pipeline.
// Transitions form a closed state machine; anything not listed in
// transitions is rejected at construction time.
type Status string

const (
	// StatusAcquired: metadata registered, raw text not yet supplied.
	StatusAcquired Status = "acquired"
	// StatusTextExtracted: raw text archived, ready for segmentation.
	StatusTextExtracted Status = "text_extracted"
	// StatusSegmented: device tree built, version 0 persisted.
	StatusSegmented Status = "segmented"
	// StatusEventsExtracted: candidate amendment events recorded.
	StatusEventsExtracted Status = "events_extracted"
	// StatusConsolidated: versions materialized up to the present.
	StatusConsolidated Status = "consolidated"
	// StatusNeedsManualSegmentation: segmentation could not establish
	// a consistent hierarchy; raw text is retained for manual work.
	StatusNeedsManualSegmentation Status = "needs_manual_segmentation"
	// StatusFailed: a processing step failed; see ProcessingError.
	StatusFailed Status = "failed"
)

var transitions = map[Status][]Status{
	StatusAcquired:                {StatusTextExtracted, StatusFailed},
	StatusTextExtracted:           {StatusSegmented, StatusNeedsManualSegmentation, StatusFailed},
	StatusSegmented:               {StatusEventsExtracted, StatusConsolidated, StatusFailed},
	StatusEventsExtracted:         {StatusConsolidated, StatusFailed},
	StatusConsolidated:            {StatusConsolidated, StatusEventsExtracted},
	StatusNeedsManualSegmentation: {StatusSegmented, StatusFailed},
	StatusFailed:                  {StatusAcquired, StatusTextExtracted},
}

// Valid reports whether s is a recognized pipeline status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
