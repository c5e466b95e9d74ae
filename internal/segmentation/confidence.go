package segmentation

// Range maps a byte span of the raw source text to an OCR confidence
// score in [0,1]. Ranges come from the acquisition layer's confidence
// map and are expected to be ordered and non-overlapping.
type Range struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// ConfidenceMap is the per-norm OCR confidence map consumed by the builder.
type ConfidenceMap []Range

// Mean returns the overlap-weighted mean confidence over [start, end).
// Spans with no confidence data return 1.0: absence of a map means the
// text did not come through OCR and needs no unverified flag.
func (m ConfidenceMap) Mean(start, end int) float64 {
	if len(m) == 0 || end <= start {
		return 1.0
	}

	var weighted float64
	var covered int

	for _, r := range m {
		lo := max(start, r.Start)
		hi := min(end, r.End)
		if hi <= lo {
			continue
		}
		weighted += r.Confidence * float64(hi-lo)
		covered += hi - lo
	}

	if covered == 0 {
		return 1.0
	}

	return weighted / float64(covered)
}
