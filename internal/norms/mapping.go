package norms

import (
	"net/url"
	"strconv"

	"github.com/legisbr/consolida/pkg/query"
	"github.com/legisbr/consolida/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "norms", "n").
	Project("id", "ID").
	Project("kind", "Kind").
	Project("number", "Number").
	Project("year", "Year").
	Project("summary", "Summary").
	Project("publication_date", "PublicationDate").
	Project("effective_date", "EffectiveDate").
	Project("storage_key", "StorageKey").
	Project("ocr_mean_confidence", "OCRMeanConfidence").
	Project("status", "Status").
	Project("needs_review", "NeedsReview").
	Project("processing_error", "ProcessingError").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "PublicationDate",
	Descending: true,
}

// Filters contains optional filtering criteria for norm queries.
// Nil fields are ignored. Kind, Number, Year, Status, and NeedsReview
// use exact matching; Summary uses case-insensitive contains matching.
type Filters struct {
	Kind        *string `json:"kind,omitempty"`
	Number      *string `json:"number,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Summary     *string `json:"summary,omitempty"`
	Status      *string `json:"status,omitempty"`
	NeedsReview *bool   `json:"needs_review,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Kind", f.Kind).
		WhereEquals("Number", f.Number).
		WhereEquals("Year", f.Year).
		WhereContains("Summary", f.Summary).
		WhereEquals("Status", f.Status).
		WhereEquals("NeedsReview", f.NeedsReview)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	if n := values.Get("number"); n != "" {
		f.Number = &n
	}

	if y := values.Get("year"); y != "" {
		if v, err := strconv.Atoi(y); err == nil {
			f.Year = &v
		}
	}

	if s := values.Get("summary"); s != "" {
		f.Summary = &s
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if nr := values.Get("needs_review"); nr != "" {
		if v, err := strconv.ParseBool(nr); err == nil {
			f.NeedsReview = &v
		}
	}

	return f
}

func scanNorm(s repository.Scanner) (Norm, error) {
	var n Norm
	var status string

	err := s.Scan(
		&n.ID,
		&n.Kind,
		&n.Number,
		&n.Year,
		&n.Summary,
		&n.PublicationDate,
		&n.EffectiveDate,
		&n.StorageKey,
		&n.OCRMeanConfidence,
		&status,
		&n.NeedsReview,
		&n.ProcessingError,
		&n.CreatedAt,
		&n.UpdatedAt,
	)

	n.Status = Status(status)
	return n, err
}
