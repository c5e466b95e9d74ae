package devices

import (
	"github.com/legisbr/consolida/pkg/query"
	"github.com/legisbr/consolida/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "devices", "d").
	Project("id", "ID").
	Project("norm_id", "NormID").
	Project("parent_id", "ParentID").
	Project("kind", "Kind").
	Project("label", "Label").
	Project("ordinal", "Ordinal").
	Project("span_start", "SpanStart").
	Project("span_end", "SpanEnd").
	Project("created_at", "CreatedAt")

func scanDevice(s repository.Scanner) (Device, error) {
	var d Device
	var kind string

	err := s.Scan(
		&d.ID,
		&d.NormID,
		&d.ParentID,
		&kind,
		&d.Label,
		&d.Ordinal,
		&d.Span.Start,
		&d.Span.End,
		&d.CreatedAt,
	)

	d.Kind = Kind(kind)
	return d, err
}

func scanVersion(s repository.Scanner) (Version, error) {
	var v Version
	var status string

	err := s.Scan(
		&v.ID,
		&v.DeviceID,
		&v.EffectiveFrom,
		&v.Text,
		&status,
		&v.EventID,
		&v.Unverified,
		&v.ConflictNote,
		&v.CreatedAt,
	)

	v.Status = VersionStatus(status)
	return v, err
}
