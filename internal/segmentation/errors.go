package segmentation

import (
	"fmt"

	"github.com/legisbr/consolida/internal/devices"
)

// MalformedStructureError indicates the marker sequence cannot form a
// consistent hierarchy, e.g. a sub-item appearing before any article
// has opened. The norm is flagged for manual segmentation; the error
// carries enough context to locate the offending marker in the source.
type MalformedStructureError struct {
	Offset int
	Kind   devices.Kind
	Marker string
}

func (e *MalformedStructureError) Error() string {
	return fmt.Sprintf(
		"malformed structure: %s marker %q at offset %d has no possible parent",
		e.Kind, e.Marker, e.Offset,
	)
}
