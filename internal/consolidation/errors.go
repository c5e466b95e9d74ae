package consolidation

import (
	"errors"
	"net/http"

	"github.com/legisbr/consolida/internal/norms"
)

// Domain errors for consolidation operations.
var (
	ErrNotSegmented = errors.New("norm has no device tree to consolidate")
)

// MapHTTPStatus maps consolidation errors to appropriate HTTP status
// codes. Norm lookup errors pass through the norm domain's mapping.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotSegmented) {
		return http.StatusConflict
	}
	if status := norms.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return http.StatusInternalServerError
}
