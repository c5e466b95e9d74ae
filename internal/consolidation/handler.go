package consolidation

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/pkg/handlers"
	"github.com/legisbr/consolida/pkg/routes"
)

// Handler provides HTTP endpoints for consolidation operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "consolidation"),
	}
}

// Routes returns the route group definition for consolidation
// endpoints. Norm-scoped routes share the /norms prefix with the norm
// handler; patterns do not overlap.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/norms/{id}/consolidated", Handler: h.Consolidated},
			{Method: "POST", Pattern: "/norms/{id}/consolidate", Handler: h.Consolidate},
			{Method: "POST", Pattern: "/consolidation/run", Handler: h.Run},
		},
	}
}

// Consolidated renders the norm's tree as of the as_of query
// parameter, defaulting to now.
func (h *Handler) Consolidated(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	asOf, err := parseAsOf(r.URL.Query().Get("as_of"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	tree, err := h.sys.Project(r.Context(), id, asOf)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, tree)
}

// Consolidate replays the norm's event log up to the as_of query
// parameter, defaulting to now.
func (h *Handler) Consolidate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	asOf, err := parseAsOf(r.URL.Query().Get("as_of"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	report, err := h.sys.Consolidate(r.Context(), id, asOf)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Run consolidates every norm with a device tree.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.sys.ConsolidateAll(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// parseAsOf accepts a date (2006-01-02) or RFC 3339 timestamp;
// empty defaults to now.
func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid as_of value: %q", s)
}
