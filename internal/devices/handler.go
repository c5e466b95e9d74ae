package devices

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/legisbr/consolida/pkg/handlers"
	"github.com/legisbr/consolida/pkg/routes"
)

// Handler provides HTTP endpoints for device operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// HistoryResponse pairs a device with its full version sequence.
type HistoryResponse struct {
	Device   *Device   `json:"device"`
	Versions []Version `json:"versions"`
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "devices"),
	}
}

// Routes returns the route group definition for device endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/devices",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/history", Handler: h.History},
		},
	}
}

// Find returns a single device by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

// History returns the device together with its version sequence,
// oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	versions, err := h.sys.History(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, HistoryResponse{
		Device:   d,
		Versions: versions,
	})
}
