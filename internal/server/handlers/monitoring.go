package handlers

import (
	"log/slog"
	"net/http"
	"time"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/server/responses"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/version"
)

// SnapSource is the part of the host runtime the handlers read.
type SnapSource interface {
	Installed() []snap.Descriptor
	Permitted(origin, snapID string) bool
}

// MonitoringHandlers serves health checks.
type MonitoringHandlers struct {
	snaps        SnapSource
	startTime    time.Time
	errorAdapter *foundationerrors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates monitoring handlers. Uptime counts from startTime.
func NewMonitoringHandlers(snaps SnapSource, startTime time.Time) *MonitoringHandlers {
	return &MonitoringHandlers{
		snaps:        snaps,
		startTime:    startTime,
		errorAdapter: foundationerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r, http.MethodGet))
		return
	}

	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if h.snaps != nil {
		health.InstalledSnaps = len(h.snaps.Installed())
	}

	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		internalErr := foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to write health response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}
