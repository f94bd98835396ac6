package engine

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/atlet99/pulsemon/internal/alerts"
	"github.com/atlet99/pulsemon/internal/errors"
)

const defaultSilenceMinutes = 60

// Handler exposes the engine's query and alert-management surface as
// JSON over HTTP. Unknown metric or alert ids return a structured 404
// payload, never a panic.
type Handler struct {
	system *System
	logger *slog.Logger
}

// NewHandler creates an HTTP handler over the engine
func NewHandler(system *System, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{system: system, logger: logger}
}

// Register attaches all engine routes to the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/metrics", h.HandleMetrics)
	mux.HandleFunc("/metrics/{name}/values", h.HandleMetricValues)
	mux.HandleFunc("/metrics/{name}/statistics", h.HandleMetricStatistics)
	mux.HandleFunc("/alerts", h.HandleAlerts)
	mux.HandleFunc("/alerts/history", h.HandleAlertHistory)
	mux.HandleFunc("/alerts/statistics", h.HandleAlertStatistics)
	mux.HandleFunc("/alerts/custom", h.HandleCustomAlert)
	mux.HandleFunc("/alerts/{id}/acknowledge", h.HandleAcknowledge)
	mux.HandleFunc("/alerts/{id}/silence", h.HandleSilence)
}

// HandleHealth returns the aggregated engine health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := h.system.Health(r.Context())

	statusCode := http.StatusOK
	if health.Status == OverallUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	h.writeJSON(w, statusCode, health)
}

// HandleMetrics returns the full metric snapshot
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"metrics":   h.system.Store().Snapshot(),
	})
}

// HandleMetricValues returns the raw values of one metric, optionally
// filtered by ?since=RFC3339 and capped by ?limit=N.
func (h *Handler) HandleMetricValues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.PathValue("name")

	since, err := parseSince(r)
	if err != nil {
		h.writeError(w, errors.New(errors.ErrCodeInvalidRequest, "since must be an RFC3339 timestamp"))
		return
	}
	limit := parseLimit(r)

	values := h.system.Store().Query(name, since, limit)
	if len(values) == 0 {
		if _, defined := h.system.Store().Definition(name); !defined {
			h.writeError(w, errors.Newf(errors.ErrCodeMetricNotFound, "metric %q not found", name))
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"metric": name,
		"count":  len(values),
		"values": values,
	})
}

// HandleMetricStatistics returns aggregate statistics for one metric
func (h *Handler) HandleMetricStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.PathValue("name")

	since, err := parseSince(r)
	if err != nil {
		h.writeError(w, errors.New(errors.ErrCodeInvalidRequest, "since must be an RFC3339 timestamp"))
		return
	}

	stats := h.system.Store().Statistics(name, since)
	if stats.Count == 0 {
		if _, defined := h.system.Store().Definition(name); !defined {
			h.writeError(w, errors.Newf(errors.ErrCodeMetricNotFound, "metric %q not found", name))
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"metric":     name,
		"statistics": stats,
	})
}

// HandleAlerts returns the currently open alerts
func (h *Handler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	active := h.system.Registry().ListActive()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(active),
		"alerts": active,
	})
}

// HandleAlertHistory returns past alerts, most recent first
func (h *Handler) HandleAlertHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	history := h.system.Registry().ListHistory(parseLimit(r))
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(history),
		"alerts": history,
	})
}

// HandleAlertStatistics returns the registry counters
func (h *Handler) HandleAlertStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, h.system.Registry().Statistics())
}

// HandleAcknowledge acknowledges an open alert by id
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")

	if !h.system.Registry().Acknowledge(id) {
		h.writeError(w, errors.Newf(errors.ErrCodeAlertNotFound, "no open alert with id %q", id))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": alerts.StatusAcknowledged,
	})
}

// HandleSilence silences an open alert for ?minutes=N (default 60)
func (h *Handler) HandleSilence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")

	minutes := defaultSilenceMinutes
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, errors.New(errors.ErrCodeInvalidRequest, "minutes must be a positive integer"))
			return
		}
		minutes = parsed
	}

	if !h.system.Registry().Silence(id, time.Duration(minutes)*time.Minute) {
		h.writeError(w, errors.Newf(errors.ErrCodeAlertNotFound, "no open alert with id %q", id))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"status":  alerts.StatusSilenced,
		"minutes": minutes,
	})
}

// customAlertRequest is the body of POST /alerts/custom
type customAlertRequest struct {
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Severity string            `json:"severity"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// HandleCustomAlert creates a manual alert bypassing rule evaluation
func (h *Handler) HandleCustomAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req customAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.New(errors.ErrCodeInvalidRequest, "request body must be valid JSON"))
		return
	}
	if req.Title == "" {
		h.writeError(w, errors.New(errors.ErrCodeInvalidRequest, "title is required"))
		return
	}

	severity := alerts.SeverityWarning
	if req.Severity != "" {
		parsed, err := alerts.ParseSeverity(req.Severity)
		if err != nil {
			h.writeError(w, errors.Newf(errors.ErrCodeInvalidRequest, "unknown severity %q", req.Severity))
			return
		}
		severity = parsed
	}

	alert := h.system.Registry().CreateCustom(req.Title, req.Message, severity, req.Tags)
	h.writeJSON(w, http.StatusCreated, alert)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError renders a ServiceError with its mapped HTTP status
func (h *Handler) writeError(w http.ResponseWriter, err *errors.ServiceError) {
	h.writeJSON(w, err.HTTPStatusCode(), map[string]interface{}{
		"error": err,
	})
}

func parseSince(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
		return parsed
	}
	return 0
}
