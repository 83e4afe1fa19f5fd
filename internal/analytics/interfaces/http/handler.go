package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	analyticsapp "co2-dashboard/internal/analytics/application"
	"co2-dashboard/internal/analytics/domain/statistic"
	readings "co2-dashboard/internal/readings/domain"
)

// Route paths served by Handler.
const (
	PathSummary    = "/api/dashboard/summary"
	PathSpikes     = "/api/dashboard/spikes"
	PathLocations  = "/api/dashboard/location-data"
	PathHistorical = "/api/dashboard/historical"
	PathReport     = "/api/dashboard/report.pdf"
)

// Handler provides the dashboard HTTP endpoints.
type Handler struct {
	service *analyticsapp.DashboardService
	logger  *log.Logger
	now     func() time.Time
}

// NewHandler constructs a handler.
func NewHandler(service *analyticsapp.DashboardService, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("dashboard handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger, now: time.Now}, nil
}

// ServeHTTP dispatches GET /api/dashboard/*.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case PathSummary:
		h.handleSummary(w, r)
	case PathSpikes:
		h.handleSpikes(w, r)
	case PathLocations:
		h.handleLocations(w, r)
	case PathHistorical:
		h.handleHistorical(w, r)
	case PathReport:
		h.handleReport(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.writeError(w, "summary", err)
		return
	}
	writeJSON(w, summary)
}

func (h *Handler) handleSpikes(w http.ResponseWriter, r *http.Request) {
	mode, err := statistic.ParseSeriesMode(r.URL.Query().Get("mode"))
	if err != nil {
		http.Error(w, "invalid mode, expected day, week or month", http.StatusBadRequest)
		return
	}
	series, err := h.service.SpikeSeries(r.Context(), mode)
	if err != nil {
		h.writeError(w, "spikes", err)
		return
	}
	writeJSON(w, series)
}

func (h *Handler) handleLocations(w http.ResponseWriter, r *http.Request) {
	mode, err := statistic.ParseLocationMode(r.URL.Query().Get("mode"))
	if err != nil {
		http.Error(w, "invalid mode, expected current, avg or peak", http.StatusBadRequest)
		return
	}
	locations, err := h.service.LocationRollup(r.Context(), mode)
	if err != nil {
		h.writeError(w, "location data", err)
		return
	}
	writeJSON(w, locations)
}

func (h *Handler) handleHistorical(w http.ResponseWriter, r *http.Request) {
	years := 1
	if raw := r.URL.Query().Get("years"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid years, expected a positive integer", http.StatusBadRequest)
			return
		}
		years = parsed
	}
	trend, err := h.service.HistoricalTrend(r.Context(), years)
	if err != nil {
		h.writeError(w, "historical", err)
		return
	}
	writeJSON(w, trend)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.writeError(w, "report", err)
		return
	}
	data, err := BuildSummaryPDF(summary, h.now())
	if err != nil {
		h.logger.Printf("dashboard report: render error: %v", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="co2-summary.pdf"`)
	_, _ = w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, operation string, err error) {
	switch {
	case errors.Is(err, readings.ErrNotFound):
		http.Error(w, "no data", http.StatusNotFound)
	case errors.Is(err, statistic.ErrInvalidMode), errors.Is(err, statistic.ErrInvalidYears):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Printf("dashboard %s: %v", operation, err)
		http.Error(w, "failed to fetch "+operation, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
