package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	readingsapp "co2-dashboard/internal/readings/application"
	readings "co2-dashboard/internal/readings/domain"
)

// IngestHandler accepts reading batches from sensors.
type IngestHandler struct {
	service *readingsapp.Service
	logger  *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(service *readingsapp.Service, logger *log.Logger) (*IngestHandler, error) {
	if service == nil {
		return nil, errors.New("readings ingest: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles POST /api/log-readings.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("readings ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req readingsapp.IngestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("readings ingest: decode error: %v", err)
		http.Error(w, "invalid payload, expected {timestamp, readings: [{co2, timestamp}]}", http.StatusBadRequest)
		return
	}
	if req.Readings == nil {
		http.Error(w, "invalid payload, expected {timestamp, readings: [{co2, timestamp}]}", http.StatusBadRequest)
		return
	}

	result, err := h.service.Ingest(r.Context(), req)
	if err != nil {
		if errors.Is(err, readings.ErrInvalidReading) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to store readings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Readings successfully logged.",
		"batchId":         result.BatchID,
		"stored":          result.Stored,
		"uploadTimestamp": result.UploadTimestamp,
	})
}

// RangeHandler lists readings between two calendar dates.
type RangeHandler struct {
	service *readingsapp.Service
	logger  *log.Logger
}

// NewRangeHandler constructs a range handler.
func NewRangeHandler(service *readingsapp.Service, logger *log.Logger) (*RangeHandler, error) {
	if service == nil {
		return nil, errors.New("readings range: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RangeHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles GET /api/range?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *RangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	result, err := h.service.Range(r.Context(), query.Get("from"), query.Get("to"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, readingsapp.ErrInvalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, readings.ErrNotFound):
		http.Error(w, "no readings found", http.StatusNotFound)
	default:
		h.logger.Printf("readings range: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// PatchHandler reassigns coordinates to every stored reading.
type PatchHandler struct {
	service *readingsapp.Service
	logger  *log.Logger
}

// NewPatchHandler constructs a patch handler.
func NewPatchHandler(service *readingsapp.Service, logger *log.Logger) (*PatchHandler, error) {
	if service == nil {
		return nil, errors.New("readings patch: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PatchHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles POST /api/patch-all-readings.
func (h *PatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, err := h.service.PatchCoordinates(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, readings.ErrNotFound):
		http.Error(w, "no readings found", http.StatusNotFound)
	default:
		h.logger.Printf("readings patch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":      false,
			"updatedCount": result.UpdatedCount,
			"error":        err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
