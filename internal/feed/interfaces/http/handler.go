package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	feed "co2-dashboard/internal/feed/domain"
	"co2-dashboard/internal/observability/metrics"
)

// Route paths served by Handler.
const (
	PathLogs      = "/api/logs"
	PathLatest    = "/api/latest"
	PathBootstrap = "/api/bootstrap"
	PathEntries   = "/api/feed/entries"
	PathExport    = "/export.xlsx"
)

const (
	timestampLayout  = "2006-01-02 15:04:05"
	defaultBootstrap = 180
)

// Handler serves the live feed.
type Handler struct {
	buffer *feed.LogBuffer
	logger *log.Logger
	now    func() time.Time
}

// NewHandler constructs a feed handler.
func NewHandler(buffer *feed.LogBuffer, logger *log.Logger) (*Handler, error) {
	if buffer == nil {
		return nil, errors.New("feed handler: nil buffer")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{buffer: buffer, logger: logger, now: time.Now}, nil
}

// ServeHTTP dispatches the feed routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case PathEntries:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleAppend(w, r)
		return
	case PathLogs, PathLatest, PathBootstrap, PathExport:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	switch r.URL.Path {
	case PathLogs:
		h.handleLogs(w, r)
	case PathLatest:
		h.handleLatest(w)
	case PathBootstrap:
		h.handleBootstrap(w, r)
	case PathExport:
		h.handleExport(w)
	}
}

// LogsResponse carries the fine and coarse bucket series.
type LogsResponse struct {
	G5 []feed.Frame `json:"g5"`
	M1 []feed.Frame `json:"m1"`
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fineLimit := parseLimit(query.Get("g5"), feed.DefaultFineLimit)
	coarseLimit := parseLimit(query.Get("m1"), feed.DefaultCoarseLimit)

	fine, coarse := feed.BuildBuckets(h.buffer.Snapshot(), fineLimit, coarseLimit)
	writeJSON(w, LogsResponse{G5: feed.Frames(fine), M1: feed.Frames(coarse)})
}

func (h *Handler) handleLatest(w http.ResponseWriter) {
	latest, ok := h.buffer.Latest()
	if !ok {
		writeJSON(w, struct{}{})
		return
	}
	writeJSON(w, latest.Frame())
}

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), defaultBootstrap)
	entries := h.buffer.Recent(limit)
	frames := make([]feed.Frame, 0, len(entries))
	for _, e := range entries {
		frames = append(frames, e.Frame())
	}
	writeJSON(w, map[string]any{"logs": frames})
}

func (h *Handler) handleExport(w http.ResponseWriter) {
	data, err := BuildLogXLSX(h.buffer.Snapshot())
	if err != nil {
		h.logger.Printf("feed export: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="logs.xlsx"`)
	_, _ = w.Write(data)
}

type appendRequest struct {
	Timestamp string   `json:"timestamp"`
	Epoch     int64    `json:"epoch"`
	Ambient   *float64 `json:"ambient"`
	Filtered  *float64 `json:"filtered"`
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req appendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		metrics.ObserveFeedAppend(metrics.ResultInvalid, h.buffer.Len())
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Ambient == nil || req.Filtered == nil {
		metrics.ObserveFeedAppend(metrics.ResultInvalid, h.buffer.Len())
		http.Error(w, "ambient and filtered are required", http.StatusBadRequest)
		return
	}
	now := h.now()
	if req.Epoch == 0 {
		req.Epoch = now.Unix()
	}
	if req.Timestamp == "" {
		req.Timestamp = time.Unix(req.Epoch, 0).In(now.Location()).Format(timestampLayout)
	}

	entry, err := feed.NewLogEntry(req.Timestamp, req.Epoch, *req.Ambient, *req.Filtered)
	if err == nil {
		err = h.buffer.Append(entry)
	}
	switch {
	case err == nil:
		metrics.ObserveFeedAppend(metrics.ResultSuccess, h.buffer.Len())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(entry.Frame())
	case errors.Is(err, feed.ErrDuplicateEpoch):
		metrics.ObserveFeedAppend(metrics.ResultInvalid, h.buffer.Len())
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		metrics.ObserveFeedAppend(metrics.ResultInvalid, h.buffer.Len())
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 || value > feed.MaxLimit {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
