package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"co2-dashboard/internal/analytics/domain/statistic"
	readingsapp "co2-dashboard/internal/readings/application"
	readings "co2-dashboard/internal/readings/domain"
	"co2-dashboard/internal/readings/infrastructure/memory"
)

func newService(t *testing.T, store readings.Store) *readingsapp.Service {
	t.Helper()
	picker, err := readingsapp.NewCoordinatePicker(readingsapp.DefaultCoordinates, rand.New(rand.NewPCG(7, 7)))
	if err != nil {
		t.Fatalf("picker: %v", err)
	}
	service, err := readingsapp.NewService(store, statistic.NewCalendar(time.UTC, time.Sunday), picker,
		readingsapp.WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return service
}

func TestIngestHandler(t *testing.T) {
	store := memory.NewStore()
	handler, err := NewIngestHandler(newService(t, store), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	body := []byte(`{"timestamp":"2024-05-10 12:00:00","readings":[{"co2":450,"timestamp":"2024-05-10 11:59:00"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/log-readings", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
		BatchID string `json:"batchId"`
		Stored  int    `json:"stored"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Readings successfully logged." || resp.Stored != 1 || resp.BatchID == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	all, err := store.ReadAll(context.Background(), readings.DefaultCollection)
	if err != nil || all["2024-05-10 11:59:00"].CO2 != 450 {
		t.Fatalf("expected reading stored, got %v %v", all, err)
	}
}

func TestIngestHandlerRejectsBadPayloads(t *testing.T) {
	handler, err := NewIngestHandler(newService(t, memory.NewStore()), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	cases := []string{
		`not json`,
		`{"timestamp":"2024-05-10 12:00:00"}`,
		`{"readings":[{"co2":1,"timestamp":""}]}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/log-readings", bytes.NewReader([]byte(body)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/log-readings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRangeHandler(t *testing.T) {
	store := memory.NewStore()
	_ = store.WriteMany(context.Background(), readings.Updates{
		readings.ReadingPath(readings.DefaultCollection, "2024-05-10 08:00:00"): readings.Reading{CO2: 410, Timestamp: "2024-05-10 08:00:00"},
	})
	handler, err := NewRangeHandler(newService(t, store), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	cases := []struct {
		query string
		want  int
	}{
		{"?from=2024-05-10&to=2024-05-10", http.StatusOK},
		{"?from=2024-05-10", http.StatusBadRequest},
		{"?from=soon&to=2024-05-10", http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/range"+tc.query, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("expected %d for %s, got %d", tc.want, tc.query, rec.Code)
		}
	}

	empty, _ := NewRangeHandler(newService(t, memory.NewStore()), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/range?from=2024-05-10&to=2024-05-10", nil)
	rec := httptest.NewRecorder()
	empty.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPatchHandler(t *testing.T) {
	store := memory.NewStore()
	handler, err := NewPatchHandler(newService(t, store), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/patch-all-readings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on empty store, got %d", rec.Code)
	}

	_ = store.WriteMany(context.Background(), readings.Updates{
		readings.ReadingPath(readings.DefaultCollection, "2024-05-10 08:00:00"): readings.Reading{CO2: 410, Timestamp: "2024-05-10 08:00:00"},
	})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/patch-all-readings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result readingsapp.PatchResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.UpdatedCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}
