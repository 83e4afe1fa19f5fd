package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"co2-dashboard/internal/analytics/domain/statistic"
	"co2-dashboard/internal/observability/metrics"
	readings "co2-dashboard/internal/readings/domain"
)

// DefaultBatchSize is how many keys one store write carries.
const DefaultBatchSize = 1000

// ErrInvalidRange is returned when a range bound is missing or not a date.
var ErrInvalidRange = errors.New("readings: invalid range")

// Service stores and queries raw readings.
type Service struct {
	store      readings.Store
	collection string
	calendar   statistic.Calendar
	clock      statistic.Clock
	picker     *CoordinatePicker
	batchSize  int
	logger     *log.Logger
}

// Option configures the service.
type Option func(*Service)

// WithCollection overrides the collection readings live in.
func WithCollection(collection string) Option {
	return func(s *Service) {
		if collection != "" {
			s.collection = collection
		}
	}
}

// WithBatchSize overrides the number of keys per store write.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithClock overrides the clock used for upload timestamps.
func WithClock(clock statistic.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a reading service.
func NewService(store readings.Store, calendar statistic.Calendar, picker *CoordinatePicker, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("readings: nil store")
	}
	if picker == nil {
		return nil, errors.New("readings: nil coordinate picker")
	}
	s := &Service{
		store:      store,
		collection: readings.DefaultCollection,
		calendar:   calendar,
		clock:      statistic.SystemClock{},
		picker:     picker,
		batchSize:  DefaultBatchSize,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IngestReading is one sensor sample of an ingest request.
type IngestReading struct {
	CO2       float64 `json:"co2"`
	Timestamp string  `json:"timestamp"`
	Lat       string  `json:"lat,omitempty"`
	Lng       string  `json:"lng,omitempty"`
}

// IngestRequest is a batch of samples uploaded together.
type IngestRequest struct {
	Readings  []IngestReading `json:"readings"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// IngestResult describes a stored batch.
type IngestResult struct {
	BatchID         string `json:"batchId"`
	Stored          int    `json:"stored"`
	UploadTimestamp string `json:"uploadTimestamp"`
}

// Ingest stores every reading of the request keyed by its own timestamp. Readings
// without a full position get one from the coordinate set. Writes go out in batches;
// a failed batch leaves earlier batches stored.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	batchID := uuid.NewString()
	uploadTS := req.Timestamp
	if uploadTS == "" {
		uploadTS = s.calendar.Format(s.clock.Now())
	}

	docs := make([]readings.Reading, 0, len(req.Readings))
	for i, in := range req.Readings {
		r := readings.Reading{
			CO2:             in.CO2,
			Timestamp:       in.Timestamp,
			Lat:             in.Lat,
			Lng:             in.Lng,
			UploadTimestamp: uploadTS,
		}
		if err := r.Validate(); err != nil {
			metrics.ObserveIngest(metrics.ResultInvalid, 0)
			return IngestResult{}, fmt.Errorf("reading %d: %w", i, err)
		}
		if _, ok := r.Coordinate(); !ok {
			coord := s.picker.Pick()
			r.Lat, r.Lng = coord.Lat, coord.Lng
		}
		docs = append(docs, r)
	}

	stored := 0
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		updates := make(readings.Updates, end-start)
		for _, r := range docs[start:end] {
			updates[readings.ReadingPath(s.collection, r.Timestamp)] = r
		}
		if err := s.store.WriteMany(ctx, updates); err != nil {
			metrics.IncStoreBatch("ingest", metrics.ResultError)
			metrics.ObserveIngest(metrics.ResultError, stored)
			s.logger.Printf("readings ingest: write batch failed: batch=%s offset=%d err=%v", batchID, start, err)
			return IngestResult{}, err
		}
		metrics.IncStoreBatch("ingest", metrics.ResultSuccess)
		stored += end - start
	}

	metrics.ObserveIngest(metrics.ResultSuccess, stored)
	s.logger.Printf("readings ingest: stored batch=%s readings=%d", batchID, stored)
	return IngestResult{BatchID: batchID, Stored: stored, UploadTimestamp: uploadTS}, nil
}

// RangeResult lists the readings of a date range.
type RangeResult struct {
	From     string             `json:"from"`
	To       string             `json:"to"`
	Count    int                `json:"count"`
	Readings []readings.Reading `json:"readings"`
}

// Range returns readings from the start of the from day up to, but excluding, the
// start of the day after to.
func (s *Service) Range(ctx context.Context, from, to string) (RangeResult, error) {
	if from == "" || to == "" {
		return RangeResult{}, fmt.Errorf("%w: missing from or to", ErrInvalidRange)
	}
	fromAt, ok := s.calendar.Parse(from)
	if !ok {
		return RangeResult{}, fmt.Errorf("%w: from %q", ErrInvalidRange, from)
	}
	toAt, ok := s.calendar.Parse(to)
	if !ok {
		return RangeResult{}, fmt.Errorf("%w: to %q", ErrInvalidRange, to)
	}
	start := s.calendar.StartOfDay(fromAt)
	end := s.calendar.StartOfDay(toAt).AddDate(0, 0, 1)

	all, err := s.store.ReadAll(ctx, s.collection)
	if err != nil {
		return RangeResult{}, err
	}
	selected := make([]readings.Reading, 0)
	for _, sample := range s.calendar.Samples(readings.SortedReadings(all)) {
		if sample.At.Before(start) || !sample.At.Before(end) {
			continue
		}
		selected = append(selected, sample.Reading)
	}
	return RangeResult{
		From:     s.calendar.Format(start),
		To:       s.calendar.Format(end),
		Count:    len(selected),
		Readings: selected,
	}, nil
}

// PatchResult reports a coordinate patch run.
type PatchResult struct {
	Success      bool   `json:"success"`
	UpdatedCount int    `json:"updatedCount"`
	Message      string `json:"message"`
}

// PatchCoordinates assigns a coordinate from the set to every stored reading,
// overwriting existing positions. Batches are written one after another; when one
// fails the earlier ones stay applied and the count reflects them.
func (s *Service) PatchCoordinates(ctx context.Context) (PatchResult, error) {
	all, err := s.store.ReadAll(ctx, s.collection)
	if err != nil {
		return PatchResult{}, err
	}
	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	started := time.Now()
	updated := 0
	for start := 0; start < len(keys); start += s.batchSize {
		end := min(start+s.batchSize, len(keys))
		updates := make(readings.Updates, 2*(end-start))
		for _, key := range keys[start:end] {
			coord := s.picker.Pick()
			updates[readings.FieldPath(s.collection, key, readings.FieldLat)] = coord.Lat
			updates[readings.FieldPath(s.collection, key, readings.FieldLng)] = coord.Lng
		}
		if err := s.store.WriteMany(ctx, updates); err != nil {
			metrics.IncStoreBatch("patch", metrics.ResultError)
			s.logger.Printf("readings patch: batch %d failed after %d updated: %v", start/s.batchSize+1, updated, err)
			return PatchResult{UpdatedCount: updated}, err
		}
		metrics.IncStoreBatch("patch", metrics.ResultSuccess)
		updated += end - start
		s.logger.Printf("readings patch: batch %d updated %d", start/s.batchSize+1, end-start)
	}

	s.logger.Printf("readings patch: done updated=%d in %s", updated, time.Since(started))
	return PatchResult{
		Success:      true,
		UpdatedCount: updated,
		Message:      fmt.Sprintf("Successfully added lat/lng to %d readings", updated),
	}, nil
}
