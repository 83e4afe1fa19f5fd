package application

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"co2-dashboard/internal/analytics/domain/statistic"
	"co2-dashboard/internal/observability/metrics"
	readings "co2-dashboard/internal/readings/domain"
)

// geocodeConcurrency bounds simultaneous place-name lookups of one rollup.
const geocodeConcurrency = 5

// GeocodeResolver turns a coordinate into a place name. It reports false instead of failing.
type GeocodeResolver interface {
	Resolve(ctx context.Context, coord readings.Coordinate) (string, bool)
}

// DashboardService computes the dashboard views from the stored readings.
// Every call reads its own snapshot of the collection.
type DashboardService struct {
	store      readings.Store
	collection string
	calendar   statistic.Calendar
	clock      statistic.Clock
	detector   statistic.SpikeDetector
	ranker     statistic.LocationRanker
	geocoder   GeocodeResolver
	logger     *log.Logger
}

// Option configures the dashboard service.
type Option func(*DashboardService)

// WithCollection overrides the collection readings are read from.
func WithCollection(collection string) Option {
	return func(s *DashboardService) {
		if collection != "" {
			s.collection = collection
		}
	}
}

// WithClock overrides the reference clock.
func WithClock(clock statistic.Clock) Option {
	return func(s *DashboardService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSpikeDetector overrides spike threshold and ranking size.
func WithSpikeDetector(detector statistic.SpikeDetector) Option {
	return func(s *DashboardService) {
		s.detector = detector
	}
}

// WithLocationRanker overrides the location window and ranking size.
func WithLocationRanker(ranker statistic.LocationRanker) Option {
	return func(s *DashboardService) {
		s.ranker = ranker
	}
}

// WithGeocoder sets the place-name resolver. Without one, names stay empty.
func WithGeocoder(geocoder GeocodeResolver) Option {
	return func(s *DashboardService) {
		s.geocoder = geocoder
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *DashboardService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDashboardService constructs the service.
func NewDashboardService(store readings.Store, calendar statistic.Calendar, opts ...Option) (*DashboardService, error) {
	if store == nil {
		return nil, errors.New("dashboard: nil store")
	}
	s := &DashboardService{
		store:      store,
		collection: readings.DefaultCollection,
		calendar:   calendar,
		clock:      statistic.SystemClock{},
		detector:   statistic.NewSpikeDetector(0, 0),
		ranker:     statistic.NewLocationRanker(calendar, 0, 0),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CurrentView compares today with the same day one month earlier.
type CurrentView struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// MonthlyAverageView is the mean of the daily means of the current month.
type MonthlyAverageView struct {
	Value float64 `json:"value"`
}

// SpikeView is one ranked spike. Its position is that of the reading that jumped.
type SpikeView struct {
	Spike float64 `json:"spike"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	Lat   *string `json:"lat"`
	Lng   *string `json:"lng"`
}

// CriticalRegionView locates the largest spike.
type CriticalRegionView struct {
	Spike float64 `json:"spike"`
	Lat   *string `json:"lat"`
	Lng   *string `json:"lng"`
	City  *string `json:"city"`
}

// AlertsView summarizes the spikes of the current year.
type AlertsView struct {
	TotalWarnings  int                `json:"totalWarnings"`
	Top5           []SpikeView        `json:"top5"`
	CriticalRegion CriticalRegionView `json:"criticalRegion"`
}

// SummaryView is the dashboard headline.
type SummaryView struct {
	Current        CurrentView        `json:"current"`
	MonthlyAverage MonthlyAverageView `json:"monthlyAverage"`
	Alerts         AlertsView         `json:"alerts"`
}

// SpikeSeriesView is a chart of mean co2 per label.
type SpikeSeriesView struct {
	X []string `json:"x"`
	Y []int    `json:"y"`
}

// LocationView is one ranked location.
type LocationView struct {
	Location *string `json:"location"`
	Lat      string  `json:"lat"`
	Lng      string  `json:"lng"`
	Value    int     `json:"value"`
}

// TrendView maps "YYYY-MM" to the mean of that month.
type TrendView map[string]float64

// Summary computes the headline figures relative to now.
func (s *DashboardService) Summary(ctx context.Context) (SummaryView, error) {
	started := time.Now()
	samples, err := s.load(ctx)
	if err != nil {
		s.observe("summary", started, err)
		return SummaryView{}, err
	}
	now := s.clock.Now()
	lastMonth := s.calendar.MonthEarlier(now)

	var today, previous, yearly, monthly []statistic.Sample
	for _, sample := range samples {
		if s.calendar.SameDay(sample.At, now) {
			today = append(today, sample)
		}
		if s.calendar.SameDay(sample.At, lastMonth) {
			previous = append(previous, sample)
		}
		if s.calendar.SameMonth(sample.At, now) {
			monthly = append(monthly, sample)
		}
		if s.calendar.SameYear(sample.At, now) {
			yearly = append(yearly, sample)
		}
	}

	todayAvg := statistic.Mean(statistic.Values(today))
	previousAvg := statistic.Mean(statistic.Values(previous))
	change := 0.0
	if previousAvg != 0 {
		change = (todayAvg - previousAvg) / previousAvg * 100
	}

	days, err := s.calendar.Group(monthly, statistic.GranularityDay, now)
	if err != nil {
		s.observe("summary", started, err)
		return SummaryView{}, err
	}
	monthlyAvg := statistic.Mean(days.Means())

	report := s.detector.Detect(yearly)
	alerts := AlertsView{
		TotalWarnings: len(report.Events),
		Top5:          make([]SpikeView, 0, len(report.Top)),
	}
	for _, event := range report.Top {
		alerts.Top5 = append(alerts.Top5, SpikeView{
			Spike: statistic.Round(event.Magnitude, 1),
			From:  event.From.Timestamp,
			To:    event.To.Timestamp,
			Lat:   optional(event.To.Lat),
			Lng:   optional(event.To.Lng),
		})
	}
	if critical := report.Critical; critical != nil {
		alerts.CriticalRegion = CriticalRegionView{
			Spike: statistic.Round(critical.Magnitude, 1),
			Lat:   optional(critical.To.Lat),
			Lng:   optional(critical.To.Lng),
		}
		if coord, ok := critical.To.Coordinate(); ok {
			alerts.CriticalRegion.City = s.resolve(ctx, coord)
		}
	}

	s.observe("summary", started, nil)
	return SummaryView{
		Current: CurrentView{
			Value:  statistic.Round(todayAvg, 1),
			Change: statistic.Round(change, 1),
		},
		MonthlyAverage: MonthlyAverageView{Value: statistic.Round(monthlyAvg, 1)},
		Alerts:         alerts,
	}, nil
}

// SpikeSeries charts the mean of every hour, weekday or day of the current period.
func (s *DashboardService) SpikeSeries(ctx context.Context, mode statistic.SeriesMode) (SpikeSeriesView, error) {
	started := time.Now()
	if _, err := statistic.ParseSeriesMode(string(mode)); err != nil {
		s.observe("spike_series", started, err)
		return SpikeSeriesView{}, err
	}
	if mode == "" {
		mode = statistic.SeriesDay
	}
	samples, err := s.load(ctx)
	if err != nil {
		s.observe("spike_series", started, err)
		return SpikeSeriesView{}, err
	}
	set, err := s.calendar.Group(samples, mode.Granularity(), s.clock.Now())
	if err != nil {
		s.observe("spike_series", started, err)
		return SpikeSeriesView{}, err
	}
	view := SpikeSeriesView{X: set.Labels(), Y: make([]int, 0, set.Len())}
	for _, mean := range set.Means() {
		view.Y = append(view.Y, int(math.Round(mean)))
	}
	s.observe("spike_series", started, nil)
	return view, nil
}

// LocationRollup ranks locations and annotates each with a place name. Lookups run
// concurrently and all finish before the result is returned.
func (s *DashboardService) LocationRollup(ctx context.Context, mode statistic.LocationMode) ([]LocationView, error) {
	started := time.Now()
	if _, err := statistic.ParseLocationMode(string(mode)); err != nil {
		s.observe("location_rollup", started, err)
		return nil, err
	}
	if mode == "" {
		mode = statistic.LocationCurrent
	}
	samples, err := s.load(ctx)
	if err != nil {
		s.observe("location_rollup", started, err)
		return nil, err
	}
	clusters, err := s.ranker.Rank(samples, mode, s.clock.Now())
	if err != nil {
		s.observe("location_rollup", started, err)
		return nil, err
	}

	views := make([]LocationView, len(clusters))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(geocodeConcurrency)
	for i, cluster := range clusters {
		views[i] = LocationView{
			Lat:   cluster.Coordinate.Lat,
			Lng:   cluster.Coordinate.Lng,
			Value: int(math.Round(cluster.Value)),
		}
		group.Go(func() error {
			views[i].Location = s.resolve(groupCtx, cluster.Coordinate)
			return nil
		})
	}
	_ = group.Wait()

	s.observe("location_rollup", started, nil)
	return views, nil
}

// HistoricalTrend returns the monthly means of the last years calendar years.
func (s *DashboardService) HistoricalTrend(ctx context.Context, years int) (TrendView, error) {
	started := time.Now()
	if years <= 0 {
		err := statistic.ErrInvalidYears
		s.observe("historical_trend", started, err)
		return nil, err
	}
	samples, err := s.load(ctx)
	if err != nil {
		s.observe("historical_trend", started, err)
		return nil, err
	}
	points, err := s.calendar.MonthlyTrend(samples, years, s.clock.Now())
	if err != nil {
		s.observe("historical_trend", started, err)
		return nil, err
	}
	view := make(TrendView, len(points))
	for _, p := range points {
		view[p.Month] = p.Mean
	}
	s.observe("historical_trend", started, nil)
	return view, nil
}

func (s *DashboardService) load(ctx context.Context) ([]statistic.Sample, error) {
	all, err := s.store.ReadAll(ctx, s.collection)
	if err != nil {
		if !errors.Is(err, readings.ErrNotFound) {
			s.logger.Printf("dashboard: read readings failed: collection=%s err=%v", s.collection, err)
		}
		return nil, err
	}
	return s.calendar.Samples(readings.SortedReadings(all)), nil
}

func (s *DashboardService) resolve(ctx context.Context, coord readings.Coordinate) *string {
	if s.geocoder == nil {
		return nil
	}
	name, ok := s.geocoder.Resolve(ctx, coord)
	if !ok {
		return nil
	}
	return &name
}

func (s *DashboardService) observe(operation string, started time.Time, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, readings.ErrNotFound):
		result = metrics.ResultNoData
	case errors.Is(err, statistic.ErrInvalidMode), errors.Is(err, statistic.ErrInvalidYears):
		result = metrics.ResultInvalid
	default:
		result = metrics.ResultError
	}
	metrics.ObserveDashboard(operation, result, time.Since(started))
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
