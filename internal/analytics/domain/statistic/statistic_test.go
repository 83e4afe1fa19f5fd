package statistic

import (
	"errors"
	"testing"
	"time"

	readings "co2-dashboard/internal/readings/domain"
)

var testCalendar = NewCalendar(time.UTC, time.Sunday)

func sample(t *testing.T, ts string, co2 float64) Sample {
	t.Helper()
	at, ok := testCalendar.Parse(ts)
	if !ok {
		t.Fatalf("parse %q failed", ts)
	}
	return Sample{Reading: readings.Reading{ID: ts, CO2: co2, Timestamp: ts}, At: at}
}

func located(t *testing.T, ts string, co2 float64, lat, lng string) Sample {
	t.Helper()
	s := sample(t, ts, co2)
	s.Lat, s.Lng = lat, lng
	return s
}

func TestMeanAndMax(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Fatalf("expected mean of empty to be 0, got %v", got)
	}
	if got := Mean([]float64{10, 20, 30}); got != 20 {
		t.Fatalf("expected mean 20, got %v", got)
	}
	if _, err := Max(nil); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
	if got, _ := Max([]float64{500, 700, 650}); got != 700 {
		t.Fatalf("expected max 700, got %v", got)
	}
	if got := Round(12.345, 1); got != 12.3 {
		t.Fatalf("expected 12.3, got %v", got)
	}
}

func TestCalendarParse(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	cal := NewCalendar(manila, time.Sunday)

	naive, ok := cal.Parse("2024-03-05 10:20:30")
	if !ok {
		t.Fatalf("expected naive timestamp to parse")
	}
	if naive.Location() != manila || naive.Hour() != 10 {
		t.Fatalf("expected 10:20 in calendar zone, got %v", naive)
	}

	offset, ok := cal.Parse("2024-03-05T02:20:30Z")
	if !ok {
		t.Fatalf("expected iso timestamp to parse")
	}
	if !offset.Equal(naive) {
		t.Fatalf("expected %v, got %v", naive, offset)
	}

	for _, bad := range []string{"", "yesterday"} {
		if _, ok := cal.Parse(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestMonthEarlierClamps(t *testing.T) {
	ref := time.Date(2024, time.March, 31, 9, 0, 0, 0, time.UTC)
	got := testCalendar.MonthEarlier(ref)
	want := time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	jan := testCalendar.MonthEarlier(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC))
	if jan.Year() != 2023 || jan.Month() != time.December || jan.Day() != 15 {
		t.Fatalf("expected 2023-12-15, got %v", jan)
	}
}

func TestSamplesDropUnparseable(t *testing.T) {
	rs := []readings.Reading{
		{ID: "a", CO2: 400, Timestamp: "2024-01-01 00:00:00"},
		{ID: "b", CO2: 999, Timestamp: "not a time"},
		{ID: "c", CO2: 420, Timestamp: ""},
	}
	samples := testCalendar.Samples(rs)
	if len(samples) != 1 || samples[0].ID != "a" {
		t.Fatalf("expected only reading a, got %+v", samples)
	}
}

func TestHourOfDayIsSeeded(t *testing.T) {
	ref := time.Date(2024, time.May, 10, 15, 0, 0, 0, time.UTC)
	samples := []Sample{
		sample(t, "2024-05-10 00:15:00", 400),
		sample(t, "2024-05-10 00:45:00", 500),
		sample(t, "2024-05-10 13:05:00", 600),
		sample(t, "2024-05-09 13:05:00", 9000),
	}
	set, err := testCalendar.Group(samples, GranularityHourOfDay, ref)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	labels := set.Labels()
	if len(labels) != 24 || labels[0] != "12 AM" || labels[13] != "1 PM" || labels[23] != "11 PM" {
		t.Fatalf("unexpected labels: %v", labels)
	}
	means := set.Means()
	if means[0] != 450 || means[13] != 600 || means[5] != 0 {
		t.Fatalf("unexpected means: %v", means)
	}
}

func TestWeekdayLabelsFollowWeekStart(t *testing.T) {
	monday := NewCalendar(time.UTC, time.Monday)
	ref := time.Date(2024, time.May, 12, 12, 0, 0, 0, time.UTC) // Sunday
	labels, err := monday.Labels(GranularityWeekday, ref)
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	want := []string{"Mon", "Tues", "Wed", "Thu", "Fri", "Sat", "Sun"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, labels)
		}
	}

	samples := []Sample{
		sample(t, "2024-05-06 08:00:00", 500), // Monday, same week
		sample(t, "2024-05-05 08:00:00", 900), // previous Sunday
	}
	set, err := monday.Group(samples, GranularityWeekday, ref)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if got, _ := set.Get("Mon"); got.Mean() != 500 {
		t.Fatalf("expected Mon mean 500, got %v", got.Mean())
	}
	if got, _ := set.Get("Sun"); got.Mean() != 0 {
		t.Fatalf("expected Sun outside week to be empty, got %v", got.Values)
	}
}

func TestDayOfMonthLabels(t *testing.T) {
	ref := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
	labels, err := testCalendar.Labels(GranularityDayOfMonth, ref)
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	if len(labels) != 29 || labels[0] != "Feb 1" || labels[28] != "Feb 29" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestDailyMeansMatchMonthlyFilter(t *testing.T) {
	samples := []Sample{
		sample(t, "2024-06-01 01:00:00", 400),
		sample(t, "2024-06-01 02:00:00", 500),
		sample(t, "2024-06-02 03:00:00", 600),
		sample(t, "2024-07-01 03:00:00", 1000),
	}
	set, err := testCalendar.Group(samples, GranularityDay, time.Time{})
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected lazily created day labels, got %v", set.Labels())
	}

	var june []float64
	for _, b := range set.Buckets() {
		if b.Label[:7] == "2024-06" {
			june = append(june, b.Values...)
		}
	}
	direct := Mean([]float64{400, 500, 600})
	if got := Mean(june); got != direct {
		t.Fatalf("expected %v, got %v", direct, got)
	}
}

func TestSpikeDetectorConsecutivePairs(t *testing.T) {
	values := []float64{400, 420, 480, 470, 600}
	samples := make([]Sample, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		ts := time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC).Format(TimestampLayout)
		samples = append(samples, sample(t, ts, values[i]))
	}

	report := NewSpikeDetector(0, 0).Detect(samples)
	if len(report.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(report.Events))
	}
	if report.Top[0].Magnitude != 130 || report.Top[1].Magnitude != 60 {
		t.Fatalf("expected [130 60], got [%v %v]", report.Top[0].Magnitude, report.Top[1].Magnitude)
	}
	if report.Critical == nil || report.Critical.To.CO2 != 600 {
		t.Fatalf("expected critical spike ending at 600, got %+v", report.Critical)
	}
}

func TestSpikeDetectorIgnoresGradualRise(t *testing.T) {
	var samples []Sample
	for i := 0; i < 10; i++ {
		ts := time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC).Format(TimestampLayout)
		samples = append(samples, sample(t, ts, 400+float64(i)*40))
	}
	report := NewSpikeDetector(50, 5).Detect(samples)
	if len(report.Events) != 0 || report.Critical != nil || report.Top == nil {
		t.Fatalf("expected no spikes, got %+v", report)
	}
}

func TestSpikeRankingTieBreak(t *testing.T) {
	samples := []Sample{
		sample(t, "2024-01-01 00:00:00", 400),
		sample(t, "2024-01-01 00:01:00", 500),
		sample(t, "2024-01-01 00:02:00", 400),
		sample(t, "2024-01-01 00:03:00", 500),
	}
	report := NewSpikeDetector(50, 1).Detect(samples)
	if len(report.Top) != 1 {
		t.Fatalf("expected top to be truncated to 1, got %d", len(report.Top))
	}
	if report.Top[0].From.Timestamp != "2024-01-01 00:00:00" {
		t.Fatalf("expected earliest spike to win the tie, got %s", report.Top[0].From.Timestamp)
	}
}

func TestLocationRankerModes(t *testing.T) {
	ref := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	samples := []Sample{
		located(t, "2024-05-10 11:30:00", 500, "10.3", "123.8"),
		located(t, "2024-05-10 11:45:00", 700, "10.3", "123.8"),
		located(t, "2024-05-01 08:00:00", 900, "10.4", "123.9"),
		located(t, "2024-05-10 11:50:00", 2000, "", "123.9"),
	}
	ranker := NewLocationRanker(testCalendar, 0, 0)

	peak, err := ranker.Rank(samples, LocationPeak, ref)
	if err != nil {
		t.Fatalf("rank peak: %v", err)
	}
	if len(peak) != 2 || peak[0].Value != 900 || peak[1].Value != 700 {
		t.Fatalf("unexpected peak ranking: %+v", peak)
	}

	avg, err := ranker.Rank(samples, LocationAverage, ref)
	if err != nil {
		t.Fatalf("rank avg: %v", err)
	}
	if len(avg) != 1 || avg[0].Value != 600 {
		t.Fatalf("expected single cluster with mean 600, got %+v", avg)
	}

	current, err := ranker.Rank(samples, LocationCurrent, ref)
	if err != nil {
		t.Fatalf("rank current: %v", err)
	}
	if len(current) != 1 || current[0].Coordinate != (readings.Coordinate{Lat: "10.3", Lng: "123.8"}) {
		t.Fatalf("unexpected current ranking: %+v", current)
	}

	if _, err := ranker.Rank(samples, LocationMode("hottest"), ref); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestLocationRankerKeepsLiteralCoordinates(t *testing.T) {
	ref := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	samples := []Sample{
		located(t, "2024-05-10 11:30:00", 500, "10.3", "123.8"),
		located(t, "2024-05-10 11:31:00", 500, "10.30", "123.8"),
	}
	clusters, err := NewLocationRanker(testCalendar, time.Hour, 5).Rank(samples, LocationCurrent, ref)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Coordinate.Lat != "10.3" {
		t.Fatalf("expected ties to keep first appearance order, got %+v", clusters)
	}
}

func TestMonthlyTrendSkipsEmptyMonths(t *testing.T) {
	ref := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	samples := []Sample{
		sample(t, "2024-01-05 00:00:00", 400),
		sample(t, "2024-01-06 00:00:00", 600),
		sample(t, "2024-03-01 00:00:00", 450),
		sample(t, "2023-12-31 00:00:00", 999),
	}
	points, err := testCalendar.MonthlyTrend(samples, 1, ref)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 months, got %+v", points)
	}
	if points[0].Month != "2024-01" || points[0].Mean != 500 || points[1].Month != "2024-03" {
		t.Fatalf("unexpected trend: %+v", points)
	}

	if _, err := testCalendar.MonthlyTrend(samples, 0, ref); !errors.Is(err, ErrInvalidYears) {
		t.Fatalf("expected ErrInvalidYears, got %v", err)
	}
}

func TestParseModes(t *testing.T) {
	if mode, err := ParseSeriesMode(""); err != nil || mode != SeriesDay {
		t.Fatalf("expected default day mode, got %v %v", mode, err)
	}
	if _, err := ParseSeriesMode("year"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if mode, err := ParseLocationMode(""); err != nil || mode != LocationCurrent {
		t.Fatalf("expected default current mode, got %v %v", mode, err)
	}
	if SeriesMonth.Granularity() != GranularityDayOfMonth {
		t.Fatalf("expected month series to use day of month buckets")
	}
}
