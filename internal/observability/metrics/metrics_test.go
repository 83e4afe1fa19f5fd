package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsCountAfterInit(t *testing.T) {
	Init(nil, "", nil)

	before := testutil.ToFloat64(dashboardRequests.WithLabelValues("summary", ResultNoData))
	ObserveDashboard("summary", ResultNoData, time.Millisecond)
	if got := testutil.ToFloat64(dashboardRequests.WithLabelValues("summary", ResultNoData)); got != before+1 {
		t.Fatalf("expected dashboard counter %v, got %v", before+1, got)
	}

	stored := testutil.ToFloat64(ingestReadings)
	ObserveIngest(ResultSuccess, 3)
	ObserveIngest(ResultError, 0)
	if got := testutil.ToFloat64(ingestReadings); got != stored+3 {
		t.Fatalf("expected %v stored readings, got %v", stored+3, got)
	}

	ObserveFeedAppend(ResultSuccess, 42)
	if got := testutil.ToFloat64(feedLogDepth); got != 42 {
		t.Fatalf("expected feed depth 42, got %v", got)
	}

	misses := testutil.ToFloat64(geocodeLookups.WithLabelValues(GeocodeMiss))
	IncGeocode(GeocodeMiss)
	if got := testutil.ToFloat64(geocodeLookups.WithLabelValues(GeocodeMiss)); got != misses+1 {
		t.Fatalf("expected geocode misses %v, got %v", misses+1, got)
	}
}
