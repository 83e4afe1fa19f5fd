package client

import (
	"math"
	"testing"
	"time"
)

func TestDecodePayloadTolerance(t *testing.T) {
	body := []byte(`{
		"g5": [
			{"epoch": 100, "timestamp": "10:00:00", "ambient": 800, "filtered": "600", "improvement": 25},
			{"epoch": 105, "ambient": null, "filtered": "", "improvement": "n/a"},
			{"epoch": 110, "ambient": true, "filtered": false},
			"garbage"
		],
		"m1": {"not": "an array"}
	}`)
	payload, err := DecodePayload(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Fine) != 4 {
		t.Fatalf("expected 4 fine points, got %d", len(payload.Fine))
	}
	if len(payload.Coarse) != 0 {
		t.Fatalf("expected non-array series to decode empty, got %d", len(payload.Coarse))
	}

	first := payload.Fine[0]
	if !first.At.Equal(time.Unix(100, 0)) || first.Text != "10:00:00" || first.Filtered != 600 || first.Improvement != 25 {
		t.Fatalf("unexpected first point %+v", first)
	}
	second := payload.Fine[1]
	if second.Ambient != 0 || second.Filtered != 0 || !math.IsNaN(second.Improvement) {
		t.Fatalf("unexpected second point %+v", second)
	}
	third := payload.Fine[2]
	if third.Ambient != 1 || third.Filtered != 0 || !math.IsNaN(third.Improvement) {
		t.Fatalf("unexpected third point %+v", third)
	}
	if last := payload.Fine[3]; !last.At.Equal(time.Unix(0, 0)) || !math.IsNaN(last.Ambient) {
		t.Fatalf("unexpected garbage point %+v", last)
	}
}

func TestDecodePayloadRejectsNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `"text"`, `<html>`} {
		if _, err := DecodePayload([]byte(body)); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
	payload, err := DecodePayload([]byte(`{}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Fine == nil || payload.Coarse == nil || len(payload.Fine) != 0 {
		t.Fatalf("expected empty series, got %+v", payload)
	}
}

func TestOnFetchSuccessPrunesFineWindow(t *testing.T) {
	base := time.Unix(1_000, 0)
	payload := Payload{
		Fine: []Point{
			{At: base},
			{At: base.Add(time.Minute)},
			{At: base.Add(6 * time.Minute)},
		},
		Coarse: []Point{{At: base}},
	}
	state := State{Failures: 4}.OnFetchSuccess(payload)
	if state.Failures != 0 {
		t.Fatalf("expected failures reset, got %d", state.Failures)
	}
	// Cutoff is base+1m; the point exactly on it is kept.
	if len(state.Fine) != 2 || !state.Fine[0].At.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected fine window %+v", state.Fine)
	}
	if len(state.Coarse) != 1 {
		t.Fatalf("expected coarse replaced, got %d", len(state.Coarse))
	}

	payload.Coarse[0].Text = "mutated"
	if state.Coarse[0].Text == "mutated" {
		t.Fatalf("expected coarse window to be copied")
	}
}

func TestOnFetchFailureKeepsWindows(t *testing.T) {
	state := State{}.OnFetchSuccess(Payload{Fine: []Point{{At: time.Unix(1, 0)}}, Coarse: []Point{{}}})
	state = state.OnFetchFailure().OnFetchFailure()
	if state.Failures != 2 || len(state.Fine) != 1 || len(state.Coarse) != 1 {
		t.Fatalf("unexpected state %+v", state)
	}
	state = state.OnFetchSuccess(Payload{})
	if state.Failures != 0 || len(state.Fine) != 0 || len(state.Coarse) != 0 {
		t.Fatalf("expected an empty payload to clear the windows, got %+v", state)
	}
}
