package client

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// FineWindow is the span of fine points kept for the chart, measured back from the newest point.
const FineWindow = 5 * time.Minute

// Point is one feed bucket normalized for display. Values the server sent in an
// unusable form are NaN.
type Point struct {
	At          time.Time
	Text        string
	Ambient     float64
	Filtered    float64
	Improvement float64
}

// Payload is one decoded feed response.
type Payload struct {
	Fine   []Point
	Coarse []Point
}

// DecodePayload reads a {g5, m1} feed body. Only a body that is not a JSON object
// fails; a series that is missing or not an array decodes as empty.
func DecodePayload(data []byte) (Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Payload{}, err
	}
	return Payload{
		Fine:   decodeSeries(raw["g5"]),
		Coarse: decodeSeries(raw["m1"]),
	}, nil
}

func decodeSeries(data json.RawMessage) []Point {
	var items []any
	if len(data) == 0 || json.Unmarshal(data, &items) != nil || items == nil {
		return []Point{}
	}
	points := make([]Point, 0, len(items))
	for _, item := range items {
		fields, _ := item.(map[string]any)
		epoch := number(fields, "epoch")
		if math.IsNaN(epoch) || math.IsInf(epoch, 0) {
			epoch = 0
		}
		text, _ := fields["timestamp"].(string)
		points = append(points, Point{
			At:          time.UnixMilli(int64(epoch * 1000)),
			Text:        text,
			Ambient:     number(fields, "ambient"),
			Filtered:    number(fields, "filtered"),
			Improvement: number(fields, "improvement"),
		})
	}
	return points
}

// number converts a loosely typed JSON value. Missing keys and unparseable strings
// are NaN, null is 0.
func number(fields map[string]any, key string) float64 {
	value, ok := fields[key]
	if !ok {
		return math.NaN()
	}
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return math.NaN()
		}
		return parsed
	default:
		return math.NaN()
	}
}

// State is everything the poll loop carries between cycles.
type State struct {
	Fine     []Point
	Coarse   []Point
	Failures int
}

// OnFetchSuccess replaces both windows with the payload and clears the failure count.
// The fine window keeps only points within FineWindow of its last point.
func (s State) OnFetchSuccess(p Payload) State {
	return State{
		Fine:     pruneFine(p.Fine),
		Coarse:   append([]Point(nil), p.Coarse...),
		Failures: 0,
	}
}

// OnFetchFailure counts a failed cycle; the windows stay as they were.
func (s State) OnFetchFailure() State {
	s.Failures++
	return s
}

func pruneFine(points []Point) []Point {
	if len(points) == 0 {
		return []Point{}
	}
	cutoff := points[len(points)-1].At.Add(-FineWindow)
	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if !p.At.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	return kept
}
