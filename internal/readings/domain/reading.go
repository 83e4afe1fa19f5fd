package readings

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// DefaultCollection is the collection key readings are stored under.
const DefaultCollection = "log-readings"

// Reading is one stored CO2 sample. Its Timestamp doubles as its storage identity,
// so two readings sharing the same instant collide and the later write wins.
type Reading struct {
	ID              string  `json:"id,omitempty"`
	CO2             float64 `json:"co2"`
	Timestamp       string  `json:"timestamp"`
	Lat             string  `json:"lat,omitempty"`
	Lng             string  `json:"lng,omitempty"`
	UploadTimestamp string  `json:"uploadTimestamp,omitempty"`
}

// Coordinate is the exact literal position a sensor reported.
type Coordinate struct {
	Lat string `json:"lat" yaml:"lat"`
	Lng string `json:"lng" yaml:"lng"`
}

// Coordinate returns the reading position, false when either part is missing.
func (r Reading) Coordinate() (Coordinate, bool) {
	if r.Lat == "" || r.Lng == "" {
		return Coordinate{}, false
	}
	return Coordinate{Lat: r.Lat, Lng: r.Lng}, true
}

// Validate checks that the reading can be addressed by its timestamp.
func (r Reading) Validate() error {
	if r.Timestamp == "" {
		return fmt.Errorf("%w: empty timestamp", ErrInvalidReading)
	}
	if strings.Contains(r.Timestamp, "/") {
		return fmt.Errorf("%w: timestamp %q contains '/'", ErrInvalidReading, r.Timestamp)
	}
	return nil
}

// Field names addressable by a field update path.
const (
	FieldCO2             = "co2"
	FieldTimestamp       = "timestamp"
	FieldLat             = "lat"
	FieldLng             = "lng"
	FieldUploadTimestamp = "uploadTimestamp"
)

// ApplyField sets a single field from an update value.
func (r *Reading) ApplyField(field string, value any) error {
	switch field {
	case FieldCO2:
		switch v := value.(type) {
		case float64:
			r.CO2 = v
		case float32:
			r.CO2 = float64(v)
		case int:
			r.CO2 = float64(v)
		case int64:
			r.CO2 = float64(v)
		default:
			return fmt.Errorf("%w: co2 must be numeric, got %T", ErrInvalidValue, value)
		}
		return nil
	case FieldTimestamp, FieldLat, FieldLng, FieldUploadTimestamp:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidValue, field, value)
		}
		switch field {
		case FieldTimestamp:
			r.Timestamp = s
		case FieldLat:
			r.Lat = s
		case FieldLng:
			r.Lng = s
		default:
			r.UploadTimestamp = s
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidPath, field)
	}
}

// Updates maps slash separated paths to new values.
// "collection/id" takes a Reading, "collection/id/field" takes the field value.
type Updates map[string]any

// Path is a parsed update path.
type Path struct {
	Collection string
	ID         string
	Field      string
}

// ParsePath splits an update path into its parts.
func ParsePath(raw string) (Path, error) {
	parts := strings.Split(raw, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	for _, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
		}
	}
	p := Path{Collection: parts[0], ID: parts[1]}
	if len(parts) == 3 {
		switch parts[2] {
		case FieldCO2, FieldTimestamp, FieldLat, FieldLng, FieldUploadTimestamp:
			p.Field = parts[2]
		default:
			return Path{}, fmt.Errorf("%w: unknown field in %q", ErrInvalidPath, raw)
		}
	}
	return p, nil
}

// ReadingPath addresses a whole reading.
func ReadingPath(collection, id string) string {
	return collection + "/" + id
}

// FieldPath addresses one field of a reading.
func FieldPath(collection, id, field string) string {
	return collection + "/" + id + "/" + field
}

// Store is the capability the analytics core needs from reading storage.
type Store interface {
	// ReadAll returns every reading keyed by id, or ErrNotFound for an absent collection.
	ReadAll(ctx context.Context, collection string) (map[string]Reading, error)
	// WriteMany applies all updates as one unit.
	WriteMany(ctx context.Context, updates Updates) error
}

// SortedReadings flattens a collection into id order and fills in each reading's ID.
func SortedReadings(all map[string]Reading) []Reading {
	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]Reading, 0, len(keys))
	for _, key := range keys {
		r := all[key]
		r.ID = key
		out = append(out, r)
	}
	return out
}
