package application

import (
	"errors"
	"math/rand/v2"
	"sync"

	readings "co2-dashboard/internal/readings/domain"
)

// DefaultCoordinates are the sensor sites assigned to readings that arrive without a position.
var DefaultCoordinates = []readings.Coordinate{
	{Lng: "123.8854", Lat: "10.3157"},
	{Lng: "123.9687", Lat: "10.2970"},
	{Lng: "123.8426", Lat: "10.3882"},
	{Lng: "123.6258", Lat: "10.7760"},
	{Lng: "123.9944", Lat: "10.2955"},
	{Lng: "123.9053", Lat: "10.3280"},
	{Lng: "123.7844", Lat: "9.6057"},
	{Lng: "123.5747", Lat: "9.9843"},
	{Lng: "123.9645", Lat: "10.2793"},
	{Lng: "123.8476", Lat: "10.3431"},
	{Lng: "123.6256", Lat: "11.2623"},
	{Lng: "123.9689", Lat: "10.3353"},
	{Lng: "123.4500", Lat: "10.0516"},
	{Lng: "123.9754", Lat: "10.2942"},
	{Lng: "123.6102", Lat: "10.3853"},
	{Lng: "123.9813", Lat: "10.3526"},
	{Lng: "124.0300", Lat: "10.6089"},
	{Lng: "123.5110", Lat: "10.1321"},
	{Lng: "124.0347", Lat: "11.0710"},
	{Lng: "123.9769", Lat: "10.4021"},
}

// CoordinatePicker draws coordinates uniformly from a fixed set.
type CoordinatePicker struct {
	mu     sync.Mutex
	rng    *rand.Rand
	coords []readings.Coordinate
}

// NewCoordinatePicker constructs a picker. A nil rng is seeded randomly.
func NewCoordinatePicker(coords []readings.Coordinate, rng *rand.Rand) (*CoordinatePicker, error) {
	if len(coords) == 0 {
		return nil, errors.New("readings: empty coordinate set")
	}
	for _, c := range coords {
		if c.Lat == "" || c.Lng == "" {
			return nil, errors.New("readings: coordinate missing lat or lng")
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	copied := make([]readings.Coordinate, len(coords))
	copy(copied, coords)
	return &CoordinatePicker{rng: rng, coords: copied}, nil
}

// Pick returns one coordinate from the set.
func (p *CoordinatePicker) Pick() readings.Coordinate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coords[p.rng.IntN(len(p.coords))]
}
