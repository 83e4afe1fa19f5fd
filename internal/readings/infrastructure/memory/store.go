package memory

import (
	"context"
	"fmt"
	"sync"

	readings "co2-dashboard/internal/readings/domain"
)

// Store is an in-memory reading store for local runs and tests.
// Each WriteMany is validated in full before anything is applied.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]readings.Reading
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]readings.Reading)}
}

// ReadAll returns a copy of the collection.
func (s *Store) ReadAll(ctx context.Context, collection string) (map[string]readings.Reading, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	if len(docs) == 0 {
		return nil, readings.ErrNotFound
	}
	out := make(map[string]readings.Reading, len(docs))
	for id, r := range docs {
		out[id] = r
	}
	return out, nil
}

// WriteMany applies whole-reading and field updates atomically.
func (s *Store) WriteMany(ctx context.Context, updates readings.Updates) error {
	_ = ctx
	if len(updates) == 0 {
		return nil
	}

	type op struct {
		path  readings.Path
		value any
	}
	ops := make([]op, 0, len(updates))
	for raw, value := range updates {
		path, err := readings.ParsePath(raw)
		if err != nil {
			return err
		}
		if path.Field == "" {
			if _, ok := value.(readings.Reading); !ok {
				return fmt.Errorf("%w: %s expects a reading, got %T", readings.ErrInvalidValue, raw, value)
			}
		}
		ops = append(ops, op{path: path, value: value})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage against copies so a failing field update leaves the store untouched.
	staged := make(map[string]map[string]readings.Reading)
	docsFor := func(collection string) map[string]readings.Reading {
		if docs, ok := staged[collection]; ok {
			return docs
		}
		docs := make(map[string]readings.Reading, len(s.collections[collection]))
		for id, r := range s.collections[collection] {
			docs[id] = r
		}
		staged[collection] = docs
		return docs
	}

	// Whole-reading writes first so field writes in the same batch land on top of them.
	for _, o := range ops {
		if o.path.Field != "" {
			continue
		}
		r := o.value.(readings.Reading)
		r.ID = ""
		docsFor(o.path.Collection)[o.path.ID] = r
	}
	for _, o := range ops {
		if o.path.Field == "" {
			continue
		}
		docs := docsFor(o.path.Collection)
		r := docs[o.path.ID]
		if err := r.ApplyField(o.path.Field, o.value); err != nil {
			return err
		}
		docs[o.path.ID] = r
	}

	for collection, docs := range staged {
		s.collections[collection] = docs
	}
	return nil
}
