package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	readings "co2-dashboard/internal/readings/domain"
)

// DefaultTable is the table readings are stored in.
const DefaultTable = "co2_readings"

// Store is a Postgres implementation of the reading store.
//
//	CREATE TABLE co2_readings (
//		collection TEXT NOT NULL,
//		id TEXT NOT NULL,
//		co2 DOUBLE PRECISION NOT NULL DEFAULT 0,
//		ts TEXT NOT NULL DEFAULT '',
//		lat TEXT NOT NULL DEFAULT '',
//		lng TEXT NOT NULL DEFAULT '',
//		upload_ts TEXT NOT NULL DEFAULT '',
//		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//		PRIMARY KEY (collection, id)
//	);
type Store struct {
	db    *sql.DB
	table string
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithTable overrides the default table name.
func WithTable(table string) StoreOption {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// NewStore constructs a store with the default table name.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	store := &Store{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

var fieldColumns = map[string]string{
	readings.FieldCO2:             "co2",
	readings.FieldTimestamp:       "ts",
	readings.FieldLat:             "lat",
	readings.FieldLng:             "lng",
	readings.FieldUploadTimestamp: "upload_ts",
}

// ReadAll loads every reading of a collection.
func (s *Store) ReadAll(ctx context.Context, collection string) (map[string]readings.Reading, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("readings store: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, co2, ts, lat, lng, upload_ts
FROM %s
WHERE collection = $1`, s.table)

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]readings.Reading)
	for rows.Next() {
		var (
			id string
			r  readings.Reading
		)
		if err := rows.Scan(&id, &r.CO2, &r.Timestamp, &r.Lat, &r.Lng, &r.UploadTimestamp); err != nil {
			return nil, err
		}
		result[id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, readings.ErrNotFound
	}
	return result, nil
}

// WriteMany applies all updates inside one transaction.
func (s *Store) WriteMany(ctx context.Context, updates readings.Updates) error {
	if s == nil || s.db == nil {
		return errors.New("readings store: nil db")
	}
	if len(updates) == 0 {
		return nil
	}

	type fieldUpdate struct {
		path  readings.Path
		value any
	}
	var (
		whole  []fieldUpdate
		fields []fieldUpdate
	)
	for raw, value := range updates {
		path, err := readings.ParsePath(raw)
		if err != nil {
			return err
		}
		if path.Field == "" {
			if _, ok := value.(readings.Reading); !ok {
				return fmt.Errorf("%w: %s expects a reading, got %T", readings.ErrInvalidValue, raw, value)
			}
			whole = append(whole, fieldUpdate{path: path, value: value})
			continue
		}
		var probe readings.Reading
		if err := probe.ApplyField(path.Field, value); err != nil {
			return err
		}
		fields = append(fields, fieldUpdate{path: path, value: value})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	upsert := fmt.Sprintf(`
INSERT INTO %s (
	collection,
	id,
	co2,
	ts,
	lat,
	lng,
	upload_ts
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (collection, id)
DO UPDATE SET
	co2 = EXCLUDED.co2,
	ts = EXCLUDED.ts,
	lat = EXCLUDED.lat,
	lng = EXCLUDED.lng,
	upload_ts = EXCLUDED.upload_ts,
	updated_at = NOW()`, s.table)

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, u := range whole {
		r := u.value.(readings.Reading)
		if _, err := stmt.ExecContext(ctx, u.path.Collection, u.path.ID, r.CO2, r.Timestamp, r.Lat, r.Lng, r.UploadTimestamp); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	for _, u := range fields {
		column := fieldColumns[u.path.Field]
		query := fmt.Sprintf(`
INSERT INTO %s (collection, id, %s) VALUES ($1, $2, $3)
ON CONFLICT (collection, id)
DO UPDATE SET %s = EXCLUDED.%s, updated_at = NOW()`, s.table, column, column, column)
		if _, err := tx.ExecContext(ctx, query, u.path.Collection, u.path.ID, u.value); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Table returns the table the store writes to.
func (s *Store) Table() string {
	if s == nil {
		return ""
	}
	return s.table
}
