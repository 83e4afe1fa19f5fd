package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"co2-dashboard/internal/analytics/domain/statistic"
	readingsapp "co2-dashboard/internal/readings/application"
	readings "co2-dashboard/internal/readings/domain"
	"co2-dashboard/internal/readings/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const testCollection = "log-readings-it"

func TestPostgresStoreRoundTrip(t *testing.T) {
	db := openDB(t)
	defer db.Close()

	ctx := context.Background()
	cleanup(ctx, t, db)
	defer cleanup(ctx, t, db)

	store := postgres.NewStore(db)
	if _, err := store.ReadAll(ctx, testCollection); !errors.Is(err, readings.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ts := "2024-05-10 12:00:00"
	if err := store.WriteMany(ctx, readings.Updates{
		readings.ReadingPath(testCollection, ts): readings.Reading{CO2: 450, Timestamp: ts, UploadTimestamp: ts},
	}); err != nil {
		t.Fatalf("write reading: %v", err)
	}
	if err := store.WriteMany(ctx, readings.Updates{
		readings.FieldPath(testCollection, ts, readings.FieldLat): "10.3157",
		readings.FieldPath(testCollection, ts, readings.FieldLng): "123.8854",
	}); err != nil {
		t.Fatalf("write fields: %v", err)
	}

	all, err := store.ReadAll(ctx, testCollection)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	got := all[ts]
	if got.CO2 != 450 || got.Timestamp != ts || got.Lat != "10.3157" || got.Lng != "123.8854" {
		t.Fatalf("unexpected reading: %+v", got)
	}
}

func TestPostgresStoreRejectsBadBatch(t *testing.T) {
	db := openDB(t)
	defer db.Close()

	ctx := context.Background()
	cleanup(ctx, t, db)
	defer cleanup(ctx, t, db)

	store := postgres.NewStore(db)
	ts := "2024-05-10 12:00:00"
	err := store.WriteMany(ctx, readings.Updates{
		readings.ReadingPath(testCollection, ts):                  readings.Reading{CO2: 450, Timestamp: ts},
		readings.FieldPath(testCollection, ts, readings.FieldCO2): "high",
	})
	if !errors.Is(err, readings.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if _, err := store.ReadAll(ctx, testCollection); !errors.Is(err, readings.ErrNotFound) {
		t.Fatalf("expected nothing stored, got %v", err)
	}
}

func TestPostgresIngestAndRange(t *testing.T) {
	db := openDB(t)
	defer db.Close()

	ctx := context.Background()
	cleanup(ctx, t, db)
	defer cleanup(ctx, t, db)

	calendar := statistic.NewCalendar(time.UTC, time.Sunday)
	picker, err := readingsapp.NewCoordinatePicker(readingsapp.DefaultCoordinates, nil)
	if err != nil {
		t.Fatalf("picker: %v", err)
	}
	service, err := readingsapp.NewService(postgres.NewStore(db), calendar, picker,
		readingsapp.WithCollection(testCollection),
		readingsapp.WithBatchSize(2),
	)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	result, err := service.Ingest(ctx, readingsapp.IngestRequest{
		Readings: []readingsapp.IngestReading{
			{CO2: 410, Timestamp: "2024-05-10 08:00:00"},
			{CO2: 420, Timestamp: "2024-05-10 09:00:00"},
			{CO2: 430, Timestamp: "2024-05-11 09:00:00"},
		},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Stored != 3 {
		t.Fatalf("expected 3 stored, got %d", result.Stored)
	}

	got, err := service.Range(ctx, "2024-05-10", "2024-05-10")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if got.Count != 2 {
		t.Fatalf("expected 2 readings in range, got %d", got.Count)
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if !tableExists(db, postgres.DefaultTable) {
		db.Close()
		t.Skip("missing co2_readings table; see postgres.Store for the schema")
	}
	return db
}

func cleanup(ctx context.Context, t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.ExecContext(ctx, "DELETE FROM co2_readings WHERE collection = $1", testCollection); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
