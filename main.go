package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	analyticsapp "co2-dashboard/internal/analytics/application"
	"co2-dashboard/internal/analytics/domain/statistic"
	analyticshttp "co2-dashboard/internal/analytics/interfaces/http"
	"co2-dashboard/internal/config"
	feed "co2-dashboard/internal/feed/domain"
	feedhttp "co2-dashboard/internal/feed/interfaces/http"
	"co2-dashboard/internal/geocode"
	"co2-dashboard/internal/observability/metrics"
	readingsapp "co2-dashboard/internal/readings/application"
	readings "co2-dashboard/internal/readings/domain"
	"co2-dashboard/internal/readings/infrastructure/memory"
	"co2-dashboard/internal/readings/infrastructure/postgres"
	readingshttp "co2-dashboard/internal/readings/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	var store readings.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		pgStore := postgres.NewStore(db, postgres.WithTable(cfg.ReadingsTable))
		metrics.Init(db, pgStore.Table(), logger)
		store = pgStore
	} else {
		logger.Printf("DATABASE_URL not set, readings are kept in memory")
		metrics.Init(nil, "", logger)
		store = memory.NewStore()
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("calendar error: %v", err)
	}
	weekStart, err := cfg.FirstDayOfWeek()
	if err != nil {
		logger.Fatalf("calendar error: %v", err)
	}
	calendar := statistic.NewCalendar(loc, weekStart)

	coords := cfg.Coordinates
	if len(coords) == 0 {
		coords = readingsapp.DefaultCoordinates
	}
	picker, err := readingsapp.NewCoordinatePicker(coords, nil)
	if err != nil {
		logger.Fatalf("coordinate set error: %v", err)
	}
	readingService, err := readingsapp.NewService(store, calendar, picker,
		readingsapp.WithCollection(cfg.Collection),
		readingsapp.WithBatchSize(cfg.WriteBatchSize),
		readingsapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("reading service error: %v", err)
	}

	geocoder, err := geocode.NewClient(cfg.GeocodeURL,
		geocode.WithUserAgent(cfg.GeocodeUserAgent),
		geocode.WithTimeout(time.Duration(cfg.GeocodeTimeout)),
		geocode.WithCacheSize(cfg.GeocodeCacheSize),
		geocode.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("geocode client error: %v", err)
	}

	dashboardService, err := analyticsapp.NewDashboardService(store, calendar,
		analyticsapp.WithCollection(cfg.Collection),
		analyticsapp.WithSpikeDetector(statistic.NewSpikeDetector(cfg.SpikeThreshold, cfg.TopN)),
		analyticsapp.WithLocationRanker(statistic.NewLocationRanker(calendar, time.Duration(cfg.CurrentWindow), cfg.TopN)),
		analyticsapp.WithGeocoder(geocoder),
		analyticsapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("dashboard service error: %v", err)
	}

	ingestHandler, err := readingshttp.NewIngestHandler(readingService, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	rangeHandler, err := readingshttp.NewRangeHandler(readingService, logger)
	if err != nil {
		logger.Fatalf("range handler error: %v", err)
	}
	patchHandler, err := readingshttp.NewPatchHandler(readingService, logger)
	if err != nil {
		logger.Fatalf("patch handler error: %v", err)
	}
	dashboardHandler, err := analyticshttp.NewHandler(dashboardService, logger)
	if err != nil {
		logger.Fatalf("dashboard handler error: %v", err)
	}
	feedHandler, err := feedhttp.NewHandler(feed.NewLogBuffer(cfg.FeedLogKeep), logger)
	if err != nil {
		logger.Fatalf("feed handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/log-readings", ingestHandler)
	mux.Handle("/api/range", rangeHandler)
	mux.Handle("/api/patch-all-readings", patchHandler)
	mux.Handle("/api/dashboard/", dashboardHandler)
	mux.Handle(feedhttp.PathLogs, feedHandler)
	mux.Handle(feedhttp.PathLatest, feedHandler)
	mux.Handle(feedhttp.PathBootstrap, feedHandler)
	mux.Handle(feedhttp.PathEntries, feedHandler)
	mux.Handle(feedhttp.PathExport, feedHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
