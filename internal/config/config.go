package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"

	readings "co2-dashboard/internal/readings/domain"
)

// Duration accepts Go duration syntax ("90s") or ISO-8601 ("PT1H") in YAML.
type Duration time.Duration

// UnmarshalYAML decodes a duration scalar.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// ParseDuration parses Go or ISO-8601 duration syntax.
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed, nil
	}
	iso, err := duration.Parse(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q", value)
	}
	return iso.ToTimeDuration(), nil
}

// Config is the service configuration.
type Config struct {
	HTTPAddr         string                `yaml:"http_addr"`
	DatabaseURL      string                `yaml:"database_url"`
	ReadingsTable    string                `yaml:"readings_table"`
	Collection       string                `yaml:"collection"`
	CalendarTZ       string                `yaml:"calendar_tz"`
	WeekStart        string                `yaml:"week_start"`
	SpikeThreshold   float64               `yaml:"spike_threshold"`
	TopN             int                   `yaml:"top_n"`
	CurrentWindow    Duration              `yaml:"current_window"`
	WriteBatchSize   int                   `yaml:"write_batch_size"`
	Coordinates      []readings.Coordinate `yaml:"coordinates"`
	GeocodeURL       string                `yaml:"geocode_url"`
	GeocodeUserAgent string                `yaml:"geocode_user_agent"`
	GeocodeTimeout   Duration              `yaml:"geocode_timeout"`
	GeocodeCacheSize int                   `yaml:"geocode_cache_size"`
	FeedLogKeep      int                   `yaml:"feed_log_keep"`
}

// Load reads the environment, then overlays the YAML file named by CO2_CONFIG.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		ReadingsTable:    getenvDefault("READINGS_TABLE", ""),
		Collection:       getenvDefault("READINGS_COLLECTION", readings.DefaultCollection),
		CalendarTZ:       getenvDefault("CALENDAR_TZ", "Local"),
		WeekStart:        getenvDefault("WEEK_START", "sunday"),
		SpikeThreshold:   getenvFloatDefault("SPIKE_THRESHOLD", 50),
		TopN:             getenvIntDefault("TOP_N", 5),
		CurrentWindow:    Duration(getenvDuration("CURRENT_WINDOW", time.Hour)),
		WriteBatchSize:   getenvIntDefault("WRITE_BATCH_SIZE", 1000),
		GeocodeURL:       getenvDefault("GEOCODE_URL", ""),
		GeocodeUserAgent: getenvDefault("GEOCODE_USER_AGENT", ""),
		GeocodeTimeout:   Duration(getenvDuration("GEOCODE_TIMEOUT", 10*time.Second)),
		GeocodeCacheSize: getenvIntDefault("GEOCODE_CACHE_SIZE", 256),
		FeedLogKeep:      getenvIntDefault("FEED_LOG_KEEP", 3600),
	}

	if path := os.Getenv("CO2_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Collection == "" {
		return cfg, errors.New("config: collection required")
	}
	if cfg.SpikeThreshold <= 0 {
		return cfg, errors.New("config: spike threshold must be positive")
	}
	if cfg.TopN <= 0 || cfg.WriteBatchSize <= 0 || cfg.FeedLogKeep <= 0 {
		return cfg, errors.New("config: top n, write batch size and feed log keep must be positive")
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	if _, err := cfg.FirstDayOfWeek(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location resolves the calendar zone.
func (c Config) Location() (*time.Location, error) {
	if c.CalendarTZ == "" || strings.EqualFold(c.CalendarTZ, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.CalendarTZ)
	if err != nil {
		return nil, fmt.Errorf("config: calendar tz: %w", err)
	}
	return loc, nil
}

// FirstDayOfWeek resolves the week start name.
func (c Config) FirstDayOfWeek() (time.Weekday, error) {
	if c.WeekStart == "" {
		return time.Sunday, nil
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := day.String()
		if strings.EqualFold(c.WeekStart, name) || strings.EqualFold(c.WeekStart, name[:3]) {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("config: unknown week start %q", c.WeekStart)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
