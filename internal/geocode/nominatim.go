package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"co2-dashboard/internal/observability/metrics"
	readings "co2-dashboard/internal/readings/domain"
)

const (
	// DefaultBaseURL is the public Nominatim reverse endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org/reverse"
	// DefaultUserAgent identifies the service to Nominatim.
	DefaultUserAgent = "CO2-Dashboard/1.0"
	defaultCacheSize = 256
)

// Client resolves coordinates to place names through a Nominatim reverse endpoint.
// Failures are logged and reported as "no name"; they never surface as errors.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	cache     *lru.Cache
	logger    *log.Logger
}

// Option configures the client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithCacheSize sets how many resolved names are remembered; 0 keeps the default.
func WithCacheSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			if cache, err := lru.New(size); err == nil {
				c.cache = cache
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("geocode: invalid base url: %w", err)
	}
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   baseURL,
		userAgent: DefaultUserAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
		cache:     cache,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type reverseResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
	} `json:"address"`
}

func (r reverseResponse) placeName() string {
	for _, name := range []string{r.Address.City, r.Address.Town, r.Address.Village, r.Address.State} {
		if name != "" {
			return name
		}
	}
	return ""
}

// Resolve returns the most specific place name for the coordinate.
func (c *Client) Resolve(ctx context.Context, coord readings.Coordinate) (string, bool) {
	if c == nil {
		return "", false
	}
	if coord.Lat == "" || coord.Lng == "" {
		return "", false
	}
	if cached, ok := c.cache.Get(coord); ok {
		metrics.IncGeocode(metrics.GeocodeHit)
		return cached.(string), true
	}

	name, err := c.lookup(ctx, coord)
	if err != nil {
		metrics.IncGeocode(metrics.GeocodeFail)
		c.logger.Printf("geocode: lookup failed: lat=%s lng=%s err=%v", coord.Lat, coord.Lng, err)
		return "", false
	}
	metrics.IncGeocode(metrics.GeocodeMiss)
	if name == "" {
		return "", false
	}
	c.cache.Add(coord, name)
	return name, true
}

func (c *Client) lookup(ctx context.Context, coord readings.Coordinate) (string, error) {
	params := url.Values{}
	params.Set("lat", coord.Lat)
	params.Set("lon", coord.Lng)
	params.Set("format", "json")

	endpoint := c.baseURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + params.Encode()
	} else {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", errors.New("geocode: non-2xx status " + resp.Status)
	}

	var decoded reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("geocode: decode: %w", err)
	}
	return decoded.placeName(), nil
}
