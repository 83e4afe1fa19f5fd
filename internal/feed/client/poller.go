package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Fetcher retrieves one feed payload.
type Fetcher interface {
	Fetch(ctx context.Context) (Payload, error)
}

// Renderer draws the views after a successful fetch.
type Renderer interface {
	Render(v Views)
}

// Poller runs the fetch, render and wait cycle on one goroutine, so at most one
// fetch is in flight and at most one wait is pending.
type Poller struct {
	fetcher  Fetcher
	renderer Renderer
	cadence  Cadence
	after    func(time.Duration) <-chan time.Time
	visible  atomic.Bool
	logger   *log.Logger
}

// Option configures the poller.
type Option func(*Poller)

// WithCadence overrides the delays.
func WithCadence(c Cadence) Option {
	return func(p *Poller) {
		p.cadence = c
	}
}

// WithAfter replaces time.After, mainly for tests.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(p *Poller) {
		if after != nil {
			p.after = after
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoller constructs a poller that starts out visible.
func NewPoller(fetcher Fetcher, renderer Renderer, opts ...Option) (*Poller, error) {
	if fetcher == nil {
		return nil, errors.New("feed client: nil fetcher")
	}
	if renderer == nil {
		return nil, errors.New("feed client: nil renderer")
	}
	p := &Poller{
		fetcher:  fetcher,
		renderer: renderer,
		cadence:  DefaultCadence(),
		after:    time.After,
		logger:   log.Default(),
	}
	p.visible.Store(true)
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SetVisible switches between the visible and hidden base delay. It applies from the next wait.
func (p *Poller) SetVisible(visible bool) {
	p.visible.Store(visible)
}

// Handle controls a running poll loop.
type Handle struct {
	stopped atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Stop ends the loop. No fetch starts after Stop returns; a fetch in flight is cancelled.
func (h *Handle) Stop() {
	h.once.Do(func() {
		h.stopped.Store(true)
		h.cancel()
	})
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start launches the loop. It runs until Stop is called or ctx ends.
func (p *Poller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go p.run(ctx, h)
	return h
}

func (p *Poller) run(ctx context.Context, h *Handle) {
	defer close(h.done)
	defer h.cancel()

	var state State
	for {
		if h.stopped.Load() || ctx.Err() != nil {
			return
		}

		payload, err := p.fetcher.Fetch(ctx)
		if err != nil {
			state = state.OnFetchFailure()
			if ctx.Err() == nil {
				p.logger.Printf("feed client: fetch failed (%d in a row): %v", state.Failures, err)
			}
		} else {
			state = state.OnFetchSuccess(payload)
			p.renderer.Render(BuildViews(state))
		}

		delay := p.cadence.NextDelay(p.visible.Load(), state.Failures)
		select {
		case <-ctx.Done():
			return
		case <-p.after(delay):
		}
	}
}

// HTTPFetcher reads the feed from the device's /api/logs endpoint.
type HTTPFetcher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPFetcher constructs a fetcher for baseURL with the given bucket limits.
// The request timeout keeps a hung device from stalling the loop.
func NewHTTPFetcher(baseURL string, fineLimit, coarseLimit int, timeout time.Duration) (*HTTPFetcher, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("feed client: invalid base url %q", baseURL)
	}
	parsed = parsed.JoinPath("api", "logs")
	query := parsed.Query()
	query.Set("g5", strconv.Itoa(fineLimit))
	query.Set("m1", strconv.Itoa(coarseLimit))
	parsed.RawQuery = query.Encode()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{endpoint: parsed.String(), client: &http.Client{Timeout: timeout}}, nil
}

// Fetch retrieves and decodes one payload.
func (f *HTTPFetcher) Fetch(ctx context.Context) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return Payload{}, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := f.client.Do(req)
	if err != nil {
		return Payload{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Payload{}, fmt.Errorf("feed client: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Payload{}, err
	}
	return DecodePayload(body)
}
