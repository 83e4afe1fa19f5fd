package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"co2-dashboard/internal/feed/client"
	feed "co2-dashboard/internal/feed/domain"
)

func main() {
	baseURL := flag.String("url", getenvDefault("FEED_URL", "http://localhost:8080"), "feed base url")
	fine := flag.Int("g5", feed.DefaultFineLimit, "fine buckets to request")
	coarse := flag.Int("m1", feed.DefaultCoarseLimit, "coarse buckets to request")
	rows := flag.Int("rows", 15, "table rows to print, 0 for all")
	hidden := flag.Bool("hidden", false, "poll at the hidden cadence")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	fetcher, err := client.NewHTTPFetcher(*baseURL, *fine, *coarse, *timeout)
	if err != nil {
		logger.Fatalf("fetcher error: %v", err)
	}
	renderer := screen{out: os.Stdout, next: client.NewTextRenderer(os.Stdout, *rows)}
	poller, err := client.NewPoller(fetcher, renderer, client.WithLogger(logger))
	if err != nil {
		logger.Fatalf("poller error: %v", err)
	}
	poller.SetVisible(!*hidden)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle := poller.Start(ctx)
	<-ctx.Done()
	handle.Stop()
	<-handle.Done()
}

// screen clears the terminal before every frame.
type screen struct {
	out  io.Writer
	next client.Renderer
}

func (s screen) Render(v client.Views) {
	fmt.Fprint(s.out, "\033[H\033[2J")
	s.next.Render(v)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
