// Package webhook forwards engine events to HTTP endpoints, for example a
// Discord relay announcing promotions.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"levelranks/core"
)

// Sink posts engine events to configured HTTP endpoints.
type Sink struct {
	client    *http.Client
	endpoints []string
	types     map[core.EventType]struct{}
	log       *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithEventTypes restricts forwarding to the given event types. Without it
// every event is posted.
func WithEventTypes(types ...core.EventType) Option {
	return func(s *Sink) {
		s.types = make(map[core.EventType]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Wants reports whether events of type t are forwarded.
func (s *Sink) Wants(t core.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// OnEvent matches the event bus handler signature. Failures are logged.
func (s *Sink) OnEvent(ctx context.Context, e core.Event) {
	if err := s.Post(ctx, e); err != nil {
		s.log.Warn("webhook delivery failed", "event", e.Type, "player_id", e.PlayerID, "error", err)
	}
}

// Post sends the event JSON to all endpoints concurrently and returns the
// first delivery error.
func (s *Sink) Post(ctx context.Context, e core.Event) error {
	if len(s.endpoints) == 0 || !s.Wants(e.Type) {
		return nil
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range s.endpoints {
		g.Go(func() error {
			req, err := http.NewRequestWithContext(gctx, http.MethodPost, ep, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("build request for %s: %w", ep, err)
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := s.client.Do(req)
			if err != nil {
				return fmt.Errorf("post to %s: %w", ep, err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode >= 300 {
				return fmt.Errorf("post to %s: status %d", ep, resp.StatusCode)
			}
			return nil
		})
	}
	return g.Wait()
}
