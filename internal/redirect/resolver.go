// Package redirect resolves short codes to destinations and drives the
// Resolving -> Redirecting -> Navigated (or Resolving -> NotFound) flow.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"linkbio/internal/clicks"
	"linkbio/internal/links"
	"linkbio/internal/pkg/metrics"
)

// State of a single resolution.
type State int

const (
	StateResolving State = iota
	StateRedirecting
	StateNavigated
	StateNotFound
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateRedirecting:
		return "redirecting"
	case StateNavigated:
		return "navigated"
	case StateNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateNavigated || s == StateNotFound
}

// ErrNotNavigable is returned by Navigate outside the Redirecting state.
var ErrNotNavigable = errors.New("resolution is not navigable")

// Lookup finds the link addressed by a short code.
type Lookup interface {
	Lookup(ctx context.Context, code string) (*links.Link, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, code string) (*links.Link, error)

func (f LookupFunc) Lookup(ctx context.Context, code string) (*links.Link, error) {
	return f(ctx, code)
}

// StoreLookup resolves codes against the store.
func StoreLookup(db *gorm.DB) LookupFunc {
	return func(ctx context.Context, code string) (*links.Link, error) {
		return links.FindBySlug(db.WithContext(ctx), code)
	}
}

// SnapshotLookup resolves codes against an application state snapshot.
func SnapshotLookup(state *links.State) LookupFunc {
	return func(_ context.Context, code string) (*links.Link, error) {
		link, ok := state.Find(code)
		if !ok {
			return nil, &links.LinkNotFoundError{Slug: code}
		}
		return &link, nil
	}
}

// Tracker records a click without blocking; *clicks.Recorder implements it.
type Tracker interface {
	RecordAsync(input clicks.RecordInput)
}

// Request is an inbound short code visit.
type Request struct {
	Code      string
	Referrer  string
	UserAgent string
	IPAddress string
}

// Resolution is the outcome of resolving one request. It is safe for
// concurrent use; Navigate succeeds at most once.
type Resolution struct {
	Code      string
	Link      *links.Link
	Countdown time.Duration

	mu          sync.Mutex
	state       State
	destination string
}

// State returns the current state.
func (r *Resolution) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Found reports whether the code matched a link.
func (r *Resolution) Found() bool {
	return r.Link != nil
}

// Destination is where navigation leads, empty when not found.
func (r *Resolution) Destination() string {
	return r.destination
}

// CountdownSeconds is the whole number of seconds shown before navigation.
func (r *Resolution) CountdownSeconds() int {
	return int(r.Countdown / time.Second)
}

// Navigate performs the Redirecting -> Navigated transition and returns the
// destination. Any other state yields ErrNotNavigable.
func (r *Resolution) Navigate() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRedirecting {
		return "", fmt.Errorf("%w: %s", ErrNotNavigable, r.state)
	}
	r.state = StateNavigated
	return r.destination, nil
}

// Resolver maps short codes to resolutions.
type Resolver struct {
	lookup    Lookup
	tracker   Tracker
	countdown time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics counts resolution outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the logger used for lookup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a resolver. A nil tracker disables click recording.
func NewResolver(lookup Lookup, tracker Tracker, countdown time.Duration, opts ...Option) *Resolver {
	if countdown < 0 {
		countdown = 0
	}
	r := &Resolver{
		lookup:    lookup,
		tracker:   tracker,
		countdown: countdown,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks the code up. A match fires click tracking in the background
// and enters Redirecting; anything else ends in NotFound.
func (r *Resolver) Resolve(ctx context.Context, req Request) *Resolution {
	code := strings.TrimSpace(req.Code)
	res := &Resolution{Code: code, state: StateResolving}

	if code == "" {
		r.notFound(res)
		return res
	}

	link, err := r.lookup.Lookup(ctx, code)
	if err != nil {
		var notFound *links.LinkNotFoundError
		if !errors.As(err, &notFound) {
			r.logger.Error("Failed to resolve short code", slog.String("code", code), slog.Any("error", err))
		}
		r.notFound(res)
		return res
	}

	if r.tracker != nil {
		r.tracker.RecordAsync(clicks.RecordInput{
			Slug:      link.Slug,
			Referrer:  req.Referrer,
			UserAgent: req.UserAgent,
			IPAddress: req.IPAddress,
		})
	}

	res.Link = link
	res.destination = link.Destination()
	res.Countdown = r.countdown
	res.state = StateRedirecting
	r.metrics.Redirect(metrics.OutcomeRedirected)
	return res
}

func (r *Resolver) notFound(res *Resolution) {
	res.state = StateNotFound
	r.metrics.Redirect(metrics.OutcomeNotFound)
}

// CodeFromPath extracts the short code from a "/r/{code}" path.
func CodeFromPath(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}
