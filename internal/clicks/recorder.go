// Package clicks records click events for links. Recording is best effort:
// failures are logged and counted but never returned to the caller.
package clicks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/karloscodes/cartridge"

	"linkbio/internal/links"
	"linkbio/internal/pkg/geoip"
	"linkbio/internal/pkg/metrics"
	"linkbio/internal/pkg/user_agent"
	"linkbio/internal/settings"
)

const defaultTimeout = 5 * time.Second

// RecordInput describes one click as seen by a handler.
type RecordInput struct {
	Slug      string
	Referrer  string
	UserAgent string
	IPAddress string
}

// detach copies every field so the input outlives the request buffers it came from.
func (in RecordInput) detach() RecordInput {
	return RecordInput{
		Slug:      strings.Clone(in.Slug),
		Referrer:  strings.Clone(in.Referrer),
		UserAgent: strings.Clone(in.UserAgent),
		IPAddress: strings.Clone(in.IPAddress),
	}
}

// Recorder resolves, classifies, geolocates and persists clicks.
type Recorder struct {
	dbManager   cartridge.DBManager
	logger      *slog.Logger
	trackingLog *slog.Logger
	locator     geoip.Locator
	metrics     *metrics.Metrics
	timeout     time.Duration
	now         func() time.Time

	mu       sync.Mutex
	inflight sync.WaitGroup
	stopped  bool
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMetrics counts recorded clicks and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithTrackingLogger mirrors every outcome to a dedicated log.
func WithTrackingLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.trackingLog = l }
}

// WithTimeout bounds each asynchronous recording.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder. A nil locator always uses the geo fallback.
func NewRecorder(dbManager cartridge.DBManager, logger *slog.Logger, locator geoip.Locator, opts ...Option) *Recorder {
	r := &Recorder{
		dbManager: dbManager,
		logger:    logger,
		locator:   locator,
		timeout:   defaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record runs the whole pipeline synchronously. It never panics or fails
// towards the caller.
func (r *Recorder) Record(ctx context.Context, input RecordInput) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Panic recovered while recording click",
				slog.String("slug", input.Slug),
				slog.Any("panic", rec))
			r.fail(metrics.StagePanic, input, nil)
		}
	}()

	if excluded, err := settings.IsIPExcluded(input.IPAddress); err != nil {
		r.logger.Warn("Failed to check excluded IPs", slog.Any("error", err))
	} else if excluded {
		r.logger.Debug("Ignoring click from excluded IP", slog.String("slug", input.Slug))
		return
	}

	db := r.dbManager.GetConnection()

	link, err := links.FindBySlug(db, input.Slug)
	if err != nil {
		var notFound *links.LinkNotFoundError
		if errors.As(err, &notFound) {
			r.logger.Debug("Ignoring click for unknown slug", slog.String("slug", input.Slug))
		} else {
			r.logger.Error("Failed to resolve slug", slog.String("slug", input.Slug), slog.Any("error", err))
		}
		r.fail(metrics.StageLookup, input, err)
		return
	}

	ua := user_agent.ParseUserAgent(input.UserAgent)

	loc, ok := geoip.LocateOrFallback(ctx, r.locator, r.logger, input.IPAddress)
	if !ok {
		r.fail(metrics.StageGeo, input, nil)
	}

	event := &links.ClickEvent{
		LinkID:    link.ID,
		Timestamp: r.now().UTC(),
		Referrer:  normalizeReferrer(input.Referrer),
		Browser:   ua.Browser,
		Device:    ua.Device,
		OS:        ua.OS,
		Country:   loc.Country,
		Region:    loc.Region,
		City:      loc.City,
		StateCode: loc.StateCode,
		Location:  links.FormatLocation(loc.City, loc.Region, loc.Country),
		IP:        input.IPAddress,
	}

	if err := links.AddClick(db, r.logger, event); err != nil {
		r.logger.Error("Failed to write click event",
			slog.String("slug", input.Slug),
			slog.Any("error", err))
		r.fail(metrics.StageWrite, input, err)
		return
	}

	r.metrics.ClickRecorded(event.Device, event.Browser)
	if r.trackingLog != nil {
		r.trackingLog.Info("click_recorded",
			slog.String("slug", link.Slug),
			slog.Uint64("event_id", uint64(event.ID)),
			slog.String("device", event.Device),
			slog.String("browser", event.Browser),
			slog.String("country", event.Country))
	}
}

// RecordAsync records in the background with a detached, bounded context.
// Clicks arriving after Stop are dropped.
func (r *Recorder) RecordAsync(input RecordInput) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.logger.Debug("Recorder stopped, dropping click", slog.String("slug", input.Slug))
		return
	}
	r.inflight.Add(1)
	r.mu.Unlock()

	input = input.detach()
	go func() {
		defer r.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.Record(ctx, input)
	}()
}

// Wait blocks until every in-flight recording finished.
func (r *Recorder) Wait() {
	r.inflight.Wait()
}

// Start implements cartridge.BackgroundWorker.
func (r *Recorder) Start() error {
	r.mu.Lock()
	r.stopped = false
	r.mu.Unlock()
	return nil
}

// Stop rejects new recordings and drains the in-flight ones.
// Implements cartridge.BackgroundWorker.
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.logger.Info("Draining in-flight click recordings...")
	r.inflight.Wait()
}

func (r *Recorder) fail(stage string, input RecordInput, err error) {
	r.metrics.TrackingFailed(stage)
	if r.trackingLog == nil {
		return
	}
	attrs := []any{
		slog.String("stage", stage),
		slog.String("slug", input.Slug),
		slog.String("ip", input.IPAddress),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	r.trackingLog.Warn("tracking_failure", attrs...)
}

func normalizeReferrer(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return links.DirectReferrer
	}
	return referrer
}
