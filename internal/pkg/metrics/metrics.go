// Package metrics exposes Prometheus counters for click tracking and redirects.
package metrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Tracking failure stages
const (
	StageLookup = "lookup"
	StageGeo    = "geo"
	StageWrite  = "write"
	StagePanic  = "panic"
)

// Redirect outcomes
const (
	OutcomeRedirected = "redirected"
	OutcomeNotFound   = "not_found"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	ClicksRecorded   *prometheus.CounterVec
	TrackingFailures *prometheus.CounterVec
	Redirects        *prometheus.CounterVec
}

// NewMetrics registers the application counters.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.ClicksRecorded = m.RegisterCounter("linkbio_clicks_recorded_total", "Click events written", []string{"device", "browser"})
	m.TrackingFailures = m.RegisterCounter("linkbio_tracking_failures_total", "Click recordings that failed or fell back", []string{"stage"})
	m.Redirects = m.RegisterCounter("linkbio_redirects_total", "Short code resolutions", []string{"outcome"})
	return m
}

// RegisterCounter register counter
func (m *Metrics) RegisterCounter(name string, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)
	m.registry.MustRegister(counter)
	return counter
}

// IncCounter increments counter; a nil receiver is a no-op.
func (m *Metrics) IncCounter(counter *prometheus.CounterVec, labels ...string) {
	if m == nil || counter == nil {
		return
	}
	counter.WithLabelValues(labels...).Inc()
}

// ClickRecorded counts a written click event.
func (m *Metrics) ClickRecorded(device, browser string) {
	if m == nil {
		return
	}
	m.IncCounter(m.ClicksRecorded, device, browser)
}

// TrackingFailed counts a failure at stage.
func (m *Metrics) TrackingFailed(stage string) {
	if m == nil {
		return
	}
	m.IncCounter(m.TrackingFailures, stage)
}

// Redirect counts a resolution outcome.
func (m *Metrics) Redirect(outcome string) {
	if m == nil {
		return
	}
	m.IncCounter(m.Redirects, outcome)
}

// Gather renders the registry in the Prometheus text format.
func (m *Metrics) Gather() (string, error) {
	var out bytes.Buffer
	metricFamilies, err := m.registry.Gather()
	if err != nil {
		return "", err
	}

	encoder := expfmt.NewEncoder(&out, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			return "", err
		}
	}

	return out.String(), nil
}
