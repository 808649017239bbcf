// Package metrics exposes corpus build progress as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Progress is a corpus.Progress that records into Prometheus collectors.
type Progress struct {
	PagesTotal     prometheus.Gauge
	PagesProcessed prometheus.Counter
	Label          *prometheus.GaugeVec
}

// NewProgress creates the collectors and registers them with reg.
func NewProgress(reg prometheus.Registerer) *Progress {
	p := &Progress{
		PagesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hansard_pages_total",
				Help: "Number of source pages the current build will read.",
			},
		),
		PagesProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hansard_pages_processed_total",
				Help: "Number of source pages consumed, parsed or skipped.",
			},
		),
		Label: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hansard_build_info",
				Help: "Set to 1 for the label of the current build step.",
			},
			[]string{"label"},
		),
	}

	reg.MustRegister(p.PagesTotal, p.PagesProcessed, p.Label)
	return p
}

// Reset implements corpus.Progress.
func (p *Progress) Reset(total int) {
	p.PagesTotal.Set(float64(total))
}

// SetLabel implements corpus.Progress.
func (p *Progress) SetLabel(label string) {
	p.Label.Reset()
	p.Label.WithLabelValues(label).Set(1)
}

// Advance implements corpus.Progress.
func (p *Progress) Advance() {
	p.PagesProcessed.Inc()
}

// Tee fans progress calls out to several sinks.
type Tee []interface {
	Reset(total int)
	SetLabel(label string)
	Advance()
}

// Reset implements corpus.Progress.
func (t Tee) Reset(total int) {
	for _, p := range t {
		p.Reset(total)
	}
}

// SetLabel implements corpus.Progress.
func (t Tee) SetLabel(label string) {
	for _, p := range t {
		p.SetLabel(label)
	}
}

// Advance implements corpus.Progress.
func (t Tee) Advance() {
	for _, p := range t {
		p.Advance()
	}
}
