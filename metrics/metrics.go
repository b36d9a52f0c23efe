// Package metrics exposes threat-cycle instrumentation through a private
// prometheus registry. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	cyclesCompleted prometheus.Counter
	cyclesSkipped   prometheus.Counter
	computeSeconds  prometheus.Histogram
	hostile         prometheus.Gauge
	peaceful        prometheus.Gauge
	events          *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cyclesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vimy",
			Subsystem: "threat",
			Name:      "cycles_completed_total",
			Help:      "Threat field cycles published.",
		}),
		cyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vimy",
			Subsystem: "threat",
			Name:      "cycles_skipped_total",
			Help:      "Threat field cycles dropped because one was already in flight.",
		}),
		computeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vimy",
			Subsystem: "threat",
			Name:      "compute_seconds",
			Help:      "Time spent filling the next layer set.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		hostile: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vimy",
			Subsystem: "enemy",
			Name:      "hostile",
			Help:      "Hostile enemies in the last snapshot.",
		}),
		peaceful: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vimy",
			Subsystem: "enemy",
			Name:      "peaceful",
			Help:      "Peaceful enemies in the last snapshot.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vimy",
			Subsystem: "enemy",
			Name:      "events_total",
			Help:      "Visibility transitions received from the host.",
		}, []string{"kind"}),
	}
	c.registry.MustRegister(c.cyclesCompleted, c.cyclesSkipped, c.computeSeconds,
		c.hostile, c.peaceful, c.events)
	return c
}

// Handler serves the collector's registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) CycleCompleted(compute time.Duration) {
	if c == nil {
		return
	}
	c.cyclesCompleted.Inc()
	c.computeSeconds.Observe(compute.Seconds())
}

func (c *Collector) CycleSkipped() {
	if c == nil {
		return
	}
	c.cyclesSkipped.Inc()
}

func (c *Collector) Snapshot(hostile, peaceful int) {
	if c == nil {
		return
	}
	c.hostile.Set(float64(hostile))
	c.peaceful.Set(float64(peaceful))
}

func (c *Collector) Event(kind string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(kind).Inc()
}
