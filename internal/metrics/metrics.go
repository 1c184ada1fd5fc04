// Package metrics exposes prometheus collectors for the plugin core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors updated by the session and bridge.
type Metrics struct {
	LiveInstances prometheus.Gauge
	Created       *prometheus.CounterVec
	Removed       *prometheus.CounterVec
	Events        *prometheus.CounterVec
	StaleEvents   prometheus.Counter
	LoadIssues    *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LiveInstances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "editor",
			Name:      "plugin_instances",
			Help:      "Number of plugin instances in the directory.",
		}),
		Created: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "plugin_instances_created_total",
			Help:      "Plugin instances created, by manifest id.",
		}, []string{"type"}),
		Removed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "plugin_instances_removed_total",
			Help:      "Plugin instances removed, by manifest id.",
		}, []string{"type"}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "surface_events_total",
			Help:      "Render-surface notifications dispatched to plugin instances.",
		}, []string{"event"}),
		StaleEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "surface_stale_events_total",
			Help:      "Notifications for render objects whose instance is gone.",
		}),
		LoadIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "ecml_load_issues_total",
			Help:      "Soft failures while decoding fragments, by kind.",
		}, []string{"kind"}),
	}
}

// Nop returns collectors registered with a private registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
