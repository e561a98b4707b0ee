package sinks

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	auth "github.com/pulseapp/pulse-auth"
)

// MetricsSink counts activity events by type.
type MetricsSink struct {
	events *prometheus.CounterVec
}

var _ auth.ActivitySink = (*MetricsSink)(nil)

// NewMetricsSink registers the activity counter on reg. A nil registerer uses
// the default one. Registering twice reuses the existing collector.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulse",
		Subsystem: "auth",
		Name:      "activity_events_total",
		Help:      "Count of account activity events by type",
	}, []string{"event"})

	if err := reg.Register(events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				events = existing
			}
		}
	}

	return &MetricsSink{events: events}
}

// Record implements auth.ActivitySink.
func (s *MetricsSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// Counter exposes the underlying counter vector.
func (s *MetricsSink) Counter() *prometheus.CounterVec {
	return s.events
}
