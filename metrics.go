package aipkit

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records protocol activity as Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	commandsTotal        *prometheus.CounterVec
	commandDuration      *prometheus.HistogramVec
	streamEventsTotal    prometheus.Counter
	notificationsTotal   *prometheus.CounterVec
	notificationDuration prometheus.Histogram
	notificationsDropped *prometheus.CounterVec
}

// command outcomes
const (
	outcomeOK            = "ok"
	outcomeTaskFailed    = "task_failed"
	outcomeProtocolError = "protocol_error"
)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_commands_total",
			Help: "Total dispatched commands by command and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aip_command_duration_seconds",
			Help:    "Command handler duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		streamEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aip_stream_events_sent_total",
			Help: "Total stream events written to clients",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_notification_deliveries_total",
			Help: "Total notification delivery attempts by outcome",
		}, []string{"outcome"}),
		notificationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aip_notification_delivery_duration_seconds",
			Help:    "Notification delivery duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		notificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_notifications_dropped_total",
			Help: "Total notifications dropped before delivery by reason",
		}, []string{"reason"}),
	}
	for _, c := range []prometheus.Collector{
		m.commandsTotal, m.commandDuration, m.streamEventsTotal, m.notificationsTotal, m.notificationDuration, m.notificationsDropped,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordCommand records one dispatched command.
func (m *Metrics) RecordCommand(command string, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if command == "" {
		command = "none"
	}
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStreamEvent records one event written to a stream.
func (m *Metrics) RecordStreamEvent() {
	if m == nil {
		return
	}
	m.streamEventsTotal.Inc()
}

// RecordNotification records one delivery attempt.
func (m *Metrics) RecordNotification(duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = "error"
	}
	m.notificationsTotal.WithLabelValues(outcome).Inc()
	m.notificationDuration.Observe(duration.Seconds())
}

// RecordNotificationDropped records one notification that could not be queued.
func (m *Metrics) RecordNotificationDropped(err error) {
	if m == nil {
		return
	}
	reason := "error"
	switch {
	case errors.Is(err, ErrDeliveryQueueFull):
		reason = "queue_full"
	case errors.Is(err, ErrDeliveryQueueClosed):
		reason = "queue_closed"
	}
	m.notificationsDropped.WithLabelValues(reason).Inc()
}
