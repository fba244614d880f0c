// Package metrics exposes monitoring counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Notification outcomes.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Collector holds the monitor's metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	readings      prometheus.Counter
	intervals     prometheus.Counter
	alerts        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	sendLatency   prometheus.Histogram
	modemUp       prometheus.Gauge
}

// New creates the collector and registers it with reg. A nil reg means
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vitals_readings_total",
			Help: "Vital-sign readings sampled.",
		}),
		intervals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vitals_intervals_total",
			Help: "Completed monitoring intervals.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitals_alerts_total",
			Help: "Alert events raised, by band.",
		}, []string{"band"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitals_notifications_total",
			Help: "SMS notifications by outcome.",
		}, []string{"result"}),
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vitals_sms_send_seconds",
			Help:    "Time spent running the SMS send script.",
			Buckets: prometheus.LinearBuckets(0.5, 0.5, 8),
		}),
		modemUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vitals_modem_connected",
			Help: "1 while a modem session is open.",
		}),
	}

	reg.MustRegister(c.readings, c.intervals, c.alerts, c.notifications, c.sendLatency, c.modemUp)
	return c
}

func (c *Collector) ObserveReading() {
	if c == nil {
		return
	}
	c.readings.Inc()
}

func (c *Collector) ObserveInterval() {
	if c == nil {
		return
	}
	c.intervals.Inc()
}

func (c *Collector) ObserveAlert(band string) {
	if c == nil {
		return
	}
	c.alerts.WithLabelValues(band).Inc()
}

// ObserveNotification counts one notification; seconds is recorded only for
// attempts that reached the modem.
func (c *Collector) ObserveNotification(result string, seconds float64) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(result).Inc()
	if result != ResultSkipped {
		c.sendLatency.Observe(seconds)
	}
}

func (c *Collector) SetModemConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.modemUp.Set(1)
		return
	}
	c.modemUp.Set(0)
}
