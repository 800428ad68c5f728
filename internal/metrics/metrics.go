// Package metrics wraps prometheus/client_golang with qcore's counters,
// gauge and histogram. The root package feeds the sent, received and
// dropped packet counters from transport log events; nothing in this
// module records lost packets, bytes in flight or RTT samples here.
// Ambient observability, not part of spec scope: the metrics it exposes
// never feed back into the transport's own decisions (that would make
// qcore's core logic depend on a specific metrics backend), they are
// strictly a side channel for an operator to watch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles every metric qcore's engine and transport layers
// report through. A nil *Collector is valid and every method on it is a
// no-op, so callers that don't want metrics (most tests) can skip
// construction entirely.
type Collector struct {
	PacketsSent    *prometheus.CounterVec
	PacketsRecv    *prometheus.CounterVec
	PacketsDropped *prometheus.CounterVec
	PacketsLost    *prometheus.CounterVec
	BytesInFlight  prometheus.Gauge
	RTT            prometheus.Histogram
}

// NewCollector registers qcore's metrics against reg and returns the
// handle used to record them. Pass prometheus.NewRegistry() in tests to
// avoid colliding with the global default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qcore",
			Name:      "packets_sent_total",
			Help:      "Packets sent, by packet-number space.",
		}, []string{"epoch"}),
		PacketsRecv: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qcore",
			Name:      "packets_received_total",
			Help:      "Packets received, by packet-number space.",
		}, []string{"epoch"}),
		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qcore",
			Name:      "packets_dropped_total",
			Help:      "Packets dropped undecrypted or as duplicates, by packet-number space.",
		}, []string{"epoch"}),
		PacketsLost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qcore",
			Name:      "packets_lost_total",
			Help:      "Packets declared lost by loss detection, by packet-number space.",
		}, []string{"epoch"}),
		BytesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qcore",
			Name:      "bytes_in_flight",
			Help:      "Sum of sent-but-not-yet-acked-or-lost packet sizes across all spaces.",
		}),
		RTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qcore",
			Name:      "rtt_seconds",
			Help:      "Measured round-trip-time samples fed to the RTT estimator.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
	}
	reg.MustRegister(c.PacketsSent, c.PacketsRecv, c.PacketsDropped, c.PacketsLost, c.BytesInFlight, c.RTT)
	return c
}

func (c *Collector) sent(epoch string) {
	if c != nil {
		c.PacketsSent.WithLabelValues(epoch).Inc()
	}
}

func (c *Collector) recv(epoch string) {
	if c != nil {
		c.PacketsRecv.WithLabelValues(epoch).Inc()
	}
}

func (c *Collector) dropped(epoch string) {
	if c != nil {
		c.PacketsDropped.WithLabelValues(epoch).Inc()
	}
}

func (c *Collector) lost(epoch string) {
	if c != nil {
		c.PacketsLost.WithLabelValues(epoch).Inc()
	}
}

// ObservePacketEvent folds one of the transport package's qlog-style
// LogEvent types into the relevant counter, keyed by the event's "epoch"
// field. Safe to call with a nil Collector.
func (c *Collector) ObservePacketEvent(eventType string, epoch string) {
	if c == nil {
		return
	}
	switch eventType {
	case "packet_sent":
		c.sent(epoch)
	case "packet_received":
		c.recv(epoch)
	case "packet_dropped":
		c.dropped(epoch)
	}
}

// ObserveRTT records a fresh RTT sample in seconds. Safe to call with a
// nil Collector.
func (c *Collector) ObserveRTT(seconds float64) {
	if c == nil {
		return
	}
	c.RTT.Observe(seconds)
}

// SetBytesInFlight updates the in-flight gauge. Safe to call with a nil
// Collector.
func (c *Collector) SetBytesInFlight(n float64) {
	if c == nil {
		return
	}
	c.BytesInFlight.Set(n)
}
