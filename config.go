package quic

import (
	"crypto/tls"
	"time"

	"github.com/netglass/qcore/internal/metrics"
	"github.com/netglass/qcore/internal/telemetry"
	"github.com/netglass/qcore/transport"
)

// Config bundles everything an Engine needs to drive connections: the TLS
// configuration handed to crypto/tls's QUIC handshake driver, the
// transport parameters this endpoint advertises, and the ambient
// observability hooks. Grounded on the teacher's root Config (TLS +
// transport parameter fields), extended with the metrics/log-level fields
// SPEC_FULL's ambient stack adds.
type Config struct {
	// TLS configures the handshake; Engine wraps it with tls.QUICClient
	// or tls.QUICServer as appropriate.
	TLS *tls.Config

	// Params is this endpoint's transport parameters, sent to the peer
	// during the handshake. Zero-value fields are filled with this
	// package's defaults by params() when a connection is created.
	Params transport.Parameters

	// MaxIdlePeriod overrides Params.MaxIdleTimeout when non-zero.
	MaxIdlePeriod time.Duration

	// LogLevel controls the telemetry logger's verbosity, same 0..4
	// scale as the teacher's -v flag.
	LogLevel telemetry.Level

	// Metrics, if non-nil, receives packet/RTT observations from every
	// connection this Engine drives. Nil disables metrics entirely.
	Metrics *metrics.Collector
}

func (c *Config) params() transport.Parameters {
	p := c.Params
	if c.MaxIdlePeriod > 0 {
		p.MaxIdleTimeout = c.MaxIdlePeriod
	}
	if p.MaxUDPPayloadSize == 0 {
		p.MaxUDPPayloadSize = 1350
	}
	if p.InitialMaxData == 0 {
		p.InitialMaxData = 1 << 20
	}
	if p.InitialMaxStreamDataBidiLocal == 0 {
		p.InitialMaxStreamDataBidiLocal = 1 << 18
	}
	if p.InitialMaxStreamDataBidiRemote == 0 {
		p.InitialMaxStreamDataBidiRemote = 1 << 18
	}
	if p.InitialMaxStreamDataUni == 0 {
		p.InitialMaxStreamDataUni = 1 << 18
	}
	if p.InitialMaxStreamsBidi == 0 {
		p.InitialMaxStreamsBidi = 100
	}
	if p.InitialMaxStreamsUni == 0 {
		p.InitialMaxStreamsUni = 100
	}
	if p.AckDelayExponent == 0 {
		p.AckDelayExponent = 3
	}
	if p.MaxAckDelay == 0 {
		p.MaxAckDelay = 25 * time.Millisecond
	}
	if p.ActiveConnectionIDLimit == 0 {
		p.ActiveConnectionIDLimit = 2
	}
	return p
}
