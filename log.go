package quic

import (
	"go.uber.org/zap"

	"github.com/netglass/qcore/internal/metrics"
	"github.com/netglass/qcore/transport"
)

// transactionLogger translates the transport package's qlog-style
// LogEvent/LogField emissions into zap calls, and folds the
// packet-level ones into the engine's metrics.Collector along the way.
// Grounded on the teacher's transactionLogger (same "one per connection,
// attached via transport.Conn.OnLogEvent, prefix carries the connection
// identity" shape); the teacher formatted a line by hand onto an
// io.Writer, this backs onto the zap logger the ambient stack settled on
// instead.
type transactionLogger struct {
	log     *zap.Logger
	metrics *metrics.Collector
}

// attachLogger wires a connection's wire-level trace into its own
// zap child logger, tagged with the connection's remote address and
// source connection ID the way the teacher's "addr=... cid=..." prefix
// did.
func attachLogger(c *remoteConn, m *metrics.Collector) {
	tl := transactionLogger{metrics: m}
	if c.log != nil {
		tl.log = c.log.With(
			zap.String("remote", c.addr.String()),
			zap.Binary("scid", c.scid),
		)
	}
	c.conn.OnLogEvent(tl.logEvent)
}

func detachLogger(c *remoteConn) {
	c.conn.OnLogEvent(nil)
}

func (s transactionLogger) logEvent(e transport.LogEvent) {
	var epoch string
	fields := make([]zap.Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Key == "epoch" {
			epoch = f.Str
		}
		if f.Str != "" {
			fields = append(fields, zap.String(f.Key, f.Str))
		} else {
			fields = append(fields, zap.Uint64(f.Key, f.Num))
		}
	}
	s.metrics.ObservePacketEvent(e.Type, epoch)
	if s.log != nil {
		s.log.Debug(e.Type, fields...)
	}
}
