package transport

import (
	"sync"
	"time"
)

// initialRTT is the smoothed-RTT seed used until the first real sample
// arrives (RFC 9002 section 6.2.2).
const initialRTT = 333 * time.Millisecond

// granularity is the minimum, timer-resolution-driven loss delay floor.
const granularity = time.Millisecond

// timeThreshold is the multiplier applied to max(latest, smoothed) RTT to
// get the time-based loss detection threshold (RFC 9002 section 6.1.2).
const timeThreshold = 9.0 / 8

// rttEstimator tracks the latest, smoothed and variance RTT samples for a
// connection (one estimator shared by every packet-number space), following RFC 9002
// section 5. Mirrors the update arithmetic of the reference rtt estimator
// field-for-field, including the first-sample latch and the ack-delay
// clamp that only applies once the handshake is confirmed.
type rttEstimator struct {
	mu sync.Mutex

	maxAckDelay      time.Duration
	firstSampleTaken bool
	latestRTT        time.Duration
	smoothedRTT      time.Duration
	rttVar           time.Duration
	minRTT           time.Duration
}

func newRTTEstimator() *rttEstimator {
	return &rttEstimator{
		smoothedRTT: initialRTT,
		rttVar:      initialRTT / 2,
	}
}

// setMaxAckDelay records the peer's advertised max_ack_delay transport
// parameter, used to clamp the ack delay once the handshake is confirmed.
func (r *rttEstimator) setMaxAckDelay(d time.Duration) {
	r.mu.Lock()
	r.maxAckDelay = d
	r.mu.Unlock()
}

// update folds a new RTT sample into the estimator. ackDelay is the peer's
// reported ACK delay for the acknowledgment that produced latest;
// handshakeConfirmed gates whether ackDelay is clamped to maxAckDelay.
func (r *rttEstimator) update(latest, ackDelay time.Duration, handshakeConfirmed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latestRTT = latest
	if !r.firstSampleTaken {
		r.minRTT = latest
		r.smoothedRTT = latest
		r.rttVar = latest / 2
		r.firstSampleTaken = true
		return
	}

	if latest < r.minRTT {
		r.minRTT = latest
	}
	if handshakeConfirmed && ackDelay > r.maxAckDelay {
		ackDelay = r.maxAckDelay
	}

	adjusted := latest
	if latest >= r.minRTT+ackDelay {
		adjusted = latest - ackDelay
	}

	diff := r.smoothedRTT - adjusted
	if diff < 0 {
		diff = -diff
	}
	r.rttVar = mulDuration(r.rttVar, 0.75) + mulDuration(diff, 0.25)
	r.smoothedRTT = mulDuration(r.smoothedRTT, 0.875) + mulDuration(adjusted, 0.125)
}

// lossDelay returns the time-threshold loss detection window, floored to
// granularity.
func (r *rttEstimator) lossDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	rtt := r.latestRTT
	if r.smoothedRTT > rtt {
		rtt = r.smoothedRTT
	}
	d := mulDuration(rtt, timeThreshold)
	if d < granularity {
		return granularity
	}
	return d
}

func (r *rttEstimator) smoothed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.smoothedRTT
}

func (r *rttEstimator) variance() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rttVar
}

func (r *rttEstimator) min() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minRTT
}

// pto returns the probe timeout base interval: smoothed + max(4*rttvar,
// granularity) + maxAckDelay (RFC 9002 section 6.2.1), before exponential
// backoff is applied by the caller.
func (r *rttEstimator) pto(includeMaxAckDelay bool) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	fourVar := 4 * r.rttVar
	if fourVar < granularity {
		fourVar = granularity
	}
	pto := r.smoothedRTT + fourVar
	if includeMaxAckDelay {
		pto += r.maxAckDelay
	}
	return pto
}

func mulDuration(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}
