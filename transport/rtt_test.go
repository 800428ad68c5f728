package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRTTEstimatorFirstSample(t *testing.T) {
	r := newRTTEstimator()
	r.update(100*time.Millisecond, 0, false)
	assert.Equal(t, 100*time.Millisecond, r.smoothed())
	assert.Equal(t, 50*time.Millisecond, r.variance())
	assert.Equal(t, 100*time.Millisecond, r.min())
}

// Scenario 6 of spec.md section 8.
func TestRTTEstimatorSecondSample(t *testing.T) {
	r := newRTTEstimator()
	r.setMaxAckDelay(25 * time.Millisecond)
	r.update(100*time.Millisecond, 0, false)
	r.update(120*time.Millisecond, 10*time.Millisecond, true)

	assert.Equal(t, 40*time.Millisecond, r.variance())
	assert.Equal(t, 101250*time.Microsecond, r.smoothed())
}

func TestRTTEstimatorAckDelayIgnoredBeforeConfirmation(t *testing.T) {
	r := newRTTEstimator()
	r.setMaxAckDelay(5 * time.Millisecond)
	r.update(100*time.Millisecond, 0, false)
	// Large ack delay, but handshake not confirmed yet so it is not clamped
	// and the "implausible" branch (latest < min+ackDelay) keeps latest as-is.
	r.update(50*time.Millisecond, 200*time.Millisecond, false)
	assert.Equal(t, 50*time.Millisecond, r.min())
}

func TestRTTEstimatorLossDelayFloor(t *testing.T) {
	r := newRTTEstimator()
	r.update(0, 0, false)
	assert.Equal(t, granularity, r.lossDelay())
}

func TestRTTEstimatorLossDelay(t *testing.T) {
	r := newRTTEstimator()
	r.update(100*time.Millisecond, 0, false)
	assert.Equal(t, mulDuration(100*time.Millisecond, 1.125), r.lossDelay())
}
