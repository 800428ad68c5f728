package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowControllerCanSendAndConsume(t *testing.T) {
	f := newFlowController(100, 100)
	assert.Equal(t, VarInt(100), f.canSend())
	f.consumeSend(40)
	assert.Equal(t, VarInt(60), f.canSend())
}

func TestFlowControllerUpdateSendMaxNeverShrinks(t *testing.T) {
	f := newFlowController(100, 100)
	f.updateSendMax(50)
	assert.Equal(t, VarInt(100), f.canSend(), "a lower MAX_DATA must not shrink the limit")
	f.updateSendMax(200)
	assert.Equal(t, VarInt(200), f.canSend())
}

func TestFlowControllerShouldSendBlockedOnceAtLimit(t *testing.T) {
	f := newFlowController(10, 10)
	f.consumeSend(10)
	max, ok := f.shouldSendBlocked()
	assert.True(t, ok)
	assert.Equal(t, VarInt(10), max)

	_, ok = f.shouldSendBlocked()
	assert.False(t, ok, "must not re-report blocked at the same limit")

	f.updateSendMax(20)
	_, ok = f.shouldSendBlocked()
	assert.False(t, ok, "not blocked again until consumption catches up")
}

func TestFlowControllerNeedsWindowUpdateAtHalfWindow(t *testing.T) {
	f := newFlowController(0, 100)
	assert.True(t, f.recordReceived(40))
	_, ok := f.needsWindowUpdate()
	assert.False(t, ok)

	f.recordReceived(51)
	newMax, ok := f.needsWindowUpdate()
	assert.True(t, ok)
	assert.Equal(t, VarInt(151), newMax)
}

func TestFlowControllerRecordReceivedRejectsOverLimit(t *testing.T) {
	f := newFlowController(0, 100)
	assert.False(t, f.recordReceived(101))
	assert.True(t, f.recordReceived(100))
}
