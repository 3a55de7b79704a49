package axpert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleTransitions(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(CYCLE_CONNECTING, nextState(CYCLE_IDLE, false, false))
	assert.Equal(CYCLE_FETCHING_STATUS, nextState(CYCLE_CONNECTING, false, false))
	assert.Equal(CYCLE_PUBLISHING, nextState(CYCLE_CONNECTING, true, true))
	assert.Equal(CYCLE_FETCHING_SETTINGS, nextState(CYCLE_FETCHING_STATUS, false, true))
	assert.Equal(CYCLE_CLOSED, nextState(CYCLE_FETCHING_STATUS, false, false))
	assert.Equal(CYCLE_PUBLISHING, nextState(CYCLE_FETCHING_STATUS, true, true))
	assert.Equal(CYCLE_CLOSED, nextState(CYCLE_FETCHING_SETTINGS, true, true))
	assert.Equal(CYCLE_CLOSED, nextState(CYCLE_FETCHING_SETTINGS, false, true))
	assert.Equal(CYCLE_PUBLISHING, nextState(CYCLE_CLOSED, false, false))
	assert.Equal(CYCLE_IDLE, nextState(CYCLE_PUBLISHING, false, false))
	assert.Equal(CYCLE_IDLE, nextState(CYCLE_PUBLISHING, true, false))
}

func TestCycleStateString(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("fetching_settings", CYCLE_FETCHING_SETTINGS.String())
	assert.Equal("unknown", CycleState(42).String())
}
