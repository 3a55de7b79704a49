package axpert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnergyIntegration(t *testing.T) {

	assert := assert.New(t)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	var c EnergyCounter

	assert.Equal(0.0, c.Integrate(1000, start), "first sample contributes nothing")
	assert.InDelta(1.0, c.Integrate(1000, start.Add(time.Hour)), 1e-9)
	assert.InDelta(1.5, c.Integrate(500, start.Add(2*time.Hour)), 1e-9)
}

func TestEnergyDayRollover(t *testing.T) {

	assert := assert.New(t)

	evening := time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	var c EnergyCounter
	c.Restore(12.5, evening)

	total := c.Integrate(600, evening.Add(2*time.Minute))

	assert.InDelta(0.02, total, 1e-9, "total resets before adding the increment")
	assert.Equal(2, c.LastDay)
}

func TestEnergyClockBackwards(t *testing.T) {

	assert := assert.New(t)

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	var c EnergyCounter
	c.Restore(2, now)

	assert.Equal(2.0, c.Integrate(3000, now.Add(-time.Minute)))
	assert.Equal(2.0, c.Snapshot().TotalKWh)
}
