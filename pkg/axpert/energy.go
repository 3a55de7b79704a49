package axpert

import "time"

// EnergyCounter integrates instantaneous power into a daily energy total.
type EnergyCounter struct {
	TotalKWh   float64
	LastSample time.Time
	LastDay    int
}

// Integrate adds power * elapsed since the previous sample and returns the
// daily total in kWh. The first sample ever contributes nothing. A change of
// day-of-month resets the total before the increment is added.
func (c *EnergyCounter) Integrate(powerW float64, now time.Time) float64 {
	var elapsed float64
	if !c.LastSample.IsZero() {
		elapsed = now.Sub(c.LastSample).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
	}
	if now.Day() != c.LastDay {
		c.TotalKWh = 0
	}
	c.TotalKWh += powerW * elapsed / 3_600_000
	c.LastSample = now
	c.LastDay = now.Day()
	return c.TotalKWh
}

// Restore seeds the counter from a value persisted by the host.
func (c *EnergyCounter) Restore(totalKWh float64, at time.Time) {
	c.TotalKWh = totalKWh
	c.LastSample = at
	c.LastDay = at.Day()
}

func (c *EnergyCounter) Snapshot() EnergyCounter {
	return *c
}
