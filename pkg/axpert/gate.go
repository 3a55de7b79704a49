package axpert

import "time"

const (
	SETTINGS_REFRESH_WINDOW = 10 * time.Minute
)

// SettingsGate throttles the settings refresh to once per Window.
type SettingsGate struct {
	Window        time.Duration
	lastRefreshed time.Time
}

func NewSettingsGate() *SettingsGate {
	return &SettingsGate{Window: SETTINGS_REFRESH_WINDOW}
}

// Due reports whether the last successful refresh is at least Window old.
// A gate that never refreshed is always due.
func (g *SettingsGate) Due(now time.Time) bool {
	if g.lastRefreshed.IsZero() {
		return true
	}
	return now.Sub(g.lastRefreshed) >= g.Window
}

func (g *SettingsGate) MarkRefreshed(now time.Time) {
	g.lastRefreshed = now
}

func (g *SettingsGate) Invalidate() {
	g.lastRefreshed = time.Time{}
}

func (g *SettingsGate) LastRefreshed() time.Time {
	return g.lastRefreshed
}
