package axpert

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type CycleState int

const (
	CYCLE_IDLE CycleState = iota
	CYCLE_CONNECTING
	CYCLE_FETCHING_STATUS
	CYCLE_FETCHING_SETTINGS
	CYCLE_CLOSED
	CYCLE_PUBLISHING
)

func (s CycleState) String() string {
	switch s {
	case CYCLE_IDLE:
		return "idle"
	case CYCLE_CONNECTING:
		return "connecting"
	case CYCLE_FETCHING_STATUS:
		return "fetching_status"
	case CYCLE_FETCHING_SETTINGS:
		return "fetching_settings"
	case CYCLE_CLOSED:
		return "closed"
	case CYCLE_PUBLISHING:
		return "publishing"
	}
	return "unknown"
}

// nextState is the poll cycle transition table. failed is the outcome of the
// state just run; settingsDue is the staleness gate decision taken in Idle.
func nextState(state CycleState, failed, settingsDue bool) CycleState {
	switch state {
	case CYCLE_IDLE:
		return CYCLE_CONNECTING
	case CYCLE_CONNECTING:
		if failed {
			return CYCLE_PUBLISHING
		}
		return CYCLE_FETCHING_STATUS
	case CYCLE_FETCHING_STATUS:
		if failed {
			return CYCLE_PUBLISHING
		}
		if settingsDue {
			return CYCLE_FETCHING_SETTINGS
		}
		return CYCLE_CLOSED
	case CYCLE_FETCHING_SETTINGS:
		// settings failures never roll back the status readings
		return CYCLE_CLOSED
	case CYCLE_CLOSED:
		return CYCLE_PUBLISHING
	default:
		return CYCLE_IDLE
	}
}

// pollCycle holds the state of one run through the state machine.
type pollCycle struct {
	ctx         context.Context
	device      *Device
	session     *Session
	settingsDue bool
	status      Readings
	err         error
	published   Readings
}

func (c *pollCycle) run(state CycleState) bool {
	d := c.device
	switch state {
	case CYCLE_IDLE:
		now := d.clock()
		if d.endpoint.PollInterval > 0 && d.scheduler != nil {
			d.scheduler(now.Add(d.endpoint.PollInterval))
		}
		c.settingsDue = d.gate.Due(now)
	case CYCLE_CONNECTING:
		c.session, c.err = OpenSession(c.ctx, d.dialer, d.endpoint, d.instrument)
	case CYCLE_FETCHING_STATUS:
		c.status, c.err = c.query(d.model.StatusCommand, DecodeStatus)
	case CYCLE_FETCHING_SETTINGS:
		settings, err := c.query(d.model.SettingsCommand, DecodeSettings)
		if err != nil {
			d.logger.Warn("settings refresh failed", zap.Error(err))
			return true
		}
		d.storeSettings(settings, d.clock())
	case CYCLE_CLOSED:
		c.close()
	case CYCLE_PUBLISHING:
		c.close()
		c.published = d.publish(c.status, c.err)
	}
	return c.err != nil
}

func (c *pollCycle) query(command string, decode func(Frame, *Model) (Readings, error)) (Readings, error) {
	frame, err := Exchange(c.session, EncodeCommand([]byte(command)), c.device.rereads)
	if err != nil {
		return nil, err
	}
	return decode(frame, c.device.model)
}

func (c *pollCycle) close() {
	if c.session != nil {
		if err := c.session.Close(); err != nil && !errors.Is(err, ErrTransport) {
			c.device.logger.Debug("session close", zap.Error(err))
		}
	}
}
