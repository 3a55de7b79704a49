package axpert

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// Scheduler is asked by the device when it wants its next poll cycle.
type Scheduler func(at time.Time)

// Publisher receives each cycle's reading set as a single batch.
type Publisher interface {
	PublishReadings(Readings)
}

type Option func(*Device)

func WithDialer(dialer Dialer) Option {
	return func(d *Device) { d.dialer = dialer }
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Device) { d.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(d *Device) { d.clock = clock }
}

func WithScheduler(scheduler Scheduler) Option {
	return func(d *Device) { d.scheduler = scheduler }
}

func WithPublisher(publisher Publisher) Option {
	return func(d *Device) { d.publisher = publisher }
}

func WithInstrument(instrument Instrument) Option {
	return func(d *Device) { d.instrument = append(d.instrument, instrument) }
}

// WithRereadPolicy sets how many frames a poll query may re-read, without
// re-sending, when the device answers with a malformed frame.
func WithRereadPolicy(maxRereads int) Option {
	return func(d *Device) { d.rereads = maxRereads }
}

// Device is the poll orchestrator for one inverter or charge controller.
// It is not safe for concurrent use; callers serialize poll, get and set.
type Device struct {
	model      *Model
	endpoint   Endpoint
	dialer     Dialer
	logger     *zap.Logger
	clock      func() time.Time
	scheduler  Scheduler
	publisher  Publisher
	instrument []Instrument
	rereads    int

	gate         *SettingsGate
	energy       EnergyCounter
	settings     Readings
	ratedVoltage float64
	last         Readings
}

func NewDevice(model *Model, endpoint Endpoint, opts ...Option) *Device {
	d := &Device{
		model:    model,
		endpoint: endpoint,
		dialer:   &net.Dialer{},
		logger:   zap.NewNop(),
		clock:    time.Now,
		rereads:  POLL_MAX_REREADS,
		gate:     NewSettingsGate(),
		settings: Readings{},
		last:     Readings{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) Model() *Model {
	return d.model
}

func (d *Device) Endpoint() Endpoint {
	return d.endpoint
}

// RunPollCycle runs one full cycle and returns the published reading set:
// either the decoded readings or {State: Offline}.
func (d *Device) RunPollCycle(ctx context.Context) Readings {
	c := &pollCycle{ctx: ctx, device: d}
	defer c.close()

	state := CYCLE_IDLE
	for {
		failed := c.run(state)
		next := nextState(state, failed, c.settingsDue)
		d.logger.Debug("cycle transition", zap.Stringer("from", state), zap.Stringer("to", next))
		if next == CYCLE_IDLE {
			break
		}
		state = next
	}
	return c.published
}

// GetReading returns a reading of the last published set. An on-demand device
// (PollInterval 0) runs a fresh cycle first.
func (d *Device) GetReading(ctx context.Context, name string) (any, error) {
	if d.endpoint.PollInterval == 0 {
		d.RunPollCycle(ctx)
	}
	v, ok := d.last[name]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Readings returns a copy of the last published set.
func (d *Device) Readings() Readings {
	return d.last.Copy()
}

// SetParameter validates and sends one set command. Invalid input fails with
// ErrUnknownCommand or ErrUnknownValue before any connection is made.
func (d *Device) SetParameter(ctx context.Context, name, value string) error {
	command, err := BuildSetCommand(d.model, name, value, d.ratedVoltage)
	if err != nil {
		return err
	}

	var response Frame
	err = WithSession(ctx, d.dialer, d.endpoint, d.instrument, func(s *Session) error {
		var err error
		response, err = Exchange(s, command, SET_MAX_REREADS)
		return err
	})
	if err != nil {
		return &SetFailedError{Command: name, Response: response.Raw, Err: err}
	}
	if !Acknowledged(response) {
		return &SetFailedError{Command: name, Response: response.Raw}
	}

	d.logger.Info("parameter set", zap.String("name", name), zap.String("value", value))
	// read the new settings back on the next cycle
	d.gate.Invalidate()
	return nil
}

// RestoreEnergy seeds the daily energy counter, e.g. from a retained MQTT value.
// at is when the total was last sampled; a total from an earlier day is
// discarded so the counter starts the current day from zero.
func (d *Device) RestoreEnergy(totalKWh float64, at time.Time) bool {
	now := d.clock()
	if !sameDay(at.In(now.Location()), now) {
		d.logger.Info("stale energy total discarded", zap.Float64("total_kwh", totalKWh), zap.Time("sampled_at", at))
		return false
	}
	d.energy.Restore(totalKWh, at)
	return true
}

func (d *Device) Energy() EnergyCounter {
	return d.energy.Snapshot()
}

func (d *Device) RatedVoltage() float64 {
	return d.ratedVoltage
}

func (d *Device) storeSettings(settings Readings, now time.Time) {
	d.settings = settings
	if v, ok := settings.Float(d.model.RatedVoltageReading); ok {
		d.ratedVoltage = v
	}
	d.gate.MarkRefreshed(now)
}

func (d *Device) publish(status Readings, err error) Readings {
	var out Readings
	if err != nil {
		d.logger.Warn("poll cycle failed", zap.Error(err))
		out = Readings{READING_STATE: STATE_OFFLINE}
	} else {
		out = d.settings.Copy()
		for k, v := range status {
			out[k] = v
		}
		power, _ := status.Float(d.model.PowerReading)
		out[READING_SOLAR_ENERGY_DAY] = d.energy.Integrate(power, d.clock())
		out[READING_STATE] = d.model.State(out)
	}
	d.last = out
	if d.publisher != nil {
		d.publisher.PublishReadings(out.Copy())
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
