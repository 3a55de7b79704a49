package port

import (
	"context"
	"time"

	"github.com/berfenger/axpert2mqtt/pkg/axpert"
)

type InverterClient interface {
	Model() *axpert.Model
	Endpoint() axpert.Endpoint
	RunPollCycle(ctx context.Context) axpert.Readings
	Readings() axpert.Readings
	GetReading(ctx context.Context, name string) (any, error)
	SetParameter(ctx context.Context, name, value string) error
	RestoreEnergy(totalKWh float64, at time.Time) bool
	Energy() axpert.EnergyCounter
	RatedVoltage() float64
}

var _ InverterClient = (*axpert.Device)(nil)
