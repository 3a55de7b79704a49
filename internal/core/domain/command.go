package domain

import "fmt"

// InverterRequest is any message served by the inverter actor.

type InverterRequest interface {
	ActorRequest
	InverterCommand() string
}

type InverterRequestMixIn struct {
	ActorRequestMixIn
}

func (r InverterRequestMixIn) InverterCommand() string {
	return fmt.Sprintf("%T", r)
}

// ensure interface compliance
var (
	_ InverterRequest = (*PollRequest)(nil)
	_ InverterRequest = (*GetReadingsRequest)(nil)
	_ InverterRequest = (*GetReadingRequest)(nil)
	_ InverterRequest = (*SetParameterRequest)(nil)
	_ InverterRequest = (*RestoreEnergyRequest)(nil)
	_ InverterRequest = (*GetDeviceInfoRequest)(nil)
)
