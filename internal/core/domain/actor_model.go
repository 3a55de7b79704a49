package domain

import (
	"time"

	"github.com/berfenger/axpert2mqtt/pkg/axpert"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_INVERTER     = "inverter"
	ACTOR_ID_PUBLISHER    = "publisher"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type PollRequest struct {
	InverterRequestMixIn
}

type PollResponse struct {
	ActorResponseMixIn
	Readings axpert.Readings
}

type GetReadingsRequest struct {
	InverterRequestMixIn
}

type GetReadingsResponse struct {
	ActorResponseMixIn
	Readings axpert.Readings
}

type GetReadingRequest struct {
	InverterRequestMixIn
	Name string
}

type GetReadingResponse struct {
	ActorResponseMixIn
	Name  string
	Value any
}

type SetParameterRequest struct {
	InverterRequestMixIn
	Name  string
	Value string
}

type SetParameterResponse struct {
	ActorResponseMixIn
}

type RestoreEnergyRequest struct {
	InverterRequestMixIn
	TotalKWh float64
	At       time.Time
}

type GetDeviceInfoRequest struct {
	InverterRequestMixIn
}

type GetDeviceInfoResponse struct {
	ActorResponseMixIn
	Model        *axpert.Model
	Endpoint     axpert.Endpoint
	RatedVoltage float64
}

// ReadingsPublished carries the reading set of one poll cycle and the energy
// counter state it was computed from.
type ReadingsPublished struct {
	Readings axpert.Readings
	Energy   axpert.EnergyCounter
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Selects      []GenericSelect
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}
