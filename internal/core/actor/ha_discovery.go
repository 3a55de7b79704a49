package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/axpert2mqtt/internal/config"
	"github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/internal/core/events"
	"github.com/berfenger/axpert2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	HADISCOVERY_ACTOR_ID = "hadiscovery"
)

type HADiscoveryActor struct {
	config             *config.Config
	behavior           actor.Behavior
	stash              *actorutil.Stash
	inverterActor        *actor.PID
	mqttActor          *actor.PID
	inverterActorHealthy bool
	mqttActorHealthy   bool
	healthyRecv        int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, inverterActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:      config,
		inverterActor: inverterActor,
		mqttActor:   mqttActor,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check inverter and MQTT actor healthy
		state.healthyRecv = 0
		state.inverterActorHealthy = false
		state.mqttActorHealthy = false
		// Inverter Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_INVERTER,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_INVERTER:
				state.inverterActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.inverterActorHealthy && state.mqttActorHealthy {
				// Ask inverter GetDeviceInfoRequest
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetDeviceInfoRequest{}, 15*time.Second), func(err error) any {
					return domain.GetDeviceInfoResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Inverter Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetDeviceInfoResponse",
			zap.String("model", msg.Model.Id), zap.Float64("rated_voltage", msg.RatedVoltage))

		ctx.Send(state.mqttActor, DiscoveryRequest(state.config.MQTT.BaseTopic, msg))
		state.behavior.Become(state.Done)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// DiscoveryRequest lists the bridge connectivity sensor plus every reading of
// the device: commanded readings as selects or numbers, the rest as sensors.
func DiscoveryRequest(baseTopic string, info domain.GetDeviceInfoResponse) domain.PublishDiscoveryRequest {
	var sensors []domain.GenericSensor

	bridgeDevice := events.BridgeDevice(baseTopic)
	sensors = append(sensors, events.BridgeSensors(bridgeDevice)...)

	inverterDevice := events.InverterDevice(info.Model, info.Endpoint)
	inverterDevice.ViaDevice = bridgeDevice.Id
	inverterSensors := events.ReadingSensors(inverterDevice, info.Model)
	for i := range inverterSensors {
		if i > 0 {
			inverterSensors[i].Device = events.IdDevice(inverterDevice)
		}
		sensors = append(sensors, inverterSensors[i])
	}

	idDevice := events.IdDevice(inverterDevice)
	return domain.PublishDiscoveryRequest{
		Sensors:      sensors,
		Selects:      events.SettingSelects(idDevice, info.Model, info.RatedVoltage),
		InputNumbers: events.SettingInputNumbers(idDevice, info.Model, info.RatedVoltage),
	}
}
