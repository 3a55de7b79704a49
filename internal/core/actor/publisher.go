package actor

import (
	"fmt"

	"github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/internal/core/events"
	"github.com/berfenger/axpert2mqtt/internal/core/service"
	. "github.com/berfenger/axpert2mqtt/internal/util/actorutil"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// PublisherActor turns each published reading set into sensor update events
// on the event stream and records it in the metrics.
type PublisherActor struct {
	behavior actor.Behavior

	model       *axpert.Model
	metrics     *service.Metrics
	eventStream *eventstream.EventStream
	published   int

	logger *zap.Logger
}

func NewPublisherActor(model *axpert.Model, metrics *service.Metrics, eventStream *eventstream.EventStream, logger *zap.Logger) *PublisherActor {
	act := &PublisherActor{
		model:       model,
		metrics:     metrics,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		logger:      ActorLogger(domain.ACTOR_ID_PUBLISHER, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *PublisherActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PublisherActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("publisher@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("publisher@default: ActorHealthRequest")
		ForRequest(msg).Respond(ctx, domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_PUBLISHER,
			Healthy: true,
			State:   fmt.Sprintf("published %d", state.published),
		})
	case domain.ReadingsPublished:
		state.published++
		readingState, _ := msg.Readings.Text(axpert.READING_STATE)
		state.logger.Debug("publisher@default ReadingsPublished",
			zap.String("state", readingState), zap.Int("readings", len(msg.Readings)))
		if state.metrics != nil {
			state.metrics.ObserveReadings(msg.Readings)
		}
		for _, ev := range events.ReadingsToUpdateEvents(state.model, msg.Readings) {
			state.eventStream.Publish(ev)
		}
		if readingState != axpert.STATE_OFFLINE {
			if ev := events.EnergyStateEvent(msg.Energy); ev != nil {
				state.eventStream.Publish(ev)
			}
		}
	default:
		state.logger.Debug("publisher@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
