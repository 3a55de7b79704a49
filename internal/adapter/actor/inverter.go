package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/internal/core/port"
	"github.com/berfenger/axpert2mqtt/internal/core/service"
	"github.com/berfenger/axpert2mqtt/internal/util/actorutil"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	INVERTER_ACTOR_ID = "inverter"
)

// InverterClientFactory builds the device client once the actor knows how to
// schedule its own polls and where to publish readings.
type InverterClientFactory func(scheduler axpert.Scheduler, publisher axpert.Publisher) port.InverterClient

// InverterActor owns the device client. The mailbox serializes poll, get and
// set; messages arriving during an exchange are stashed.
type InverterActor struct {
	behavior   actor.Behavior
	stash      *actorutil.Stash
	scheduler  *scheduler.TimerScheduler
	cancelPoll scheduler.CancelFunc

	newClient InverterClientFactory
	client    port.InverterClient
	publisher *actor.PID
	metrics   *service.Metrics
	logger    *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
	// poll after a successful set so new settings get published
	refresh bool
}

type clientPublisher struct {
	system *actor.ActorSystem
	pid    *actor.PID
	energy func() axpert.EnergyCounter
}

func (p clientPublisher) PublishReadings(readings axpert.Readings) {
	if p.pid != nil {
		p.system.Root.Send(p.pid, domain.ReadingsPublished{Readings: readings, Energy: p.energy()})
	}
}

func NewInverterActor(newClient InverterClientFactory, publisher *actor.PID, metrics *service.Metrics, logger *zap.Logger) *InverterActor {
	act := &InverterActor{
		newClient: newClient,
		publisher: publisher,
		metrics:   metrics,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger("inverter", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *InverterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *InverterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("inverter@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		self := ctx.Self()
		state.client = state.newClient(func(at time.Time) {
			if state.cancelPoll != nil {
				state.cancelPoll()
			}
			state.cancelPoll = state.scheduler.RequestOnce(time.Until(at), self, domain.PollRequest{})
		}, clientPublisher{
			system: ctx.ActorSystem(),
			pid:    state.publisher,
			energy: func() axpert.EnergyCounter { return state.client.Energy() },
		})

		endpoint := state.client.Endpoint()
		state.logger.Info("inverter@starting: device ready",
			zap.String("model", state.client.Model().Id),
			zap.String("address", endpoint.Address()),
			zap.Duration("poll_interval", endpoint.PollInterval))
		if endpoint.PollInterval > 0 {
			ctx.Send(self, domain.PollRequest{})
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("inverter@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *InverterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("inverter@default: ActorHealthRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.ActorHealthResponse{
			Id:      INVERTER_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.PollRequest:
		state.logger.Debug("inverter@default: PollRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.PollResponse {
			opCtx, cancel := state.exchangeContext()
			defer cancel()
			return &domain.PollResponse{Readings: state.client.RunPollCycle(opCtx)}
		}), mapTaskResult[domain.PollResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.PollResponse{ActorResponseMixIn: domain.ErrorResponse(err)},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout()).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	case domain.GetReadingsRequest:
		state.logger.Debug("inverter@default: GetReadingsRequest")
		if state.client.Endpoint().PollInterval > 0 {
			actorutil.ForRequest(msg).Respond(ctx, domain.GetReadingsResponse{
				Readings: state.client.Readings(),
			})
			return
		}
		// on-demand device: read fresh values like GetReadingRequest does
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.GetReadingsResponse {
			opCtx, cancel := state.exchangeContext()
			defer cancel()
			return &domain.GetReadingsResponse{Readings: state.client.RunPollCycle(opCtx)}
		}), mapTaskResult[domain.GetReadingsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetReadingsResponse{ActorResponseMixIn: domain.ErrorResponse(err)},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout()).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	case domain.GetReadingRequest:
		state.logger.Debug("inverter@default: GetReadingRequest", zap.String("name", msg.Name))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.GetReadingResponse {
			opCtx, cancel := state.exchangeContext()
			defer cancel()
			value, err := state.client.GetReading(opCtx, msg.Name)
			return &domain.GetReadingResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
				Name:               msg.Name,
				Value:              value,
			}
		}), mapTaskResult[domain.GetReadingResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetReadingResponse{ActorResponseMixIn: domain.ErrorResponse(err), Name: msg.Name},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout()).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	case domain.SetParameterRequest:
		state.logger.Info("inverter@default: SetParameterRequest", zap.String("name", msg.Name), zap.String("value", msg.Value))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.SetParameterResponse {
			opCtx, cancel := state.exchangeContext()
			defer cancel()
			err := state.client.SetParameter(opCtx, msg.Name, msg.Value)
			if state.metrics != nil {
				state.metrics.ObserveSet(msg.Name, err)
			}
			if err != nil {
				state.logger.Warn("inverter@default: set failed", zap.String("name", msg.Name), zap.Error(err))
			}
			return &domain.SetParameterResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		}), func(resp *domain.SetParameterResponse) *backgroundTaskResult {
			return &backgroundTaskResult{
				message: *resp,
				replyTo: sender,
				refresh: !resp.HasResponseError(),
			}
		}).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetParameterResponse{ActorResponseMixIn: domain.ErrorResponse(err)},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout()).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	case domain.RestoreEnergyRequest:
		restored := state.client.RestoreEnergy(msg.TotalKWh, msg.At)
		state.logger.Info("inverter@default: RestoreEnergyRequest", zap.Float64("total_kwh", msg.TotalKWh),
			zap.Time("sampled_at", msg.At), zap.Bool("restored", restored))
	case domain.GetDeviceInfoRequest:
		state.logger.Debug("inverter@default: GetDeviceInfoRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetDeviceInfoResponse{
			Model:        state.client.Model(),
			Endpoint:     state.client.Endpoint(),
			RatedVoltage: state.client.RatedVoltage(),
		})
	case *actor.Stopping:
		state.stopPolling()
	default:
		state.logger.Debug("inverter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *InverterActor) WaitingInverter(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("inverter@WaitingInverter backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		if msg.refresh {
			ctx.Send(ctx.Self(), domain.PollRequest{})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		actorutil.ForRequest(msg).Respond(ctx, domain.ActorHealthResponse{
			Id:      INVERTER_ACTOR_ID,
			Healthy: true,
			State:   "exchanging",
		})
	case *actor.Stopping:
		state.stopPolling()
	default:
		state.logger.Debug("inverter@WaitingInverter stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *InverterActor) stopPolling() {
	if state.cancelPoll != nil {
		state.cancelPoll()
		state.cancelPoll = nil
	}
}

// exchangeContext bounds one device operation: a cycle may open a session
// for status and one for settings.
func (state *InverterActor) exchangeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*state.client.Endpoint().EffectiveTimeout())
}

func (state *InverterActor) taskTimeout() time.Duration {
	return 2*state.client.Endpoint().EffectiveTimeout() + time.Second
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
