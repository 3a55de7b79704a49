package actorutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/internal/core/events"
	"github.com/berfenger/axpert2mqtt/internal/mqtt"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a select, number or energy restore message
// to the inverter request that serves it.
func ParsedMQTTCommandToCommand(model *axpert.Model, cmd mqtt.ParsedMQTTCommand) (domain.InverterRequest, error) {
	switch cmd.Command {
	case mqtt.MQTT_COMMAND_SELECT, mqtt.MQTT_COMMAND_NUMBER:
		name, ok := events.ReadingById(model, cmd.DeviceId)
		if !ok {
			return nil, fmt.Errorf("%w: %s", axpert.ErrUnknownCommand, cmd.DeviceId)
		}
		return domain.SetParameterRequest{
			Name:  name,
			Value: cmd.Payload,
		}, nil
	case mqtt.MQTT_COMMAND_RESTORE:
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.RestoreEnergyRequest{
			TotalKWh: value,
			At:       cmd.At,
		}, nil
	}
	return nil, fmt.Errorf("unsupported MQTT command %s", cmd.Command)
}
