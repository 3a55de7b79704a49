package events

import (
	"slices"

	. "github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"
)

// ReadingsToUpdateEvents converts a published reading set into sensor update
// events, sorted by reading name. Readings backed by a set command produce
// select or input number events.
func ReadingsToUpdateEvents(model *axpert.Model, readings axpert.Readings) []any {
	var events []any

	names := make([]string, 0, len(readings))
	for name := range readings {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if event := readingUpdateEvent(model, name, readings[name]); event != nil {
			events = append(events, event)
		}
	}

	return events
}

func readingUpdateEvent(model *axpert.Model, name string, value any) any {
	mixIn := SensorUpdateEventMixIn{Id: SensorId(name)}
	cmd, commanded := model.Commands[name]

	switch v := value.(type) {
	case string:
		if commanded {
			return SelectUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: v}
		}
		return TextSensorUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: v}
	case float64:
		decimals := readingMetas[name].decimals
		if !commanded {
			return FloatSensorUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: v, Decimals: decimals}
		}
		if cmd.Range == nil {
			// option-set command
			return SelectUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: axpert.FormatChoice(v)}
		}
		return InputNumberSensorUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: v, Decimals: decimals}
	}
	return nil
}

func BridgeStateEvent(online bool) any {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}

// EnergyStateEvent reports the energy counter behind SolarEnergyDay. A counter
// that has never been sampled yields nil.
func EnergyStateEvent(energy axpert.EnergyCounter) any {
	if energy.LastSample.IsZero() {
		return nil
	}
	return EnergyStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SensorId(axpert.READING_SOLAR_ENERGY_DAY)},
		TotalKWh:               energy.TotalKWh,
		LastSample:             energy.LastSample,
	}
}
