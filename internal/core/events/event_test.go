package events

import (
	"testing"
	"time"

	. "github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/stretchr/testify/assert"
)

func TestSensorId(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("pv_input_voltage", SensorId(axpert.READING_PV_INPUT_VOLTAGE))
	assert.Equal("battery_voltage_scc", SensorId(axpert.READING_BATTERY_VOLTAGE_SCC))
	assert.Equal("max_ac_charging_current", SensorId(axpert.READING_MAX_AC_CHARGING_CURRENT))
	assert.Equal("charging_current_1", SensorId(axpert.READING_CHARGING_CURRENT_1))
	assert.Equal("solar_energy_day", SensorId(axpert.READING_SOLAR_ENERGY_DAY))
	assert.Equal("state", SensorId(axpert.READING_STATE))
}

func TestReadingById(t *testing.T) {

	assert := assert.New(t)

	name, ok := ReadingById(axpert.InverterModel, "output_source_priority")
	assert.True(ok)
	assert.Equal(axpert.READING_OUTPUT_SOURCE_PRIORITY, name)

	_, ok = ReadingById(axpert.InverterModel, "absorption_voltage")
	assert.False(ok)

	name, ok = ReadingById(axpert.ChargeControllerModel, "absorption_voltage")
	assert.True(ok)
	assert.Equal(axpert.READING_ABSORPTION_VOLTAGE, name)
}

func TestSensorName(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("PV input voltage", sensorName(axpert.READING_PV_INPUT_VOLTAGE))
	assert.Equal("Max AC charging current", sensorName(axpert.READING_MAX_AC_CHARGING_CURRENT))
	assert.Equal("Solar energy day", sensorName(axpert.READING_SOLAR_ENERGY_DAY))
}

func TestReadingsToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	readings := axpert.Readings{
		axpert.READING_STATE:                    "Line",
		axpert.READING_SOLAR_POWER:              920.0,
		axpert.READING_OUTPUT_SOURCE_PRIORITY:   "SBU",
		axpert.READING_BATTERY_RECHARGE_VOLTAGE: 46.0,
		axpert.READING_BATTERY_BULK_VOLTAGE:     56.4,
	}

	events := ReadingsToUpdateEvents(axpert.InverterModel, readings)
	assert.Len(events, 5)

	// sorted by reading name
	assert.Equal(InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "battery_bulk_voltage"},
		Value:                  56.4,
		Decimals:               1,
	}, events[0])
	assert.Equal(SelectUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "battery_recharge_voltage"},
		Value:                  "46.0",
	}, events[1])
	assert.Equal(SelectUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "output_source_priority"},
		Value:                  "SBU",
	}, events[2])
	assert.Equal(FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "solar_power"},
		Value:                  920.0,
	}, events[3])
	assert.Equal(TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "state"},
		Value:                  "Line",
	}, events[4])
}

func TestOfflineReadingsToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	events := ReadingsToUpdateEvents(axpert.ChargeControllerModel, axpert.Readings{axpert.READING_STATE: axpert.STATE_OFFLINE})
	assert.Equal([]any{TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "state"},
		Value:                  axpert.STATE_OFFLINE,
	}}, events)
}

func TestDiscoveryComponents(t *testing.T) {

	assert := assert.New(t)

	endpoint := axpert.Endpoint{Host: "10.0.0.7", Port: 8899}
	device := InverterDevice(axpert.InverterModel, endpoint)
	assert.Contains(device.Id, "axpert_inverter_")

	sensors := ReadingSensors(device, axpert.InverterModel)
	selects := SettingSelects(device, axpert.InverterModel, 48)
	numbers := SettingInputNumbers(device, axpert.InverterModel, 48)

	// every reading is exposed exactly once
	assert.Equal(len(axpert.InverterModel.ReadingNames()), len(sensors)+len(selects)+len(numbers))
	assert.Len(selects, 4)
	assert.Len(numbers, 2)

	for _, s := range sensors {
		_, commanded := axpert.InverterModel.Commands[mustReading(t, s.Id)]
		assert.False(commanded, s.Id)
		assert.Equal(uniqueId(device.Id, s.Id), s.UniqueId)
	}

	for _, s := range selects {
		if s.Id == "charger_priority" {
			assert.Equal([]string{"UtilityFirst", "SolarFirst", "SolarAndUtility", "OnlySolar"}, s.Options)
		}
		assert.NotEmpty(s.Options, s.Id)
	}

	for _, n := range numbers {
		assert.Less(n.Min, n.Max, n.Id)
		assert.Equal(0.1, n.Step, n.Id)
	}

	bridge := BridgeSensors(BridgeDevice("axpert"))
	assert.Len(bridge, 1)
	assert.Equal(SENSOR_TYPE_BINARY, bridge[0].SensorType)
}

func mustReading(t *testing.T, id string) string {
	name, ok := ReadingById(axpert.InverterModel, id)
	if !ok {
		t.Fatalf("unknown sensor id %s", id)
	}
	return name
}

func TestEnergyStateEvent(t *testing.T) {

	assert := assert.New(t)

	assert.Nil(EnergyStateEvent(axpert.EnergyCounter{}), "never sampled")

	sampled := time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)
	assert.Equal(EnergyStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "solar_energy_day"},
		TotalKWh:               3.2,
		LastSample:             sampled,
	}, EnergyStateEvent(axpert.EnergyCounter{TotalKWh: 3.2, LastSample: sampled, LastDay: 1}))
}
