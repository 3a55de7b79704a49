package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	. "github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_BATTERY         = "battery"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_APPARENT_POWER  = "apparent_power"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	ENTITY_CLASS_CONFIG          = "config"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	INPUT_NUMBER_MODE_BOX        = "box"
	INPUT_NUMBER_MODE_SLIDER     = "slider"
)

type readingMeta struct {
	unit        string
	deviceClass string
	stateClass  string
	category    string
	decimals    uint
	icon        string
}

func volts(decimals uint) readingMeta {
	return readingMeta{unit: "V", deviceClass: DEVICE_CLASS_VOLTAGE, stateClass: STATE_CLASS_MEASUREMENT, decimals: decimals}
}

func amps(decimals uint) readingMeta {
	return readingMeta{unit: "A", deviceClass: DEVICE_CLASS_CURRENT, stateClass: STATE_CLASS_MEASUREMENT, decimals: decimals}
}

func hertz() readingMeta {
	return readingMeta{unit: "Hz", deviceClass: DEVICE_CLASS_FREQUENCY, stateClass: STATE_CLASS_MEASUREMENT, decimals: 1}
}

func watts() readingMeta {
	return readingMeta{unit: "W", deviceClass: DEVICE_CLASS_POWER, stateClass: STATE_CLASS_MEASUREMENT}
}

func celsius(decimals uint) readingMeta {
	return readingMeta{unit: "°C", deviceClass: DEVICE_CLASS_TEMPERATURE, stateClass: STATE_CLASS_MEASUREMENT, decimals: decimals}
}

func setting(meta readingMeta) readingMeta {
	meta.stateClass = ""
	meta.category = ENTITY_CLASS_CONFIG
	return meta
}

var readingMetas = map[string]readingMeta{
	axpert.READING_STATE:            {icon: "mdi:solar-power-variant"},
	axpert.READING_SOLAR_ENERGY_DAY: {unit: "kWh", deviceClass: DEVICE_CLASS_ENERGY, stateClass: STATE_CLASS_TOTAL_INCREASING, decimals: 3},

	axpert.READING_GRID_VOLTAGE:              volts(1),
	axpert.READING_GRID_FREQUENCY:            hertz(),
	axpert.READING_OUTPUT_VOLTAGE:            volts(1),
	axpert.READING_OUTPUT_FREQUENCY:          hertz(),
	axpert.READING_OUTPUT_APPARENT_POWER:     {unit: "VA", deviceClass: DEVICE_CLASS_APPARENT_POWER, stateClass: STATE_CLASS_MEASUREMENT},
	axpert.READING_OUTPUT_ACTIVE_POWER:       watts(),
	axpert.READING_LOAD_PERCENT:              {unit: "%", stateClass: STATE_CLASS_MEASUREMENT, icon: "mdi:gauge"},
	axpert.READING_BUS_VOLTAGE:               volts(0),
	axpert.READING_BATTERY_VOLTAGE:           volts(2),
	axpert.READING_BATTERY_CHARGING_CURRENT:  amps(0),
	axpert.READING_BATTERY_CAPACITY:          {unit: "%", deviceClass: DEVICE_CLASS_BATTERY, stateClass: STATE_CLASS_MEASUREMENT},
	axpert.READING_INVERTER_TEMPERATURE:      celsius(1),
	axpert.READING_PV_INPUT_CURRENT:          amps(1),
	axpert.READING_PV_INPUT_VOLTAGE:          volts(1),
	axpert.READING_BATTERY_VOLTAGE_SCC:       volts(2),
	axpert.READING_BATTERY_DISCHARGE_CURRENT: amps(0),
	axpert.READING_DEVICE_STATUS:             {category: ENTITY_CLASS_DIAGNOSTIC},
	axpert.READING_BATTERY_VOLTAGE_OFFSET:    {category: ENTITY_CLASS_DIAGNOSTIC},
	axpert.READING_SOLAR_POWER:               {unit: "W", deviceClass: DEVICE_CLASS_POWER, stateClass: STATE_CLASS_MEASUREMENT, icon: "mdi:solar-power"},
	axpert.READING_DEVICE_MODE:               {icon: "mdi:state-machine"},

	axpert.READING_CHARGING_CURRENT:           amps(1),
	axpert.READING_CHARGING_CURRENT_1:         amps(1),
	axpert.READING_CHARGING_CURRENT_2:         amps(1),
	axpert.READING_CONTROLLER_TEMPERATURE:     celsius(0),
	axpert.READING_REMOTE_BATTERY_VOLTAGE:     volts(2),
	axpert.READING_REMOTE_BATTERY_TEMPERATURE: celsius(0),

	axpert.READING_BATTERY_RATED_VOLTAGE:       setting(volts(1)),
	axpert.READING_BATTERY_RECHARGE_VOLTAGE:    setting(volts(1)),
	axpert.READING_BATTERY_UNDER_VOLTAGE:       setting(volts(1)),
	axpert.READING_BATTERY_BULK_VOLTAGE:        setting(volts(1)),
	axpert.READING_BATTERY_FLOAT_VOLTAGE:       setting(volts(1)),
	axpert.READING_MAX_AC_CHARGING_CURRENT:     setting(amps(0)),
	axpert.READING_MAX_CHARGING_CURRENT:        setting(amps(0)),
	axpert.READING_OUTPUT_SOURCE_PRIORITY:      {category: ENTITY_CLASS_CONFIG, icon: "mdi:transmission-tower-export"},
	axpert.READING_CHARGER_PRIORITY:            {category: ENTITY_CLASS_CONFIG, icon: "mdi:battery-charging"},
	axpert.READING_BATTERY_REDISCHARGE_VOLTAGE: setting(volts(1)),
	axpert.READING_ABSORPTION_VOLTAGE:          setting(volts(2)),
	axpert.READING_FLOAT_VOLTAGE:               setting(volts(2)),
	axpert.READING_BATTERY_TYPE:                {category: ENTITY_CLASS_CONFIG},
}

// SensorId converts a reading name to its MQTT id: PVInputVoltage => pv_input_voltage.
func SensorId(reading string) string {
	var sb strings.Builder
	runes := []rune(reading)
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			switch {
			case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
				sb.WriteRune('_')
			case unicode.IsUpper(r) && unicode.IsUpper(prev) && nextLower:
				sb.WriteRune('_')
			case unicode.IsDigit(r) && !unicode.IsDigit(prev):
				sb.WriteRune('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// ReadingById resolves an MQTT id back to the model's reading name.
func ReadingById(model *axpert.Model, id string) (string, bool) {
	for _, name := range model.ReadingNames() {
		if SensorId(name) == id {
			return name, true
		}
	}
	return "", false
}

var acronyms = map[string]bool{"pv": true, "ac": true, "scc": true}

// sensorName turns BatteryFloatVoltage into "Battery float voltage".
func sensorName(reading string) string {
	words := strings.Split(SensorId(reading), "_")
	for i, w := range words {
		if acronyms[w] {
			words[i] = strings.ToUpper(w)
		}
	}
	name := strings.Join(words, " ")
	return strings.ToUpper(name[:1]) + name[1:]
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("axpert_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Axpert2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Axpert2MQTT %s", md5HashShort(baseTopic)),
	}
}

func InverterDevice(model *axpert.Model, endpoint axpert.Endpoint) Device {
	return Device{
		Id:           fmt.Sprintf("axpert_%s_%s", model.Id, md5HashShort(endpoint.Address())),
		Manufacturer: "Voltronic",
		Model:        model.Name,
		Name:         fmt.Sprintf("%s %s", model.Name, md5HashShort(endpoint.Address())),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

// ReadingSensors describes every read-only reading of the model. Readings
// backed by a set command are exposed as selects or numbers instead.
func ReadingSensors(inverterDevice Device, model *axpert.Model) []GenericSensor {

	var sensors []GenericSensor

	for _, name := range model.ReadingNames() {
		if _, ok := model.Commands[name]; ok {
			continue
		}
		id := SensorId(name)
		meta := readingMetas[name]
		sensors = append(sensors, GenericSensor{
			Device:            inverterDevice,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              sensorName(name),
			StateClass:        meta.stateClass,
			DeviceClass:       meta.deviceClass,
			UnitOfMeasurement: meta.unit,
			EntityCategory:    meta.category,
			Icon:              meta.icon,
			UniqueId:          uniqueId(inverterDevice.Id, id),
		})
	}

	return sensors
}

// SettingSelects covers enumerated and option-set commands.
func SettingSelects(inverterDevice Device, model *axpert.Model, ratedVoltage float64) []GenericSelect {

	var selects []GenericSelect

	for _, name := range model.ReadingNames() {
		cmd, ok := model.Commands[name]
		if !ok || cmd.Range != nil {
			continue
		}
		id := SensorId(name)
		selects = append(selects, GenericSelect{
			Device:         inverterDevice,
			Id:             id,
			Name:           sensorName(name),
			UniqueId:       uniqueId(inverterDevice.Id, id),
			Icon:           readingMetas[name].icon,
			EntityCategory: ENTITY_CLASS_CONFIG,
			Options:        cmd.Choices(ratedVoltage),
		})
	}

	return selects
}

// SettingInputNumbers covers range commands.
func SettingInputNumbers(inverterDevice Device, model *axpert.Model, ratedVoltage float64) []GenericInputNumber {

	var inputNumbers []GenericInputNumber

	for _, name := range model.ReadingNames() {
		cmd, ok := model.Commands[name]
		if !ok || cmd.Range == nil {
			continue
		}
		id := SensorId(name)
		lo, hi := cmd.Range(ratedVoltage)
		inputNumbers = append(inputNumbers, GenericInputNumber{
			Device:            inverterDevice,
			Id:                id,
			Name:              sensorName(name),
			UniqueId:          uniqueId(inverterDevice.Id, id),
			Icon:              "mdi:car-battery",
			UnitOfMeasurement: "V",
			EntityCategory:    ENTITY_CLASS_CONFIG,
			Min:               lo,
			Max:               hi,
			Step:              cmd.Step,
			Mode:              INPUT_NUMBER_MODE_BOX,
		})
	}

	return inputNumbers
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
