package axpert

import (
	"fmt"
	"maps"
	"strconv"
)

const (
	MODEL_ID_INVERTER          = "inverter"
	MODEL_ID_CHARGE_CONTROLLER = "charge_controller"

	COMMAND_QUERY_STATUS   = "QPIGS"
	COMMAND_QUERY_SETTINGS = "QPIRI"

	STATE_OFFLINE = "Offline"
	STATE_ONLINE  = "Online"
)

// Reading names published by the device.
const (
	READING_STATE            = "State"
	READING_SOLAR_ENERGY_DAY = "SolarEnergyDay"

	READING_GRID_VOLTAGE              = "GridVoltage"
	READING_GRID_FREQUENCY            = "GridFrequency"
	READING_OUTPUT_VOLTAGE            = "OutputVoltage"
	READING_OUTPUT_FREQUENCY          = "OutputFrequency"
	READING_OUTPUT_APPARENT_POWER     = "OutputApparentPower"
	READING_OUTPUT_ACTIVE_POWER       = "OutputActivePower"
	READING_LOAD_PERCENT              = "LoadPercent"
	READING_BUS_VOLTAGE               = "BusVoltage"
	READING_BATTERY_VOLTAGE           = "BatteryVoltage"
	READING_BATTERY_CHARGING_CURRENT  = "BatteryChargingCurrent"
	READING_BATTERY_CAPACITY          = "BatteryCapacity"
	READING_INVERTER_TEMPERATURE      = "InverterTemperature"
	READING_PV_INPUT_CURRENT          = "PVInputCurrent"
	READING_PV_INPUT_VOLTAGE          = "PVInputVoltage"
	READING_BATTERY_VOLTAGE_SCC       = "BatteryVoltageSCC"
	READING_BATTERY_DISCHARGE_CURRENT = "BatteryDischargeCurrent"
	READING_DEVICE_STATUS             = "DeviceStatus"
	READING_BATTERY_VOLTAGE_OFFSET    = "BatteryVoltageOffset"
	READING_SOLAR_POWER               = "SolarPower"
	READING_DEVICE_MODE               = "DeviceMode"

	READING_CHARGING_CURRENT           = "ChargingCurrent"
	READING_CHARGING_CURRENT_1         = "ChargingCurrent1"
	READING_CHARGING_CURRENT_2         = "ChargingCurrent2"
	READING_CONTROLLER_TEMPERATURE     = "ControllerTemperature"
	READING_REMOTE_BATTERY_VOLTAGE     = "RemoteBatteryVoltage"
	READING_REMOTE_BATTERY_TEMPERATURE = "RemoteBatteryTemperature"

	READING_BATTERY_RATED_VOLTAGE       = "BatteryRatedVoltage"
	READING_BATTERY_RECHARGE_VOLTAGE    = "BatteryRechargeVoltage"
	READING_BATTERY_UNDER_VOLTAGE       = "BatteryUnderVoltage"
	READING_BATTERY_BULK_VOLTAGE        = "BatteryBulkVoltage"
	READING_BATTERY_FLOAT_VOLTAGE       = "BatteryFloatVoltage"
	READING_MAX_AC_CHARGING_CURRENT     = "MaxACChargingCurrent"
	READING_MAX_CHARGING_CURRENT        = "MaxChargingCurrent"
	READING_OUTPUT_SOURCE_PRIORITY      = "OutputSourcePriority"
	READING_CHARGER_PRIORITY            = "ChargerPriority"
	READING_BATTERY_REDISCHARGE_VOLTAGE = "BatteryRedischargeVoltage"
	READING_ABSORPTION_VOLTAGE          = "AbsorptionVoltage"
	READING_FLOAT_VOLTAGE               = "FloatVoltage"
	READING_BATTERY_TYPE                = "BatteryType"
)

type FieldKind int

const (
	FIELD_SKIP FieldKind = iota
	FIELD_NUMBER
	FIELD_TENTHS   // numeric value divided by 10
	FIELD_MODE     // raw token looked up by code
	FIELD_PRIORITY // numeric code reverse-looked-up by value
)

// Field describes one positional token of a response frame.
type Field struct {
	Name  string
	Kind  FieldKind
	Table ModeTable
}

func number(name string) Field { return Field{Name: name, Kind: FIELD_NUMBER} }

func tenths(name string) Field { return Field{Name: name, Kind: FIELD_TENTHS} }

func skip() Field { return Field{Kind: FIELD_SKIP} }

type ModeOption struct {
	Label string
	Code  string
}

// ModeTable is an ordered, read-only label <-> protocol code mapping.
type ModeTable []ModeOption

func (t ModeTable) Code(label string) (string, bool) {
	for _, o := range t {
		if o.Label == label {
			return o.Code, true
		}
	}
	return "", false
}

func (t ModeTable) Label(code string) (string, bool) {
	for _, o := range t {
		if o.Code == code {
			return o.Label, true
		}
	}
	return "", false
}

// LabelForValue matches a numeric settings token ("1") against the codes
// ("01"). The first matching entry wins.
func (t ModeTable) LabelForValue(token string) (string, bool) {
	v, err := strconv.Atoi(token)
	if err != nil {
		return "", false
	}
	for _, o := range t {
		c, err := strconv.Atoi(o.Code)
		if err == nil && c == v {
			return o.Label, true
		}
	}
	return "", false
}

func (t ModeTable) Labels() []string {
	labels := make([]string, len(t))
	for i := range t {
		labels[i] = t[i].Label
	}
	return labels
}

var (
	DeviceModeTable = ModeTable{
		{Label: "Power On", Code: "P"},
		{Label: "Standby", Code: "S"},
		{Label: "Line", Code: "L"},
		{Label: "Battery", Code: "B"},
		{Label: "Fault", Code: "F"},
		{Label: "Power Saving", Code: "H"},
	}

	OutputSourcePriorityTable = ModeTable{
		{Label: "Utility", Code: "00"},
		{Label: "SolarFirst", Code: "01"},
		{Label: "SBU", Code: "02"},
	}

	ChargerPriorityTable = ModeTable{
		{Label: "UtilityFirst", Code: "00"},
		{Label: "SolarFirst", Code: "01"},
		{Label: "SolarAndUtility", Code: "02"},
		{Label: "OnlySolar", Code: "03"},
	}
)

// Readings maps a reading name to a float64 or a string.
type Readings map[string]any

func (r Readings) Float(name string) (float64, bool) {
	v, ok := r[name].(float64)
	return v, ok
}

func (r Readings) Text(name string) (string, bool) {
	v, ok := r[name].(string)
	return v, ok
}

func (r Readings) Copy() Readings {
	return maps.Clone(r)
}

// Model holds everything that differs between device variants. Decoders and
// the command encoder are shared and driven by these tables.
type Model struct {
	Id   string
	Name string

	StatusCommand   string
	StatusFields    []Field
	MinStatusFields int

	SettingsCommand   string
	SettingsFields    []Field
	MinSettingsFields int

	PowerReading        string
	RatedVoltageReading string

	Commands map[string]SetCommand
	State    func(Readings) string
}

// ReadingNames lists every reading the model can publish, in frame order.
func (m *Model) ReadingNames() []string {
	names := []string{READING_STATE, READING_SOLAR_ENERGY_DAY}
	for _, fields := range [][]Field{m.StatusFields, m.SettingsFields} {
		for _, f := range fields {
			if f.Kind != FIELD_SKIP {
				names = append(names, f.Name)
			}
		}
	}
	return names
}

var InverterModel = &Model{
	Id:            MODEL_ID_INVERTER,
	Name:          "Hybrid inverter",
	StatusCommand: COMMAND_QUERY_STATUS,
	StatusFields: []Field{
		number(READING_GRID_VOLTAGE),
		number(READING_GRID_FREQUENCY),
		number(READING_OUTPUT_VOLTAGE),
		number(READING_OUTPUT_FREQUENCY),
		number(READING_OUTPUT_APPARENT_POWER),
		number(READING_OUTPUT_ACTIVE_POWER),
		number(READING_LOAD_PERCENT),
		number(READING_BUS_VOLTAGE),
		number(READING_BATTERY_VOLTAGE),
		number(READING_BATTERY_CHARGING_CURRENT),
		number(READING_BATTERY_CAPACITY),
		tenths(READING_INVERTER_TEMPERATURE),
		number(READING_PV_INPUT_CURRENT),
		number(READING_PV_INPUT_VOLTAGE),
		number(READING_BATTERY_VOLTAGE_SCC),
		number(READING_BATTERY_DISCHARGE_CURRENT),
		number(READING_DEVICE_STATUS),
		number(READING_BATTERY_VOLTAGE_OFFSET),
		number(READING_SOLAR_POWER),
		{Name: READING_DEVICE_MODE, Kind: FIELD_MODE, Table: DeviceModeTable},
	},
	MinStatusFields: 16,
	SettingsCommand: COMMAND_QUERY_SETTINGS,
	SettingsFields: []Field{
		skip(), // grid rating voltage
		skip(), // grid rating current
		skip(), // output rating voltage
		skip(), // output rating frequency
		skip(), // output rating current
		skip(), // output rating apparent power
		skip(), // output rating active power
		number(READING_BATTERY_RATED_VOLTAGE),
		number(READING_BATTERY_RECHARGE_VOLTAGE),
		number(READING_BATTERY_UNDER_VOLTAGE),
		number(READING_BATTERY_BULK_VOLTAGE),
		number(READING_BATTERY_FLOAT_VOLTAGE),
		skip(), // battery type
		number(READING_MAX_AC_CHARGING_CURRENT),
		number(READING_MAX_CHARGING_CURRENT),
		skip(), // input voltage range
		{Name: READING_OUTPUT_SOURCE_PRIORITY, Kind: FIELD_PRIORITY, Table: OutputSourcePriorityTable},
		{Name: READING_CHARGER_PRIORITY, Kind: FIELD_PRIORITY, Table: ChargerPriorityTable},
		skip(), // parallel max num
		skip(), // machine type
		skip(), // topology
		skip(), // output mode
		number(READING_BATTERY_REDISCHARGE_VOLTAGE),
	},
	MinSettingsFields:   23,
	PowerReading:        READING_SOLAR_POWER,
	RatedVoltageReading: READING_BATTERY_RATED_VOLTAGE,
	Commands:            inverterCommands,
	State:               inverterState,
}

var ChargeControllerModel = &Model{
	Id:            MODEL_ID_CHARGE_CONTROLLER,
	Name:          "Solar charge controller",
	StatusCommand: COMMAND_QUERY_STATUS,
	StatusFields: []Field{
		number(READING_PV_INPUT_VOLTAGE),
		number(READING_BATTERY_VOLTAGE),
		number(READING_CHARGING_CURRENT),
		number(READING_CHARGING_CURRENT_1),
		number(READING_CHARGING_CURRENT_2),
		number(READING_SOLAR_POWER),
		number(READING_CONTROLLER_TEMPERATURE),
		number(READING_REMOTE_BATTERY_VOLTAGE),
		number(READING_REMOTE_BATTERY_TEMPERATURE),
		skip(), // reserved
		number(READING_DEVICE_STATUS),
	},
	MinStatusFields: 8,
	SettingsCommand: COMMAND_QUERY_SETTINGS,
	SettingsFields: []Field{
		number(READING_MAX_CHARGING_CURRENT),
		number(READING_BATTERY_RATED_VOLTAGE),
		number(READING_ABSORPTION_VOLTAGE),
		number(READING_FLOAT_VOLTAGE),
		number(READING_BATTERY_TYPE),
	},
	MinSettingsFields:   13,
	PowerReading:        READING_SOLAR_POWER,
	RatedVoltageReading: READING_BATTERY_RATED_VOLTAGE,
	Commands:            chargeControllerCommands,
	State:               chargeControllerState,
}

var models = map[string]*Model{
	MODEL_ID_INVERTER:          InverterModel,
	MODEL_ID_CHARGE_CONTROLLER: ChargeControllerModel,
}

func ModelById(id string) (*Model, error) {
	if m, ok := models[id]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("axpert: unknown device model %q", id)
}

func inverterState(r Readings) string {
	if mode, ok := r.Text(READING_DEVICE_MODE); ok {
		return mode
	}
	return STATE_ONLINE
}

func chargeControllerState(r Readings) string {
	power, _ := r.Float(READING_SOLAR_POWER)
	battery, _ := r.Float(READING_BATTERY_VOLTAGE)
	energy, _ := r.Float(READING_SOLAR_ENERGY_DAY)
	return fmt.Sprintf("%.0f W / %.2f V / %.2f kWh", power, battery, energy)
}
