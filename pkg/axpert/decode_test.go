package axpert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameOf(body string) Frame {
	raw := ResponseFrame(body)
	return Frame{Raw: raw[:len(raw)-1], Terminated: true}
}

func TestDecodeInverterStatus(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	r, err := DecodeStatus(frameOf(TEST_INVERTER_STATUS), InverterModel)
	require.NoError(err)

	assert.Equal(230.0, r[READING_GRID_VOLTAGE])
	assert.Equal(851.0, r[READING_OUTPUT_ACTIVE_POWER])
	assert.Equal(52.1, r[READING_BATTERY_VOLTAGE])
	assert.InDelta(34.5, r[READING_INVERTER_TEMPERATURE], 0.0001, "temperature is reported in tenths")
	assert.Equal(1234.0, r[READING_SOLAR_POWER])
	assert.Equal("Line", r[READING_DEVICE_MODE])
	assert.Equal(10110.0, r[READING_DEVICE_STATUS])
}

func TestDecodeStatusMinimumFields(t *testing.T) {

	assert := assert.New(t)

	fields := strings.Fields(TEST_INVERTER_STATUS)

	_, err := DecodeStatus(frameOf(strings.Join(fields[:15], " ")), InverterModel)
	assert.ErrorIs(err, ErrMalformedFrame)

	r, err := DecodeStatus(frameOf(strings.Join(fields[:16], " ")), InverterModel)
	assert.NoError(err)
	assert.Len(r, 16)
	assert.NotContains(r, READING_SOLAR_POWER)
	assert.NotContains(r, READING_DEVICE_MODE)
}

func TestDecodeStatusExcessFieldsIgnored(t *testing.T) {

	assert := assert.New(t)

	r, err := DecodeStatus(frameOf(TEST_INVERTER_STATUS+" 99 98 97"), InverterModel)
	assert.NoError(err)
	assert.Len(r, 20)
}

func TestDecodeStatusRejectsBadFrames(t *testing.T) {

	assert := assert.New(t)

	good := frameOf(TEST_INVERTER_STATUS)

	noMarker := Frame{Raw: good.Raw[1:], Terminated: true}
	_, err := DecodeStatus(noMarker, InverterModel)
	assert.ErrorIs(err, ErrMalformedFrame)

	unterminated := Frame{Raw: good.Raw}
	_, err = DecodeStatus(unterminated, InverterModel)
	assert.ErrorIs(err, ErrMalformedFrame)
}

func TestDecodeStatusCoercesNonNumeric(t *testing.T) {

	assert := assert.New(t)

	fields := strings.Fields(TEST_INVERTER_STATUS)
	fields[0] = "abc"
	fields[19] = "X"

	r, err := DecodeStatus(frameOf(strings.Join(fields, " ")), InverterModel)
	assert.NoError(err)
	assert.Equal(0.0, r[READING_GRID_VOLTAGE])
	assert.NotContains(r, READING_DEVICE_MODE, "unknown mode leaves the reading unset")
}

func TestDecodeInverterSettings(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	r, err := DecodeSettings(frameOf(TEST_INVERTER_SETTINGS), InverterModel)
	require.NoError(err)

	assert.Equal(48.0, r[READING_BATTERY_RATED_VOLTAGE])
	assert.Equal(46.0, r[READING_BATTERY_RECHARGE_VOLTAGE])
	assert.Equal(56.4, r[READING_BATTERY_BULK_VOLTAGE])
	assert.Equal(54.0, r[READING_BATTERY_FLOAT_VOLTAGE])
	assert.Equal(54.0, r[READING_BATTERY_REDISCHARGE_VOLTAGE])
	assert.Equal("SBU", r[READING_OUTPUT_SOURCE_PRIORITY])
	assert.Equal("OnlySolar", r[READING_CHARGER_PRIORITY])
}

func TestDecodeSettingsUnknownPriority(t *testing.T) {

	assert := assert.New(t)

	fields := strings.Fields(TEST_INVERTER_SETTINGS)
	fields[16] = "7"

	r, err := DecodeSettings(frameOf(strings.Join(fields, " ")), InverterModel)
	assert.NoError(err)
	assert.NotContains(r, READING_OUTPUT_SOURCE_PRIORITY)
	assert.Equal("OnlySolar", r[READING_CHARGER_PRIORITY])

	_, err = DecodeSettings(frameOf(strings.Join(fields[:22], " ")), InverterModel)
	assert.ErrorIs(err, ErrMalformedFrame)
}

func TestDecodeChargeController(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	status, err := DecodeStatus(frameOf(TEST_CHARGE_CONTROLLER_STATUS), ChargeControllerModel)
	require.NoError(err)
	assert.Equal(98.4, status[READING_PV_INPUT_VOLTAGE])
	assert.Equal(630.0, status[READING_SOLAR_POWER])

	settings, err := DecodeSettings(frameOf(TEST_CHARGE_CONTROLLER_CONFIG), ChargeControllerModel)
	require.NoError(err)
	assert.Equal(48.0, settings[READING_BATTERY_RATED_VOLTAGE])
	assert.Equal(57.6, settings[READING_ABSORPTION_VOLTAGE])
	assert.Equal(55.2, settings[READING_FLOAT_VOLTAGE])

	_, err = DecodeSettings(frameOf("060 48 57.60 55.20 01"), ChargeControllerModel)
	assert.ErrorIs(err, ErrMalformedFrame)
}

func TestModelState(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("Battery", InverterModel.State(Readings{READING_DEVICE_MODE: "Battery"}))
	assert.Equal(STATE_ONLINE, InverterModel.State(Readings{}))
	assert.Equal("630 W / 52.10 V / 1.25 kWh", ChargeControllerModel.State(Readings{
		READING_SOLAR_POWER:      630.0,
		READING_BATTERY_VOLTAGE:  52.1,
		READING_SOLAR_ENERGY_DAY: 1.25,
	}))

	m, err := ModelById(MODEL_ID_CHARGE_CONTROLLER)
	assert.NoError(err)
	assert.Same(ChargeControllerModel, m)
	_, err = ModelById("pip")
	assert.Error(err)
}

func TestModeTableLookups(t *testing.T) {

	assert := assert.New(t)

	code, ok := OutputSourcePriorityTable.Code("SolarFirst")
	assert.True(ok)
	assert.Equal("01", code)

	label, ok := ChargerPriorityTable.LabelForValue("02")
	assert.True(ok)
	assert.Equal("SolarAndUtility", label)

	_, ok = ChargerPriorityTable.LabelForValue("x")
	assert.False(ok)
	assert.Equal([]string{"Utility", "SolarFirst", "SBU"}, OutputSourcePriorityTable.Labels())
}

func TestModelReadingNames(t *testing.T) {

	assert := assert.New(t)

	names := ChargeControllerModel.ReadingNames()

	assert.Equal([]string{READING_STATE, READING_SOLAR_ENERGY_DAY, READING_PV_INPUT_VOLTAGE}, names[:3])
	assert.Len(names, 2+10+5)
	assert.Len(InverterModel.ReadingNames(), 2+20+10)
}
