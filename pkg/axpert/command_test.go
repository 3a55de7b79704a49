package axpert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEnumeratedCommand(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	frame, err := BuildSetCommand(InverterModel, READING_OUTPUT_SOURCE_PRIORITY, "SBU", 48)
	require.NoError(err)
	assert.Equal(EncodeCommand([]byte("POP02")), frame)

	frame, err = BuildSetCommand(InverterModel, READING_CHARGER_PRIORITY, "OnlySolar", 48)
	require.NoError(err)
	assert.Equal(EncodeCommand([]byte("PCP03")), frame)

	// callers must not be able to corrupt the precomputed frame
	frame[0] = 'X'
	again, _ := BuildSetCommand(InverterModel, READING_CHARGER_PRIORITY, "OnlySolar", 48)
	assert.Equal(byte('P'), again[0])
}

func TestBuildValueCommand(t *testing.T) {

	assert := assert.New(t)

	frame, err := BuildSetCommand(InverterModel, READING_BATTERY_RECHARGE_VOLTAGE, "46", 48)
	assert.NoError(err)
	assert.Equal(EncodeCommand([]byte("PBCV46.0")), frame)

	frame, err = BuildSetCommand(InverterModel, READING_BATTERY_REDISCHARGE_VOLTAGE, "0", 48)
	assert.NoError(err)
	assert.Equal(EncodeCommand([]byte("PBDV00.0")), frame)

	frame, err = BuildSetCommand(InverterModel, READING_BATTERY_BULK_VOLTAGE, "56.4", 48)
	assert.NoError(err)
	assert.Equal(EncodeCommand([]byte("PCVV56.4")), frame)

	frame, err = BuildSetCommand(ChargeControllerModel, READING_ABSORPTION_VOLTAGE, "57.6", 48)
	assert.NoError(err)
	assert.Equal(EncodeCommand([]byte("PBAV57.60")), frame)
}

func TestBuildCommandRatedVoltageOptions(t *testing.T) {

	assert := assert.New(t)

	_, err := BuildSetCommand(InverterModel, READING_BATTERY_RECHARGE_VOLTAGE, "23", 24)
	assert.NoError(err)

	_, err = BuildSetCommand(InverterModel, READING_BATTERY_RECHARGE_VOLTAGE, "23", 48)
	assert.ErrorIs(err, ErrUnknownValue)

	_, err = BuildSetCommand(InverterModel, READING_BATTERY_RECHARGE_VOLTAGE, "46", 0)
	assert.NoError(err, "unknown rated voltage uses the 48 V options")

	_, err = BuildSetCommand(InverterModel, READING_BATTERY_BULK_VOLTAGE, "28", 24)
	assert.NoError(err)
	_, err = BuildSetCommand(InverterModel, READING_BATTERY_BULK_VOLTAGE, "60", 48)
	assert.ErrorIs(err, ErrUnknownValue)
}

func TestBuildCommandRejections(t *testing.T) {

	assert := assert.New(t)

	_, err := BuildSetCommand(InverterModel, READING_OUTPUT_SOURCE_PRIORITY, "Bogus", 48)
	assert.ErrorIs(err, ErrUnknownValue)

	_, err = BuildSetCommand(InverterModel, "Bogus", "SBU", 48)
	assert.ErrorIs(err, ErrUnknownCommand)

	_, err = BuildSetCommand(InverterModel, READING_BATTERY_FLOAT_VOLTAGE, "abc", 48)
	assert.ErrorIs(err, ErrUnknownValue)

	_, err = BuildSetCommand(InverterModel, READING_BATTERY_FLOAT_VOLTAGE, "NaN", 48)
	assert.ErrorIs(err, ErrUnknownValue)

	_, err = BuildSetCommand(ChargeControllerModel, READING_OUTPUT_SOURCE_PRIORITY, "SBU", 48)
	assert.ErrorIs(err, ErrUnknownCommand, "charge controllers have no priority commands")
}

func TestAcknowledged(t *testing.T) {

	assert := assert.New(t)

	assert.True(Acknowledged(frameOf("ACK")))
	assert.False(Acknowledged(frameOf("NAK")))
	assert.False(Acknowledged(Frame{Raw: []byte("NAKss")}))
	assert.False(Acknowledged(Frame{}))
}

func TestCommandChoices(t *testing.T) {

	assert := assert.New(t)

	assert.Equal([]string{"UtilityFirst", "SolarFirst", "SolarAndUtility", "OnlySolar"},
		InverterModel.Commands[READING_CHARGER_PRIORITY].Choices(48))
	assert.Equal([]string{"22.0", "22.5", "23.0", "23.5", "24.0", "24.5", "25.0", "25.5"},
		InverterModel.Commands[READING_BATTERY_RECHARGE_VOLTAGE].Choices(24))
	assert.Nil(InverterModel.Commands[READING_BATTERY_BULK_VOLTAGE].Choices(48))

	// every listed choice is accepted back
	for _, choice := range InverterModel.Commands[READING_BATTERY_REDISCHARGE_VOLTAGE].Choices(12) {
		_, err := BuildSetCommand(InverterModel, READING_BATTERY_REDISCHARGE_VOLTAGE, choice, 12)
		assert.NoError(err, choice)
	}
}
