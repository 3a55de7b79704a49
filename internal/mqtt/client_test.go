package mqtt

import (
	"testing"
	"time"

	"github.com/berfenger/axpert2mqtt/internal/core/domain"
	"github.com/berfenger/axpert2mqtt/internal/core/events"
	"github.com/berfenger/axpert2mqtt/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	cfg := util.LoadTestConfig()
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestSelectCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/select/charger_priority/set"
	r := selectCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "charger_priority", "select extract")
}

func TestSelectCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/select/charger_priority/state"
	r := selectCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/number_name/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "number_name", "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/select/number_name/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestParseTopic(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	client := testClient()

	cmd, err := client.parseTopic("axpert/select/output_source_priority/set", "SBU", false)
	require.NoError(err)
	assert.Equal(ParsedMQTTCommand{DeviceId: "output_source_priority", Command: MQTT_COMMAND_SELECT, Payload: "SBU"}, *cmd)

	cmd, err = client.parseTopic("axpert/number/battery_bulk_voltage/set", "56.4", false)
	require.NoError(err)
	assert.Equal(MQTT_COMMAND_NUMBER, cmd.Command)
	assert.Equal("battery_bulk_voltage", cmd.DeviceId)

	_, err = client.parseTopic("axpert/number/battery_bulk_voltage/set", "high", false)
	assert.Error(err)

	energyState := `{"total_kwh":3.25,"last_sample":"2024-06-01T23:58:00Z"}`
	cmd, err = client.parseTopic("axpert/sensor/solar_energy_day/attributes", energyState, true)
	require.NoError(err)
	assert.Equal(MQTT_COMMAND_RESTORE, cmd.Command)
	assert.Equal("3.25", cmd.Payload)
	assert.Equal(time.Date(2024, 6, 1, 23, 58, 0, 0, time.UTC), cmd.At)

	_, err = client.parseTopic("axpert/sensor/solar_energy_day/attributes", energyState, false)
	assert.Error(err)
	// a bare total cannot be dated
	_, err = client.parseTopic("axpert/sensor/solar_energy_day/state", "3.250", true)
	assert.Error(err)
	_, err = client.parseTopic("axpert/sensor/solar_energy_day/attributes", `{"total_kwh":3.25}`, true)
	assert.Error(err)
	_, err = client.parseTopic("axpert/sensor/solar_power/state", "920", true)
	assert.Error(err)
	_, err = client.parseTopic("axpert/bridge/state", MQTT_PAYLOAD_ONLINE, false)
	assert.Error(err)
}

func TestHADiscoveryMessages(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	dev := domain.Device{Id: "axpert_inverter_0011aabb", Name: "Axpert inverter"}

	sel := domain.GenericSelect{Device: dev, Id: "charger_priority", Options: []string{"UtilityFirst", "OnlySolar"}}
	selCfg := GenericSelectToHADiscoveryMessage(client, sel)
	assert.Equal("axpert/select/charger_priority/state", selCfg.StateTopic)
	assert.Equal("axpert/select/charger_priority/set", selCfg.CommandTopic)
	assert.Equal(sel.Options, selCfg.Options)
	assert.Equal("homeassistant/select/axpert_inverter_0011aabb/charger_priority/config", HADiscoverySelectTopic(client, sel))

	num := domain.GenericInputNumber{Device: dev, Id: "battery_bulk_voltage", Min: 48, Max: 58.4, Step: 0.1, UnitOfMeasurement: "V"}
	numCfg := GenericInputNumberToHADiscoveryMessage(client, num)
	assert.Equal("axpert/number/battery_bulk_voltage/set", numCfg.CommandTopic)
	assert.Equal(58.4, numCfg.Max)
	assert.Equal("V", numCfg.UnitOfMeasurement)

	bridge := events.BridgeSensors(events.BridgeDevice("axpert"))[0]
	bridgeCfg := GenericSensorToHADiscoveryMessage(client, bridge)
	assert.Equal("axpert/bridge/state", bridgeCfg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, bridgeCfg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, bridgeCfg.PayloadOff)
	assert.Empty(bridgeCfg.AttributesTopic)

	energy := domain.GenericSensor{Device: dev, Id: SENSOR_ID_SOLAR_ENERGY_DAY, SensorType: events.SENSOR_TYPE_SENSOR}
	energyCfg := GenericSensorToHADiscoveryMessage(client, energy)
	assert.Equal("axpert/sensor/solar_energy_day/state", energyCfg.StateTopic)
	assert.Equal("axpert/sensor/solar_energy_day/attributes", energyCfg.AttributesTopic)
}
