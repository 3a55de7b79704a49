package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/berfenger/axpert2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	MQTT_COMMAND_SELECT  = "select"
	MQTT_COMMAND_NUMBER  = "number"
	MQTT_COMMAND_RESTORE = "restore"

	// its retained attributes are fed back to the energy counter on startup
	SENSOR_ID_SOLAR_ENERGY_DAY = "solar_energy_day"
)

// EnergyState is the retained attributes payload of the solar energy sensor.
type EnergyState struct {
	TotalKWh   float64   `json:"total_kwh"`
	LastSample time.Time `json:"last_sample"`
}

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("axpert2mqtt_%s", uuid.NewString()[:8]))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:                   mqtt.NewClient(opts),
		cfg:                      cfg.MQTT,
		selectCommandRegexp:      selectCommandExtractor(cfg.MQTT.BaseTopic),
		inputNumberCommandRegexp: inputNumberCommandExtractor(cfg.MQTT.BaseTopic),
		energyStateRegexp:        energyStateExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client                   mqtt.Client
	cfg                      config.MQTTConfig
	selectCommandRegexp      *regexp.Regexp
	inputNumberCommandRegexp *regexp.Regexp
	energyStateRegexp        *regexp.Regexp
}

type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Param    string
	Payload  string
	// sample time of a restored energy total
	At time.Time
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) SensorAttributesTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/attributes", c.baseTopic(), sensorId)
}

func (c *MQTTClient) BinarySensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/binary_sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) SelectStateTopic(selectId string) string {
	return fmt.Sprintf("%s/select/%s/state", c.baseTopic(), selectId)
}

func (c *MQTTClient) SelectCommandTopic(selectId string) string {
	return fmt.Sprintf("%s/select/%s/set", c.baseTopic(), selectId)
}

func (c *MQTTClient) InputNumberStateTopic(id string) string {
	return fmt.Sprintf("%s/number/%s/state", c.baseTopic(), id)
}

func (c *MQTTClient) InputNumberCommandTopic(id string) string {
	return fmt.Sprintf("%s/number/%s/set", c.baseTopic(), id)
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	return c.parseTopic(msg.Topic(), string(msg.Payload()), msg.Retained())
}

// parseTopic only accepts the energy attributes when it is a retained message
// delivered on subscribe, not the echo of our own publications.
func (c *MQTTClient) parseTopic(topic, payload string, retained bool) (*ParsedMQTTCommand, error) {
	if cmd, ok := c.parseSelectMQTTCommand(topic, payload); ok {
		return cmd, nil
	}
	inputNumberCmd, err := c.parseInputNumberMQTTCommand(topic, payload)
	if err == nil {
		return inputNumberCmd, nil
	}
	if !retained {
		return nil, err
	}
	if restoreCmd, err := c.parseEnergyRestore(topic, payload); err == nil {
		return restoreCmd, nil
	}
	return nil, err
}

func (c *MQTTClient) parseSelectMQTTCommand(topic, payload string) (*ParsedMQTTCommand, bool) {
	matches := c.selectCommandRegexp.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 || len(matches[0]) != 2 {
		return nil, false
	}
	return &ParsedMQTTCommand{
		DeviceId: matches[0][1],
		Command:  MQTT_COMMAND_SELECT,
		Payload:  payload,
	}, true
}

func (c *MQTTClient) parseInputNumberMQTTCommand(topic, payload string) (*ParsedMQTTCommand, error) {
	matches := c.inputNumberCommandRegexp.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 {
		return nil, errors.New("invalid command")
	}
	if len(matches[0]) != 2 {
		return nil, errors.New("invalid number command")
	}

	// try to parse a valid number
	_, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return nil, err
	}

	return &ParsedMQTTCommand{
		DeviceId: matches[0][1],
		Command:  MQTT_COMMAND_NUMBER,
		Payload:  payload,
	}, nil
}

// parseEnergyRestore matches the bridge's own retained solar energy attributes.
func (c *MQTTClient) parseEnergyRestore(topic, payload string) (*ParsedMQTTCommand, error) {
	if !c.energyStateRegexp.MatchString(topic) {
		return nil, errors.New("invalid command")
	}
	var state EnergyState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, err
	}
	if state.LastSample.IsZero() {
		return nil, errors.New("energy state without sample time")
	}
	return &ParsedMQTTCommand{
		DeviceId: SENSOR_ID_SOLAR_ENERGY_DAY,
		Command:  MQTT_COMMAND_RESTORE,
		Payload:  strconv.FormatFloat(state.TotalKWh, 'f', -1, 64),
		At:       state.LastSample,
	}, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.commandTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) HADiscoveryTopic() string {
	return c.cfg.HADiscoveryTopic
}

func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/#", c.baseTopic())
}

func selectCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/select/([a-zA-Z0-9_]+)/set$", baseTopic))
}

func inputNumberCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/number/([a-zA-Z0-9_]+)/set$", baseTopic))
}

func energyStateExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/sensor/%s/attributes$", baseTopic, SENSOR_ID_SOLAR_ENERGY_DAY))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
