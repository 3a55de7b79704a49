package util

import (
	"github.com/berfenger/axpert2mqtt/internal/config"
	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Inverter: config.InverterConfig{
			Host:           "-.-.-.-",
			Port:           8899,
			Model:          axpert.MODEL_ID_INVERTER,
			TimeoutSeconds: 1,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "axpert",
			HADiscoveryTopic: "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalSeconds: 0,
		},
		Port: 8080,
	}
}
