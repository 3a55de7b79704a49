package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/axpert2mqtt/pkg/axpert"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	LogFile  string         `mapstructure:"log_file"`
	Inverter InverterConfig `mapstructure:"inverter"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`

	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type InverterConfig struct {
	Host           string
	Port           uint
	Model          string
	TimeoutSeconds uint `mapstructure:"timeout_seconds"`
}

type MonitorConfig struct {
	// 0 disables polling; readings are fetched on demand
	PollIntervalSeconds uint `mapstructure:"poll_interval_seconds"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (cfg Config) Endpoint() axpert.Endpoint {
	return axpert.Endpoint{
		Host:         cfg.Inverter.Host,
		Port:         cfg.Inverter.Port,
		PollInterval: time.Duration(cfg.MonitorConfig.PollIntervalSeconds) * time.Second,
		Timeout:      time.Duration(cfg.Inverter.TimeoutSeconds) * time.Second,
	}
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

func CheckInverter(cfg InverterConfig) error {
	if cfg.Host == "" {
		return errors.New("config param inverter.host is required")
	}
	if cfg.Port == 0 || cfg.Port > 65535 {
		return errors.New("config param inverter.port should be in 1..65535")
	}
	if _, err := axpert.ModelById(cfg.Model); err != nil {
		return errors.New("config param inverter.model should be inverter or charge_controller")
	}
	return nil
}
