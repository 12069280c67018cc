// Package config loads lightctl settings from a YAML file, LIGHTCTL_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"light_control/internal/logger"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: LIGHTCTL_DEVICE_BASE_URL.
const EnvPrefix = "LIGHTCTL"

// Keys.
const (
	KeyPort            = "port"
	KeyLogLevel        = "log.level"
	KeyDeviceBaseURL   = "device.base_url"
	KeyDeviceTimeout   = "device.timeout"
	KeyPollInterval    = "poll.interval"
	KeyDBPath          = "db.path"
	KeyMQTTBroker      = "mqtt.broker"
	KeyMQTTClientID    = "mqtt.client_id"
	KeyMQTTTopicPrefix = "mqtt.topic_prefix"
)

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"device":    KeyDeviceBaseURL,
	"log-level": KeyLogLevel,
	"port":      KeyPort,
}

var defaults = map[string]any{
	KeyPort:            "8080",
	KeyLogLevel:        logger.InfoLevel,
	KeyDeviceBaseURL:   "http://192.168.29.17",
	KeyDeviceTimeout:   5 * time.Second,
	KeyPollInterval:    time.Second,
	KeyDBPath:          "lightctl.db",
	KeyMQTTBroker:      "",
	KeyMQTTClientID:    "lightctl",
	KeyMQTTTopicPrefix: "lightctl",
}

// Config is the resolved configuration.
type Config struct {
	Port     string
	LogLevel string
	Device   DeviceConfig
	Poll     PollConfig
	DB       DBConfig
	MQTT     MQTTConfig
}

type DeviceConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PollConfig struct {
	Interval time.Duration
}

// DBConfig locates the command journal. An empty Path disables the journal.
type DBConfig struct {
	Path string
}

// MQTTConfig configures the optional broker bridge. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Load reads configuration. With an empty path it looks for config.yml in
// ./configs and the working directory and falls back to defaults when none
// exists; an explicit path must exist. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.AddConfigPath(".")
		v.SetConfigName("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Port:     v.GetString(KeyPort),
		LogLevel: v.GetString(KeyLogLevel),
		Device: DeviceConfig{
			BaseURL: strings.TrimSpace(v.GetString(KeyDeviceBaseURL)),
			Timeout: v.GetDuration(KeyDeviceTimeout),
		},
		Poll: PollConfig{Interval: v.GetDuration(KeyPollInterval)},
		DB:   DBConfig{Path: v.GetString(KeyDBPath)},
		MQTT: MQTTConfig{
			Broker:      v.GetString(KeyMQTTBroker),
			ClientID:    v.GetString(KeyMQTTClientID),
			TopicPrefix: v.GetString(KeyMQTTTopicPrefix),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Device.BaseURL)
	if err != nil {
		return fmt.Errorf("%s: %w", KeyDeviceBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: want http(s)://host, got %q", KeyDeviceBaseURL, c.Device.BaseURL)
	}
	if c.Device.Timeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyDeviceTimeout, c.Device.Timeout)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyPollInterval, c.Poll.Interval)
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("%s: unknown level %q", KeyLogLevel, c.LogLevel)
	}
	port, err := strconv.Atoi(strings.TrimPrefix(c.Port, ":"))
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%s: invalid port %q", KeyPort, c.Port)
	}
	return nil
}
