package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-sensors/sensironsen5x"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensor  SensorConfig  `yaml:"sensor"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type SensorConfig struct {
	Bus                string        `yaml:"bus"`
	Address            uint8         `yaml:"address"`
	Particulates       bool          `yaml:"particulates"`
	WarmStartParameter *uint16       `yaml:"warm_start_parameter"`
	ReconnectTimeout   time.Duration `yaml:"reconnect_timeout"`
	FanCleaningPeriod  time.Duration `yaml:"fan_cleaning_period"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address"`
	Path          string `yaml:"path"`
}

// LoadConfig reads a yaml file on top of the default configuration
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %q", path)
	}

	config := GetDefaultConfig()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %q", path)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}
	return config, nil
}

// GetDefaultConfig returns the configuration used when no file is given
func GetDefaultConfig() *Config {
	return &Config{
		Sensor: SensorConfig{
			Bus:               "",
			Address:           sensironsen5x.DefaultAddress,
			Particulates:      true,
			ReconnectTimeout:  sensironsen5x.DefaultReconnectTimeout,
			FanCleaningPeriod: sensironsen5x.DefaultFanCleaningPeriod,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			ListenAddress: ":9105",
			Path:          "/metrics",
		},
	}
}

func (c *Config) Validate() error {
	if c.Sensor.Address == 0 || c.Sensor.Address > 0x7F {
		return errors.Errorf("invalid i2c address %#02x", c.Sensor.Address)
	}
	if c.Sensor.ReconnectTimeout <= 0 {
		return errors.Errorf("reconnect timeout must be positive, got %v", c.Sensor.ReconnectTimeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// ParticulateMode maps the particulates switch onto the measurement variant
func (c *SensorConfig) ParticulateMode() sensironsen5x.ParticulateMode {
	if c.Particulates {
		return sensironsen5x.ParticulatesEnabled
	}
	return sensironsen5x.ParticulatesDisabled
}
