package cli

import (
	"io"
	"strings"

	corei2c "github.com/go-sensors/core/i2c"
	coreio "github.com/go-sensors/core/io"
	"github.com/go-sensors/sensironsen5x"
	"github.com/go-sensors/sensironsen5x/internal/config"
	"github.com/go-sensors/sensironsen5x/periph"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	busName    string
	address    uint8
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *logrus.Logger

	// newPortFactory is replaced in tests
	newPortFactory = func(c *config.SensorConfig) coreio.PortFactory {
		return periph.NewPortFactory(c.Bus, &corei2c.I2CPortConfig{Address: c.Address})
	}
)

var rootCmd = &cobra.Command{
	Use:   "sen5x",
	Short: "Sensirion SEN5x environmental sensor tool",
	Long: `sen5x talks to a Sensirion SEN50, SEN54, or SEN55 sensor node over I2C.

It can stream measurements, read the device identity and status register,
run the fan cleaning procedure, manage the warm start parameter, and serve
measurements as prometheus metrics.

Settings are read from an optional yaml file (--config). The --bus and
--address flags override the file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a yaml configuration file")
	rootCmd.PersistentFlags().StringVarP(&busName, "bus", "b", "", "I2C bus name (empty selects the first bus)")
	rootCmd.PersistentFlags().Uint8VarP(&address, "address", "a", sensironsen5x.DefaultAddress, "I2C address of the sensor")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text or json)")
}

func loadSettings(cmd *cobra.Command, args []string) error {
	cfg = config.GetDefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("bus") {
		cfg.Sensor.Bus = busName
	}
	if flags.Changed("address") {
		cfg.Sensor.Address = address
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	err := cfg.Validate()
	if err != nil {
		return errors.Wrap(err, "invalid settings")
	}

	logger = setupLogger(cfg.Log, cmd.ErrOrStderr())
	logger.WithFields(logrus.Fields{
		"bus":     cfg.Sensor.Bus,
		"address": cfg.Sensor.Address,
	}).Debug("loaded settings")
	return nil
}

func setupLogger(c config.LogConfig, output io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(output)

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(c.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return log
}

// newSensor creates a Sensor from the loaded settings
func newSensor(options ...*sensironsen5x.Option) *sensironsen5x.Sensor {
	defaults := []*sensironsen5x.Option{
		sensironsen5x.WithLogger(logger),
		sensironsen5x.WithReconnectTimeout(cfg.Sensor.ReconnectTimeout),
		sensironsen5x.WithParticulateMode(cfg.Sensor.ParticulateMode()),
	}
	if cfg.Sensor.WarmStartParameter != nil {
		defaults = append(defaults, sensironsen5x.WithWarmStartParameter(*cfg.Sensor.WarmStartParameter))
	}
	return sensironsen5x.NewSensor(newPortFactory(&cfg.Sensor), append(defaults, options...)...)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
