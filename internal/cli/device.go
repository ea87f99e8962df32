package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	clearStatus       bool
	fanCleaningPeriod time.Duration
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the product name, serial number, and versions of the sensor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := newSensor().ReadDeviceInfo(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Product:   %s\n", info.ProductName)
		kind, err := info.Kind()
		if err != nil {
			logger.WithError(err).Warn("unrecognized product name")
		} else {
			fmt.Fprintf(out, "Kind:      %s\n", kind)
		}
		fmt.Fprintf(out, "Serial:    %s\n", info.SerialNumber)
		firmware := info.Version.Firmware.String()
		if info.Version.FirmwareDebug {
			firmware += " (debug)"
		}
		fmt.Fprintf(out, "Firmware:  %s\n", firmware)
		fmt.Fprintf(out, "Hardware:  %s\n", info.Version.Hardware)
		fmt.Fprintf(out, "Protocol:  %s\n", info.Version.Protocol)
		fmt.Fprintf(out, "Library:   %s\n", info.Version.Library)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the device status register",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newSensor().ReadDeviceStatus(cmd.Context(), clearStatus)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Status: %#08x (%s)\n", uint32(status), status)
		if status.HasError() {
			return errors.Errorf("sensor reports %s", status)
		}
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run the fan cleaning procedure",
	Long: `Start measurement, accelerate the fan to maximum speed for the cleaning
period, then stop measurement again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		period := cfg.Sensor.FanCleaningPeriod
		if fanCleaningPeriod > 0 {
			period = fanCleaningPeriod
		}

		logger.WithField("period", period).Info("cleaning fan")
		return newSensor().CleanFan(cmd.Context(), period)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the sensor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newSensor().Reset(cmd.Context())
	},
}

var warmStartCmd = &cobra.Command{
	Use:   "warm-start",
	Short: "Read or write the warm start parameter",
}

var warmStartGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the warm start parameter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		parameter, err := newSensor().GetWarmStartParameter(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", parameter)
		return nil
	},
}

var warmStartSetCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Write the warm start parameter (0 cold to 65535 warm)",
	Long: `Write the warm start parameter used by the next start of measurement.

The sensor forgets the value on reset or power loss. The measure and serve
commands reset the sensor first and apply sensor.warm_start_parameter from the
configuration file instead.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parameter, err := strconv.ParseUint(args[0], 0, 16)
		if err != nil {
			return errors.Wrapf(err, "invalid warm start parameter %q", args[0])
		}

		return newSensor().SetWarmStartParameter(cmd.Context(), uint16(parameter))
	},
}

func init() {
	statusCmd.Flags().BoolVar(&clearStatus, "clear", false, "Clear the status register after reading it")
	cleanCmd.Flags().DurationVar(&fanCleaningPeriod, "period", 0, "How long the fan runs at full speed (defaults to the configured period)")

	warmStartCmd.AddCommand(warmStartGetCmd)
	warmStartCmd.AddCommand(warmStartSetCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(warmStartCmd)
}
