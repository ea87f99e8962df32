package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-sensors/sensironsen5x"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var measureCount int

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Stream measurements from the sensor",
	Long: `Start measurement and print each sample as it becomes available.

Values the connected sensor does not provide are printed as n/a. The command
runs until interrupted, or until --count samples have been printed.`,
	RunE: runMeasure,
}

func init() {
	measureCmd.Flags().IntVarP(&measureCount, "count", "n", 0, "Number of samples to print (0 runs until interrupted)")
	rootCmd.AddCommand(measureCmd)
}

func runMeasure(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sensor := newSensor()
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return sensor.Run(ctx)
	})
	group.Go(func() error {
		return printMeasurements(ctx, cmd.OutOrStdout(), sensor, cancel)
	})
	return group.Wait()
}

func printMeasurements(ctx context.Context, out io.Writer, sensor *sensironsen5x.Sensor, done context.CancelFunc) error {
	printed := 0
	temperatures := sensor.Temperatures()
	relativeHumidities := sensor.RelativeHumidities()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-temperatures:
		case <-relativeHumidities:
		case m, ok := <-sensor.Measurements():
			if !ok {
				return nil
			}
			fmt.Fprintln(out, formatMeasurement(m))
			printed++
			if measureCount > 0 && printed >= measureCount {
				done()
				return nil
			}
		}
	}
}

func formatValue(value float64, ok bool, format string) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf(format, value)
}

func formatMeasurement(m *sensironsen5x.Measurement) string {
	fields := []string{}
	add := func(name string, value float64, ok bool, format string) {
		fields = append(fields, name+"="+formatValue(value, ok, format))
	}

	value, ok := m.PM1p0()
	add("pm1.0", value, ok, "%.1f")
	value, ok = m.PM2p5()
	add("pm2.5", value, ok, "%.1f")
	value, ok = m.PM4p0()
	add("pm4.0", value, ok, "%.1f")
	value, ok = m.PM10p0()
	add("pm10", value, ok, "%.1f")
	value, ok = m.RelativeHumidity()
	add("rh", value, ok, "%.2f%%")
	value, ok = m.Temperature()
	add("t", value, ok, "%.2fC")
	value, ok = m.VOCIndex()
	add("voc", value, ok, "%.1f")
	value, ok = m.NOxIndex()
	add("nox", value, ok, "%.1f")
	return strings.Join(fields, " ")
}
