// This package provides an implementation to read particulate matter, VOC, NOx, humidity, and temperature
// measurements from a Sensiron SEN5x (SEN50, SEN54, SEN55) environmental sensor node.
package sensironsen5x

import (
	"context"
	"time"

	"github.com/go-sensors/core/humidity"
	coreio "github.com/go-sensors/core/io"
	"github.com/go-sensors/core/temperature"
	"github.com/go-sensors/core/units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Sensor represents a configured Sensiron SEN5x sensor
type Sensor struct {
	measurements       chan *Measurement
	temperatures       chan *units.Temperature
	relativeHumidities chan *units.RelativeHumidity
	portFactory        coreio.PortFactory
	reconnectTimeout   time.Duration
	errorHandlerFunc   ShouldTerminate
	particulates       ParticulateMode
	warmStartParameter *uint16
	logger             logrus.FieldLogger
	delay              Delay
}

// Option is a configured option that may be applied to a Sensor
type Option struct {
	apply func(*Sensor)
}

// NewSensor creates a Sensor with optional configuration
func NewSensor(portFactory coreio.PortFactory, options ...*Option) *Sensor {
	s := &Sensor{
		measurements:       make(chan *Measurement),
		temperatures:       make(chan *units.Temperature),
		relativeHumidities: make(chan *units.RelativeHumidity),
		portFactory:        portFactory,
		reconnectTimeout:   DefaultReconnectTimeout,
		errorHandlerFunc:   nil,
		particulates:       ParticulatesEnabled,
		logger:             discardLogger(),
		delay:              time.Sleep,
	}
	for _, o := range options {
		o.apply(s)
	}
	return s
}

// WithReconnectTimeout specifies the duration to wait before reconnecting after a recoverable error
func WithReconnectTimeout(timeout time.Duration) *Option {
	return &Option{
		apply: func(s *Sensor) {
			s.reconnectTimeout = timeout
		},
	}
}

// WithParticulateMode specifies whether measurement is started with the particulate matter sensor enabled
func WithParticulateMode(particulates ParticulateMode) *Option {
	return &Option{
		apply: func(s *Sensor) {
			s.particulates = particulates
		},
	}
}

// WithWarmStartParameter specifies a warm start parameter to set before measurement is started
func WithWarmStartParameter(parameter uint16) *Option {
	return &Option{
		apply: func(s *Sensor) {
			s.warmStartParameter = &parameter
		},
	}
}

// WithLogger specifies where to log state transitions and recoverable errors
func WithLogger(logger logrus.FieldLogger) *Option {
	return &Option{
		apply: func(s *Sensor) {
			s.logger = logger
		},
	}
}

// WithDelay replaces the function used to wait for command execution and between data ready polls
func WithDelay(delay Delay) *Option {
	return &Option{
		apply: func(s *Sensor) {
			s.delay = delay
		},
	}
}

// ReconnectTimeout is the duration to wait before reconnecting after a recoverable error
func (s *Sensor) ReconnectTimeout() time.Duration {
	return s.reconnectTimeout
}

// ShouldTerminate is a function that returns a result indicating whether the Sensor should terminate after a recoverable error
type ShouldTerminate func(error) bool

// WithRecoverableErrorHandler registers a function that will be called when a recoverable error occurs
func WithRecoverableErrorHandler(f ShouldTerminate) *Option {
	return &Option{
		apply: func(s *Sensor) {
			s.errorHandlerFunc = f
		},
	}
}

// RecoverableErrorHandler a function that will be called when a recoverable error occurs
func (s *Sensor) RecoverableErrorHandler() ShouldTerminate {
	return s.errorHandlerFunc
}

// ParticulateMode is the variant used when starting measurement
func (s *Sensor) ParticulateMode() ParticulateMode {
	return s.particulates
}

func (s *Sensor) measure(ctx context.Context, device *Device) error {
	err := device.Reset(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reset sensor")
	}

	if s.warmStartParameter != nil {
		err = device.SetWarmStartParameter(ctx, *s.warmStartParameter)
		if err != nil {
			return errors.Wrap(err, "failed to set warm start parameter")
		}
	}

	err = device.StartMeasurement(ctx, s.particulates)
	if err != nil {
		return errors.Wrap(err, "failed to start measurement")
	}

	for {
		measurement, err := device.Measure(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read measurement")
		}

		select {
		case <-ctx.Done():
			return nil
		case s.measurements <- measurement:
		}

		celsius, hasTemperature := measurement.Temperature()
		ambientTemperature := units.Temperature(celsius * float64(units.DegreeCelsius))
		if hasTemperature {
			select {
			case <-ctx.Done():
				return nil
			case s.temperatures <- &ambientTemperature:
			}
		}

		// units.RelativeHumidity carries the temperature it was measured at,
		// so humidity without a temperature reading is only available from Measurements
		percentage, hasHumidity := measurement.RelativeHumidity()
		if hasTemperature && hasHumidity {
			relativeHumidity := &units.RelativeHumidity{
				Temperature: ambientTemperature,
				Percentage:  percentage / 100,
			}

			select {
			case <-ctx.Done():
				return nil
			case s.relativeHumidities <- relativeHumidity:
			}
		}
	}
}

// Run begins reading from the sensor and blocks until either an error occurs or the context is completed
func (s *Sensor) Run(ctx context.Context) error {
	defer close(s.measurements)
	defer close(s.temperatures)
	defer close(s.relativeHumidities)
	for {
		port, err := s.portFactory.Open()
		if err != nil {
			return errors.Wrap(err, "failed to open port")
		}

		device := NewDevice(port, s.delay, s.logger)
		err = s.measure(ctx, device)
		s.release(device, port)
		if err == nil {
			return nil
		}

		s.logger.WithError(err).Warn("sensor failed")
		if s.errorHandlerFunc != nil {
			if s.errorHandlerFunc(err) {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.reconnectTimeout):
		}
	}
}

// release leaves the sensor idle and closes its port
func (s *Sensor) release(device *Device, port coreio.Port) {
	err := device.Reset(context.Background())
	if err != nil {
		s.logger.WithError(err).Debug("failed to reset sensor before closing port")
	}

	err = port.Close()
	if err != nil {
		s.logger.WithError(err).Debug("failed to close port")
	}
}

// withDevice resets the sensor before calling f and again before closing the port
func (s *Sensor) withDevice(ctx context.Context, f func(*Device) error) error {
	port, err := s.portFactory.Open()
	if err != nil {
		return errors.Wrap(err, "failed to open port")
	}

	device := NewDevice(port, s.delay, s.logger)
	defer s.release(device, port)

	err = device.Reset(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reset sensor")
	}

	return f(device)
}

// withPort calls f without resetting the sensor, so volatile state such as the
// warm start parameter and latched status flags survives. The sensor must be idle.
func (s *Sensor) withPort(ctx context.Context, f func(*Device) error) error {
	port, err := s.portFactory.Open()
	if err != nil {
		return errors.Wrap(err, "failed to open port")
	}
	defer func() {
		err := port.Close()
		if err != nil {
			s.logger.WithError(err).Debug("failed to close port")
		}
	}()

	return f(NewDevice(port, s.delay, s.logger))
}

// Reset restarts the sensor, leaving it idle
func (s *Sensor) Reset(ctx context.Context) error {
	return s.withDevice(ctx, func(*Device) error { return nil })
}

// DeviceInfo identifies a connected sensor
type DeviceInfo struct {
	ProductName  string
	SerialNumber string
	Version      *VersionInfo
}

// Kind parses the product name
func (i *DeviceInfo) Kind() (SensorKind, error) {
	return ParseSensorKind(i.ProductName)
}

// ReadDeviceInfo reads the product name, serial number, and version of the sensor
func (s *Sensor) ReadDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	info := &DeviceInfo{}
	err := s.withDevice(ctx, func(device *Device) error {
		var err error
		info.ProductName, err = device.ReadProductName(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to read product name")
		}

		info.SerialNumber, err = device.ReadSerialNumber(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to read serial number")
		}

		info.Version, err = device.ReadVersion(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to read version")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ReadDeviceStatus reads the device status register, clearing it afterwards when clear is set.
// The sensor is not reset, since a reset clears the register.
func (s *Sensor) ReadDeviceStatus(ctx context.Context, clear bool) (DeviceStatus, error) {
	var status DeviceStatus
	err := s.withPort(ctx, func(device *Device) error {
		var err error
		if clear {
			status, err = device.ReadAndClearDeviceStatus(ctx)
		} else {
			status, err = device.ReadDeviceStatus(ctx)
		}
		return errors.Wrap(err, "failed to read device status")
	})
	return status, err
}

// GetWarmStartParameter reads the warm start parameter currently held by the sensor
func (s *Sensor) GetWarmStartParameter(ctx context.Context) (uint16, error) {
	var parameter uint16
	err := s.withPort(ctx, func(device *Device) error {
		var err error
		parameter, err = device.ReadWarmStartParameter(ctx)
		return errors.Wrap(err, "failed to read warm start parameter")
	})
	return parameter, err
}

// SetWarmStartParameter writes the warm start parameter used by the next start of measurement.
// The sensor forgets it on reset or power loss, and Run resets the sensor before starting,
// so a running Sensor takes its parameter from WithWarmStartParameter instead.
func (s *Sensor) SetWarmStartParameter(ctx context.Context, parameter uint16) error {
	return s.withPort(ctx, func(device *Device) error {
		return errors.Wrap(device.SetWarmStartParameter(ctx, parameter), "failed to set warm start parameter")
	})
}

// CleanFan starts measurement, runs the fan cleaning procedure for the given period, and stops measurement
func (s *Sensor) CleanFan(ctx context.Context, period time.Duration) error {
	return s.withDevice(ctx, func(device *Device) error {
		err := device.StartMeasurement(ctx, s.particulates)
		if err != nil {
			return errors.Wrap(err, "failed to start measurement")
		}

		err = device.StartFanCleaning(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to start fan cleaning")
		}

		select {
		case <-ctx.Done():
		case <-time.After(period):
		}

		return errors.Wrap(device.StopMeasurement(context.Background()), "failed to stop measurement")
	})
}

// Measurements returns a channel of measured values as they become available from the sensor
func (s *Sensor) Measurements() <-chan *Measurement {
	return s.measurements
}

// Temperatures returns a channel of temperature readings as they become available from the sensor
func (s *Sensor) Temperatures() <-chan *units.Temperature {
	return s.temperatures
}

// TemperatureSpecs returns a collection of specified measurement ranges supported by the sensor
func (*Sensor) TemperatureSpecs() []*temperature.TemperatureSpec {
	return []*temperature.TemperatureSpec{
		{
			Resolution:     5 * units.ThousandthDegreeCelsius,
			MinTemperature: -10 * units.DegreeCelsius,
			MaxTemperature: 50 * units.DegreeCelsius,
		},
	}
}

// RelativeHumidities returns a channel of relative humidity readings as they become available from the sensor
func (s *Sensor) RelativeHumidities() <-chan *units.RelativeHumidity {
	return s.relativeHumidities
}

// RelativeHumiditySpecs returns a collection of specified measurement ranges supported by the sensor
func (*Sensor) RelativeHumiditySpecs() []*humidity.RelativeHumiditySpec {
	return []*humidity.RelativeHumiditySpec{
		{
			PercentageResolution: 0.0001,
			MinPercentage:        0.0,
			MaxPercentage:        1.0,
		},
	}
}
