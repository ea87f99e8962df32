package sensironsen5x

import (
	"context"
	"io"
	"time"

	coreio "github.com/go-sensors/core/io"
	"github.com/sirupsen/logrus"
)

// Delay suspends the caller for at least the given duration
type Delay func(time.Duration)

// Device issues commands to a single sensor over an exclusively owned port.
// A Device is not safe for concurrent use.
type Device struct {
	port         coreio.Port
	delay        Delay
	logger       logrus.FieldLogger
	mode         Mode
	particulates ParticulateMode
}

// NewDevice creates a Device that communicates over port. The sensor is assumed to be Idle.
// A nil delay uses time.Sleep and a nil logger discards all output.
func NewDevice(port coreio.Port, delay Delay, logger logrus.FieldLogger) *Device {
	if delay == nil {
		delay = time.Sleep
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Device{
		port:         port,
		delay:        delay,
		logger:       logger,
		mode:         Idle,
		particulates: ParticulatesEnabled,
	}
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Mode returns the current operating mode
func (d *Device) Mode() Mode {
	return d.mode
}

// ParticulateMode returns the variant used to start the current or most recent measurement
func (d *Device) ParticulateMode() ParticulateMode {
	return d.particulates
}

func (d *Device) write(desc *commandDescriptor, buf []byte) error {
	_, err := d.port.Write(buf)
	if err != nil {
		return &TransportError{Op: OpWrite, Command: desc.name, Err: err}
	}
	d.delay(desc.execution)
	return nil
}

func (d *Device) writeCommand(c command) error {
	desc := c.descriptor()
	return d.write(desc, desc.opcodeBytes())
}

func (d *Device) writeDataCommand(c command, data uint16) error {
	desc := c.descriptor()
	buf := make([]byte, desc.requestLength)
	copy(buf, desc.opcodeBytes())
	word := encodeWord(data)
	copy(buf[wordLength:], word[:])
	return d.write(desc, buf)
}

func execute[T any](d *Device, c readCommand[T]) (T, error) {
	var zero T
	desc := c.command.descriptor()
	if err := d.writeCommand(c.command); err != nil {
		return zero, err
	}

	buf := make([]byte, desc.responseLength)
	n, err := d.port.Read(buf)
	if err != nil {
		return zero, &TransportError{Op: OpRead, Command: desc.name, Err: err}
	}
	if n < len(buf) {
		return zero, &TransportError{Op: OpRead, Command: desc.name, Err: io.ErrUnexpectedEOF}
	}

	value, err := c.decode(buf)
	if err != nil {
		return zero, &DecodeError{Command: desc.name, Err: err}
	}
	return value, nil
}

// DataReady reports whether new measurement data is available
func (d *Device) DataReady(ctx context.Context) (bool, error) {
	return execute(d, readDataReady)
}

// StartMeasurement enters measuring mode, with or without the particulate matter sensor
func (d *Device) StartMeasurement(ctx context.Context, particulates ParticulateMode) error {
	c := cmdStartMeasurement
	if particulates == ParticulatesDisabled {
		c = cmdStartMeasurementNoParticulates
	}
	if err := d.writeCommand(c); err != nil {
		return err
	}

	d.mode = Measuring
	d.particulates = particulates
	d.logger.WithField("particulates", particulates).Debug("started measurement")
	return nil
}

// StopMeasurement returns the sensor to idle mode
func (d *Device) StopMeasurement(ctx context.Context) error {
	if err := d.writeCommand(cmdStopMeasurement); err != nil {
		return err
	}

	d.mode = Idle
	d.logger.Debug("stopped measurement")
	return nil
}

// Reset performs a soft reset, which leaves the sensor idle
func (d *Device) Reset(ctx context.Context) error {
	if err := d.writeCommand(cmdReset); err != nil {
		return err
	}

	d.mode = Idle
	d.logger.Debug("reset sensor")
	return nil
}

// WaitForData polls the data ready flag at DefaultDataReadyInterval until it is set
func (d *Device) WaitForData(ctx context.Context) error {
	return d.WaitForDataWithInterval(ctx, DefaultDataReadyInterval)
}

// WaitForDataWithInterval polls the data ready flag until it is set.
// The context is only consulted between polls.
func (d *Device) WaitForDataWithInterval(ctx context.Context, interval time.Duration) error {
	if err := d.mode.require(Measuring); err != nil {
		return err
	}

	for {
		ready, err := d.DataReady(ctx)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d.delay(interval)
	}
}

// ReadMeasurement reads the latest measured values.
// It does not wait for new data and may return the same values more than once.
func (d *Device) ReadMeasurement(ctx context.Context) (*Measurement, error) {
	if err := d.mode.require(Measuring); err != nil {
		return nil, err
	}
	return execute(d, readMeasurement)
}

// Measure waits until new data is ready and reads it
func (d *Device) Measure(ctx context.Context) (*Measurement, error) {
	if err := d.WaitForData(ctx); err != nil {
		return nil, err
	}
	return d.ReadMeasurement(ctx)
}

// ReadRawSignals reads the uncompensated humidity, temperature, VOC, and NOx signals.
// It does not wait for new data.
func (d *Device) ReadRawSignals(ctx context.Context) (*RawSignals, error) {
	if err := d.mode.require(Measuring); err != nil {
		return nil, err
	}
	return execute(d, readRawSignals)
}

// StartFanCleaning starts the fan cleaning procedure, which is only accepted while measuring
func (d *Device) StartFanCleaning(ctx context.Context) error {
	if err := d.mode.require(Measuring); err != nil {
		return err
	}
	return d.writeCommand(cmdStartFanCleaning)
}

// ReadWarmStartParameter reads the warm start parameter
func (d *Device) ReadWarmStartParameter(ctx context.Context) (uint16, error) {
	return execute(d, readWarmStartParameter)
}

// SetWarmStartParameter sets the warm start parameter used by the next start of measurement.
// It is only accepted while idle.
func (d *Device) SetWarmStartParameter(ctx context.Context, parameter uint16) error {
	if err := d.mode.require(Idle); err != nil {
		return err
	}
	return d.writeDataCommand(cmdWarmStartParameter, parameter)
}

// ReadProductName reads the product name, e.g. "SEN55"
func (d *Device) ReadProductName(ctx context.Context) (string, error) {
	return execute(d, readProductName)
}

// ReadSerialNumber reads the serial number
func (d *Device) ReadSerialNumber(ctx context.Context) (string, error) {
	return execute(d, readSerialNumber)
}

// ReadVersion reads the firmware, hardware, and protocol versions
func (d *Device) ReadVersion(ctx context.Context) (*VersionInfo, error) {
	return execute(d, readVersion)
}

// ReadDeviceStatus reads the device status register
func (d *Device) ReadDeviceStatus(ctx context.Context) (DeviceStatus, error) {
	return execute(d, readDeviceStatus)
}

// ReadAndClearDeviceStatus reads the device status register and clears it
func (d *Device) ReadAndClearDeviceStatus(ctx context.Context) (DeviceStatus, error) {
	return execute(d, readAndClearDeviceStatus)
}
