// Package periph provides ports that reach a sensor through a periph.io I2C bus.
package periph

import (
	"io"

	corei2c "github.com/go-sensors/core/i2c"
	coreio "github.com/go-sensors/core/io"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Port reads from and writes to a single device address on an I2C bus
type Port struct {
	dev    *i2c.Dev
	closer io.Closer
}

// NewPort creates a Port for the device at addr. Closing the Port does not close bus.
func NewPort(bus i2c.Bus, addr uint16) *Port {
	return &Port{
		dev: &i2c.Dev{Bus: bus, Addr: addr},
	}
}

func (p *Port) Write(b []byte) (int, error) {
	return p.dev.Write(b)
}

// Read fills b in a single read transaction
func (p *Port) Read(b []byte) (int, error) {
	err := p.dev.Tx(nil, b)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *Port) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func (p *Port) String() string {
	return p.dev.String()
}

// PortFactory opens a named I2C bus each time a port is requested
type PortFactory struct {
	busName string
	config  *corei2c.I2CPortConfig
}

// NewPortFactory creates a PortFactory; an empty busName selects the first available bus
func NewPortFactory(busName string, config *corei2c.I2CPortConfig) *PortFactory {
	return &PortFactory{
		busName: busName,
		config:  config,
	}
}

// Open initializes the host drivers and opens the bus
func (f *PortFactory) Open() (coreio.Port, error) {
	_, err := host.Init()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize host drivers")
	}

	bus, err := i2creg.Open(f.busName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open i2c bus %q", f.busName)
	}

	port := NewPort(bus, uint16(f.config.Address))
	port.closer = bus
	return port, nil
}
