package sensironsen5x

import (
	"time"

	"github.com/go-sensors/core/i2c"
)

const (
	DefaultAddress           = 0x69
	DefaultReconnectTimeout  = 5 * time.Second
	DefaultDataReadyInterval = 20 * time.Millisecond
	DefaultFanCleaningPeriod = 10 * time.Second
)

// GetDefaultI2CPortConfig gets the manufacturer-specified defaults for connecting to the sensor
func GetDefaultI2CPortConfig() *i2c.I2CPortConfig {
	return &i2c.I2CPortConfig{
		Address: DefaultAddress,
	}
}
