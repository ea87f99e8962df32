package sensironsen5x

import (
	"strings"
)

// DeviceStatus is the device status register
type DeviceStatus uint32

const (
	// FanError is set when the fan is switched on but 0 RPM was measured twice in succession.
	// It is not cleared automatically.
	FanError DeviceStatus = 1 << 4
	// LaserError is set on a laser failure
	LaserError DeviceStatus = 1 << 5
	// RHTError is set on an internal communication error with the RH/T sensor
	RHTError DeviceStatus = 1 << 6
	// GasSensorError is set on a VOC/NOx gas sensor error
	GasSensorError DeviceStatus = 1 << 7
	// FanCleaning is set while the fan runs its cleaning procedure
	FanCleaning DeviceStatus = 1 << 19
	// FanSpeedWarning is set when the fan speed is too low or too high
	FanSpeedWarning DeviceStatus = 1 << 21

	// ErrorMask covers every error bit
	ErrorMask = FanError | LaserError | RHTError | GasSensorError
)

var statusNames = []struct {
	flag DeviceStatus
	name string
}{
	{FanError, "fan error"},
	{LaserError, "laser error"},
	{RHTError, "RHT error"},
	{GasSensorError, "gas sensor error"},
	{FanCleaning, "fan cleaning"},
	{FanSpeedWarning, "fan speed warning"},
}

// Has reports whether every bit in flag is set
func (s DeviceStatus) Has(flag DeviceStatus) bool {
	return s&flag == flag
}

// HasError reports whether any error bit is set
func (s DeviceStatus) HasError() bool {
	return s&ErrorMask != 0
}

func (s DeviceStatus) String() string {
	names := []string{}
	for _, n := range statusNames {
		if s.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "ok"
	}
	return strings.Join(names, ", ")
}

func decodeDeviceStatus(buf []byte) (DeviceStatus, error) {
	words, err := readWords(buf)
	if err != nil {
		return 0, err
	}
	if len(words) != 2 {
		return 0, malformed("device status must contain 2 words")
	}
	return DeviceStatus(uint32(words[0])<<16 | uint32(words[1])), nil
}
