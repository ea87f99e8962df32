package sensironsen5x

import (
	"encoding/binary"
	"time"
)

type command int

const (
	cmdReadDataReady command = iota
	cmdReadMeasurement
	cmdReadRawSignals
	cmdReadProductName
	cmdReadSerialNumber
	cmdReadVersion
	cmdReadDeviceStatus
	cmdReadAndClearDeviceStatus
	cmdWarmStartParameter
	cmdStartMeasurement
	cmdStartMeasurementNoParticulates
	cmdStopMeasurement
	cmdStartFanCleaning
	cmdReset
)

type commandDescriptor struct {
	name           string
	opcode         uint16
	execution      time.Duration
	responseLength int
	requestLength  int
}

var commands = [...]commandDescriptor{
	cmdReadDataReady: {
		name:           "read data ready flag",
		opcode:         0x0202,
		execution:      20 * time.Millisecond,
		responseLength: 3,
	},
	cmdReadMeasurement: {
		name:           "read measurement",
		opcode:         0x03C4,
		execution:      20 * time.Millisecond,
		responseLength: 24,
	},
	cmdReadRawSignals: {
		name:           "read raw signals",
		opcode:         0x03D2,
		execution:      20 * time.Millisecond,
		responseLength: 12,
	},
	cmdReadProductName: {
		name:           "read product name",
		opcode:         0xD014,
		execution:      20 * time.Millisecond,
		responseLength: 47,
	},
	cmdReadSerialNumber: {
		name:           "read serial number",
		opcode:         0xD033,
		execution:      20 * time.Millisecond,
		responseLength: 47,
	},
	cmdReadVersion: {
		name:           "read version",
		opcode:         0xD100,
		execution:      20 * time.Millisecond,
		responseLength: versionInfoLength,
	},
	cmdReadDeviceStatus: {
		name:           "read device status",
		opcode:         0xD206,
		execution:      20 * time.Millisecond,
		responseLength: 6,
	},
	cmdReadAndClearDeviceStatus: {
		name:           "read and clear device status",
		opcode:         0xD210,
		execution:      20 * time.Millisecond,
		responseLength: 6,
	},
	cmdWarmStartParameter: {
		name:           "warm start parameter",
		opcode:         0x60C6,
		execution:      20 * time.Millisecond,
		responseLength: 3,
		requestLength:  5,
	},
	cmdStartMeasurement: {
		name:      "start measurement",
		opcode:    0x0021,
		execution: 50 * time.Millisecond,
	},
	cmdStartMeasurementNoParticulates: {
		name:      "start measurement without particulates",
		opcode:    0x0037,
		execution: 50 * time.Millisecond,
	},
	cmdStopMeasurement: {
		name:      "stop measurement",
		opcode:    0x0104,
		execution: 200 * time.Millisecond,
	},
	cmdStartFanCleaning: {
		name:      "start fan cleaning",
		opcode:    0x5607,
		execution: 20 * time.Millisecond,
	},
	cmdReset: {
		name:      "reset",
		opcode:    0xD304,
		execution: 100 * time.Millisecond,
	},
}

func (c command) descriptor() *commandDescriptor {
	return &commands[c]
}

func (d *commandDescriptor) opcodeBytes() []byte {
	buf := make([]byte, wordLength)
	binary.BigEndian.PutUint16(buf, d.opcode)
	return buf
}

// readCommand pairs a command with the only decoder valid for its response
type readCommand[T any] struct {
	command command
	decode  func([]byte) (T, error)
}

var (
	readDataReady            = readCommand[bool]{cmdReadDataReady, decodeDataReady}
	readMeasurement          = readCommand[*Measurement]{cmdReadMeasurement, decodeMeasurement}
	readRawSignals           = readCommand[*RawSignals]{cmdReadRawSignals, decodeRawSignals}
	readProductName          = readCommand[string]{cmdReadProductName, decodeDeviceString}
	readSerialNumber         = readCommand[string]{cmdReadSerialNumber, decodeDeviceString}
	readVersion              = readCommand[*VersionInfo]{cmdReadVersion, decodeVersionInfo}
	readDeviceStatus         = readCommand[DeviceStatus]{cmdReadDeviceStatus, decodeDeviceStatus}
	readAndClearDeviceStatus = readCommand[DeviceStatus]{cmdReadAndClearDeviceStatus, decodeDeviceStatus}
	readWarmStartParameter   = readCommand[uint16]{cmdWarmStartParameter, decodeWarmStartParameter}
)
