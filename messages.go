package sensironsen5x

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

const (
	unsignedSentinel uint16 = math.MaxUint16
	signedSentinel   int16  = math.MaxInt16
)

const (
	massConcentrationScale = 10
	humidityScale          = 100
	temperatureScale       = 200
	indexScale             = 10
)

// readWords validates every checksum group in buf and returns the big-endian words.
// Validation stops at the first mismatching group.
func readWords(buf []byte) ([]uint16, error) {
	if len(buf)%groupLength != 0 {
		return nil, malformed("response length is not a multiple of the word group length")
	}

	data := make([]uint16, 0, len(buf)/groupLength)
	for idx := 0; idx < len(buf); idx += groupLength {
		if err := verifyGroup(buf, idx); err != nil {
			return nil, err
		}
		data = append(data, binary.BigEndian.Uint16(buf[idx:idx+wordLength]))
	}
	return data, nil
}

func verifyGroup(buf []byte, idx int) error {
	wordBytes := buf[idx : idx+wordLength]
	expectedCrc := buf[idx+wordLength]
	actualCrc := checksum(wordBytes)
	if actualCrc != expectedCrc {
		return errors.Wrapf(ErrChecksumMismatch, "word %v at offset %d (expected %#02x but got %#02x)", wordBytes, idx, expectedCrc, actualCrc)
	}
	return nil
}

func decodeDataReady(buf []byte) (bool, error) {
	if len(buf) != groupLength {
		return false, malformed("data ready packet must be 3 bytes")
	}
	if err := verifyGroup(buf, 0); err != nil {
		return false, err
	}

	if buf[0] != 0x00 {
		return false, malformed("data ready packet must start with 0x00")
	}
	switch buf[1] {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, malformed("data ready packet must have 0x00 or 0x01 as second byte")
	}
}

func decodeWarmStartParameter(buf []byte) (uint16, error) {
	words, err := readWords(buf)
	if err != nil {
		return 0, err
	}
	if len(words) != 1 {
		return 0, malformed("warm start parameter must be a single word")
	}
	return words[0], nil
}

// Measurement is a set of measured values read from the sensor.
//
// Measured values have the following layout on the wire:
//
//	| Bytes  | Type | Scale | Description                   |
//	|:-------|:-----|:------|:------------------------------|
//	| 0..1   | u16  | 10    | PM1.0 (µg/m³)                 |
//	| 2      | CRC8 |       |                               |
//	| 3..4   | u16  | 10    | PM2.5 (µg/m³)                 |
//	| 5      | CRC8 |       |                               |
//	| 6..7   | u16  | 10    | PM4.0 (µg/m³)                 |
//	| 8      | CRC8 |       |                               |
//	| 9..10  | u16  | 10    | PM10.0 (µg/m³)                |
//	| 11     | CRC8 |       |                               |
//	| 12..13 | i16  | 100   | Ambient relative humidity (%) |
//	| 14     | CRC8 |       |                               |
//	| 15..16 | i16  | 200   | Ambient temperature (°C)      |
//	| 17     | CRC8 |       |                               |
//	| 18..19 | i16  | 10    | VOC index                     |
//	| 20     | CRC8 |       |                               |
//	| 21..22 | i16  | 10    | NOx index                     |
//	| 23     | CRC8 |       |                               |
//
// A value of 0xFFFF (unsigned) or 0x7FFF (signed) means the reading is unavailable,
// e.g. particulate matter values after starting measurement without particulates,
// or the NOx index on a SEN54.
type Measurement struct {
	pm1p0       uint16
	pm2p5       uint16
	pm4p0       uint16
	pm10p0      uint16
	humidity    int16
	temperature int16
	vocIndex    int16
	noxIndex    int16
}

func decodeMeasurement(buf []byte) (*Measurement, error) {
	words, err := readWords(buf)
	if err != nil {
		return nil, err
	}
	if len(words) != 8 {
		return nil, malformed("measurement must contain 8 words")
	}

	return &Measurement{
		pm1p0:       words[0],
		pm2p5:       words[1],
		pm4p0:       words[2],
		pm10p0:      words[3],
		humidity:    int16(words[4]),
		temperature: int16(words[5]),
		vocIndex:    int16(words[6]),
		noxIndex:    int16(words[7]),
	}, nil
}

func presentUnsigned(value uint16) (uint16, bool) {
	if value == unsignedSentinel {
		return 0, false
	}
	return value, true
}

func presentSigned(value int16) (int16, bool) {
	if value == signedSentinel {
		return 0, false
	}
	return value, true
}

func scaleUnsigned(value uint16, scale float64) (float64, bool) {
	raw, ok := presentUnsigned(value)
	if !ok {
		return 0, false
	}
	return float64(raw) / scale, true
}

func scaleSigned(value int16, scale float64) (float64, bool) {
	raw, ok := presentSigned(value)
	if !ok {
		return 0, false
	}
	return float64(raw) / scale, true
}

// RawPM1p0 returns the unscaled PM1.0 reading
func (m *Measurement) RawPM1p0() (uint16, bool) { return presentUnsigned(m.pm1p0) }

// RawPM2p5 returns the unscaled PM2.5 reading
func (m *Measurement) RawPM2p5() (uint16, bool) { return presentUnsigned(m.pm2p5) }

// RawPM4p0 returns the unscaled PM4.0 reading
func (m *Measurement) RawPM4p0() (uint16, bool) { return presentUnsigned(m.pm4p0) }

// RawPM10p0 returns the unscaled PM10.0 reading
func (m *Measurement) RawPM10p0() (uint16, bool) { return presentUnsigned(m.pm10p0) }

// RawRelativeHumidity returns the unscaled relative humidity reading
func (m *Measurement) RawRelativeHumidity() (int16, bool) { return presentSigned(m.humidity) }

// RawTemperature returns the unscaled temperature reading
func (m *Measurement) RawTemperature() (int16, bool) { return presentSigned(m.temperature) }

// RawVOCIndex returns the unscaled VOC index reading
func (m *Measurement) RawVOCIndex() (int16, bool) { return presentSigned(m.vocIndex) }

// RawNOxIndex returns the unscaled NOx index reading
func (m *Measurement) RawNOxIndex() (int16, bool) { return presentSigned(m.noxIndex) }

// PM1p0 returns the mass concentration of particulate matter under 1.0 µm in µg/m³
func (m *Measurement) PM1p0() (float64, bool) {
	return scaleUnsigned(m.pm1p0, massConcentrationScale)
}

// PM2p5 returns the mass concentration of particulate matter under 2.5 µm in µg/m³
func (m *Measurement) PM2p5() (float64, bool) {
	return scaleUnsigned(m.pm2p5, massConcentrationScale)
}

// PM4p0 returns the mass concentration of particulate matter under 4.0 µm in µg/m³
func (m *Measurement) PM4p0() (float64, bool) {
	return scaleUnsigned(m.pm4p0, massConcentrationScale)
}

// PM10p0 returns the mass concentration of particulate matter under 10.0 µm in µg/m³
func (m *Measurement) PM10p0() (float64, bool) {
	return scaleUnsigned(m.pm10p0, massConcentrationScale)
}

// RelativeHumidity returns the ambient relative humidity in percent
func (m *Measurement) RelativeHumidity() (float64, bool) {
	return scaleSigned(m.humidity, humidityScale)
}

// Temperature returns the ambient temperature in degrees Celsius
func (m *Measurement) Temperature() (float64, bool) {
	return scaleSigned(m.temperature, temperatureScale)
}

// VOCIndex returns the volatile organic compounds index
func (m *Measurement) VOCIndex() (float64, bool) {
	return scaleSigned(m.vocIndex, indexScale)
}

// NOxIndex returns the nitrogen oxides index
func (m *Measurement) NOxIndex() (float64, bool) {
	return scaleSigned(m.noxIndex, indexScale)
}

// RawSignals holds the uncompensated humidity, temperature, VOC, and NOx signals.
//
//	| Bytes  | Type | Scale | Description                   |
//	|:-------|:-----|:------|:------------------------------|
//	| 0..1   | i16  | 100   | Raw relative humidity (%)     |
//	| 3..4   | i16  | 200   | Raw temperature (°C)          |
//	| 6..7   | u16  | 1     | Raw VOC signal (ticks)        |
//	| 9..10  | u16  | 1     | Raw NOx signal (ticks)        |
type RawSignals struct {
	humidity    int16
	temperature int16
	voc         uint16
	nox         uint16
}

func decodeRawSignals(buf []byte) (*RawSignals, error) {
	words, err := readWords(buf)
	if err != nil {
		return nil, err
	}
	if len(words) != 4 {
		return nil, malformed("raw signals must contain 4 words")
	}

	return &RawSignals{
		humidity:    int16(words[0]),
		temperature: int16(words[1]),
		voc:         words[2],
		nox:         words[3],
	}, nil
}

// RawRelativeHumidity returns the unscaled raw humidity signal
func (r *RawSignals) RawRelativeHumidity() (int16, bool) { return presentSigned(r.humidity) }

// RawTemperature returns the unscaled raw temperature signal
func (r *RawSignals) RawTemperature() (int16, bool) { return presentSigned(r.temperature) }

// RelativeHumidity returns the uncompensated relative humidity in percent
func (r *RawSignals) RelativeHumidity() (float64, bool) {
	return scaleSigned(r.humidity, humidityScale)
}

// Temperature returns the uncompensated temperature in degrees Celsius
func (r *RawSignals) Temperature() (float64, bool) {
	return scaleSigned(r.temperature, temperatureScale)
}

// VOC returns the raw VOC signal in ticks
func (r *RawSignals) VOC() (uint16, bool) { return presentUnsigned(r.voc) }

// NOx returns the raw NOx signal in ticks
func (r *RawSignals) NOx() (uint16, bool) { return presentUnsigned(r.nox) }

const maxDeviceStringLength = 32

// decodeDeviceString collects ASCII characters up to the first NUL.
// Every group up to and including the one holding the terminator must validate;
// a trailing partial group carries no checksum and is ignored.
func decodeDeviceString(buf []byte) (string, error) {
	chars := make([]byte, 0, maxDeviceStringLength)
	for idx := 0; idx+groupLength <= len(buf); idx += groupLength {
		if err := verifyGroup(buf, idx); err != nil {
			return "", err
		}

		for _, c := range buf[idx : idx+wordLength] {
			if c > unicode.MaxASCII {
				return "", malformed("non-ASCII character in string")
			}
			if c == 0x00 {
				return string(chars), nil
			}
			if len(chars) == maxDeviceStringLength {
				return "", malformed("string exceeds 32 characters")
			}
			chars = append(chars, c)
		}
	}
	return string(chars), nil
}

// SensorKind identifies a member of the sensor family
type SensorKind int

const (
	SEN50 SensorKind = iota
	SEN54
	SEN55
)

func (k SensorKind) String() string {
	switch k {
	case SEN50:
		return "SEN50"
	case SEN54:
		return "SEN54"
	case SEN55:
		return "SEN55"
	default:
		return "unknown"
	}
}

// ParseSensorKind parses a product name such as "SEN55"
func ParseSensorKind(productName string) (SensorKind, error) {
	name := strings.TrimSpace(productName)
	for _, kind := range []SensorKind{SEN50, SEN54, SEN55} {
		if strings.EqualFold(name, kind.String()) {
			return kind, nil
		}
	}
	return 0, errors.Errorf("unknown sensor %q (expected one of \"SEN50\", \"SEN54\", or \"SEN55\")", productName)
}

// Version is a major.minor version pair
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// VersionInfo describes the firmware, hardware, protocol, and library versions of a sensor.
//
// The response is validated by a single checksum in byte 11 covering bytes 0..10:
// firmware (0,1), firmware debug flag (2), hardware (3,4), protocol (5,6),
// library (7,8), reserved (9,10).
type VersionInfo struct {
	Firmware      Version
	FirmwareDebug bool
	Hardware      Version
	Protocol      Version
	Library       Version
}

const versionInfoLength = 12

func decodeVersionInfo(buf []byte) (*VersionInfo, error) {
	if len(buf) != versionInfoLength {
		return nil, malformed("version info must be 12 bytes")
	}

	payload := buf[:versionInfoLength-checksumLength]
	expectedCrc := buf[versionInfoLength-checksumLength]
	actualCrc := checksum(payload)
	if actualCrc != expectedCrc {
		return nil, errors.Wrapf(ErrChecksumMismatch, "version info (expected %#02x but got %#02x)", expectedCrc, actualCrc)
	}

	return &VersionInfo{
		Firmware:      Version{Major: payload[0], Minor: payload[1]},
		FirmwareDebug: payload[2] != 0,
		Hardware:      Version{Major: payload[3], Minor: payload[4]},
		Protocol:      Version{Major: payload[5], Minor: payload[6]},
		Library:       Version{Major: payload[7], Minor: payload[8]},
	}, nil
}
