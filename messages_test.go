package sensironsen5x

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func words(values ...uint16) []byte {
	buf := []byte{}
	for _, value := range values {
		group := encodeWord(value)
		buf = append(buf, group[:]...)
	}
	return buf
}

func Test_checksum_matches_reference_value(t *testing.T) {
	// Arrange
	data := []byte{0xBE, 0xEF}

	// Act
	actual := checksum(data)

	// Assert
	assert.Equal(t, byte(0x92), actual)
	assert.True(t, verifyChecksum(data, 0x92))
	assert.False(t, verifyChecksum(data, 0x93))
}

func Test_encodeWord_frames_big_endian_word_with_checksum(t *testing.T) {
	// Act
	actual := encodeWord(0xBEEF)

	// Assert
	assert.Equal(t, [3]byte{0xBE, 0xEF, 0x92}, actual)
}

func Test_readWords_accepts_every_valid_group(t *testing.T) {
	for _, value := range []uint16{0x0000, 0x0001, 0x7FFF, 0x8000, 0xBEEF, 0xFFFF} {
		// Act
		actual, err := readWords(words(value))

		// Assert
		assert.Nil(t, err)
		assert.Equal(t, []uint16{value}, actual)
	}
}

func Test_readWords_rejects_any_flipped_checksum_bit(t *testing.T) {
	for bit := 0; bit < 8; bit++ {
		// Arrange
		buf := words(0x1234, 0x5678)
		buf[5] ^= 1 << bit

		// Act
		actual, err := readWords(buf)

		// Assert
		assert.Nil(t, actual)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
		assert.ErrorContains(t, err, "offset 3")
	}
}

func Test_readWords_stops_at_first_mismatch(t *testing.T) {
	// Arrange
	buf := words(0x1234, 0x5678)
	buf[2] ^= 0xFF
	buf[5] ^= 0xFF

	// Act
	_, err := readWords(buf)

	// Assert
	assert.ErrorContains(t, err, "offset 0")
}

func Test_readWords_rejects_partial_group(t *testing.T) {
	// Act
	_, err := readWords([]byte{0x00, 0x01})

	// Assert
	var messageErr *MessageError
	assert.ErrorAs(t, err, &messageErr)
}

func Test_decodeMeasurement_maps_sentinels_to_absent(t *testing.T) {
	// Arrange
	buf := words(0xFFFF, 0, 1, 0xFFFE, 0x7FFF, 0x8000, 0xFFFF, 0)

	// Act
	actual, err := decodeMeasurement(buf)

	// Assert
	assert.Nil(t, err)
	_, ok := actual.RawPM1p0()
	assert.False(t, ok)
	pm2p5, ok := actual.RawPM2p5()
	assert.True(t, ok)
	assert.Equal(t, uint16(0), pm2p5)
	pm4p0, _ := actual.RawPM4p0()
	assert.Equal(t, uint16(1), pm4p0)
	pm10p0, ok := actual.RawPM10p0()
	assert.True(t, ok)
	assert.Equal(t, uint16(0xFFFE), pm10p0)
	_, ok = actual.RawRelativeHumidity()
	assert.False(t, ok)
	_, ok = actual.RelativeHumidity()
	assert.False(t, ok)
	temperature, ok := actual.RawTemperature()
	assert.True(t, ok)
	assert.Equal(t, int16(-32768), temperature)
	voc, ok := actual.RawVOCIndex()
	assert.True(t, ok)
	assert.Equal(t, int16(-1), voc)
	nox, ok := actual.RawNOxIndex()
	assert.True(t, ok)
	assert.Equal(t, int16(0), nox)
}

func Test_decodeMeasurement_scales_present_values(t *testing.T) {
	// Arrange
	var negativeTemperature int16 = -1000
	buf := words(15, 100, 250, 999, 6543, uint16(negativeTemperature), 1005, 12)

	// Act
	actual, err := decodeMeasurement(buf)

	// Assert
	assert.Nil(t, err)
	temperature, _ := actual.Temperature()
	assert.Equal(t, float64(-1000)/200, temperature)
	humidity, _ := actual.RelativeHumidity()
	assert.Equal(t, float64(6543)/100, humidity)
	pm1p0, _ := actual.PM1p0()
	assert.Equal(t, float64(15)/10, pm1p0)
	pm10p0, _ := actual.PM10p0()
	assert.Equal(t, float64(999)/10, pm10p0)
	voc, _ := actual.VOCIndex()
	assert.Equal(t, float64(1005)/10, voc)
	nox, _ := actual.NOxIndex()
	assert.Equal(t, 1.2, nox)
}

func Test_decodeDeviceString_stops_at_terminator(t *testing.T) {
	// Arrange
	buf := make([]byte, 47)
	copy(buf, words(0x5345, 0x4E35, 0x3500))
	buf[9] = 'X'

	// Act
	actual, err := decodeDeviceString(buf)

	// Assert
	assert.Nil(t, err)
	assert.Equal(t, "SEN55", actual)
}

func Test_decodeDeviceString_terminator_in_first_byte_of_group(t *testing.T) {
	// Arrange
	buf := make([]byte, 47)
	copy(buf, words(0x5345, 0x4E35, 0x0041))

	// Act
	actual, err := decodeDeviceString(buf)

	// Assert
	assert.Nil(t, err)
	assert.Equal(t, "SEN5", actual)
}

func Test_decodeDeviceString_validates_terminating_group(t *testing.T) {
	// Arrange
	buf := make([]byte, 47)
	copy(buf, words(0x5345, 0x4E35, 0x3500))
	buf[8] ^= 0x01

	// Act
	_, err := decodeDeviceString(buf)

	// Assert
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func Test_decodeDeviceString_without_terminator_uses_every_full_group(t *testing.T) {
	// Arrange
	values := make([]uint16, 15)
	for i := range values {
		values[i] = 0x4142
	}
	buf := append(words(values...), 0xFF, 0xFF)

	// Act
	actual, err := decodeDeviceString(buf)

	// Assert
	assert.Nil(t, err)
	assert.Len(t, actual, 30)
}

func Test_decodeDataReady_uses_whole_group(t *testing.T) {
	// Act
	ready, err := decodeDataReady(words(0x0001))

	// Assert
	assert.Nil(t, err)
	assert.True(t, ready)
}

func Test_decodeWarmStartParameter_round_trips_encoded_argument(t *testing.T) {
	for _, value := range []uint16{0, 1, 0x8000, 0xFFFF} {
		// Arrange
		group := encodeWord(value)

		// Act
		actual, err := decodeWarmStartParameter(group[:])

		// Assert
		assert.Nil(t, err)
		assert.Equal(t, value, actual)
	}
}

func Test_decodeVersionInfo_sets_debug_flag(t *testing.T) {
	// Arrange
	buf := []byte{1, 0, 1, 2, 0, 3, 1, 0, 0, 0, 0, 0}
	buf[11] = checksum(buf[:11])

	// Act
	actual, err := decodeVersionInfo(buf)

	// Assert
	assert.Nil(t, err)
	assert.True(t, actual.FirmwareDebug)
	assert.Equal(t, Version{Major: 3, Minor: 1}, actual.Protocol)
}

func Test_decodeDeviceStatus_combines_words(t *testing.T) {
	// Act
	actual, err := decodeDeviceStatus(words(0x0020, 0x0040))

	// Assert
	assert.Nil(t, err)
	assert.Equal(t, FanSpeedWarning|RHTError, actual)
	assert.Equal(t, "RHT error, fan speed warning", actual.String())
}

func Test_DeviceStatus_error_predicate_ignores_warnings(t *testing.T) {
	assert.False(t, (FanCleaning | FanSpeedWarning).HasError())
	assert.True(t, LaserError.HasError())
	assert.True(t, GasSensorError.HasError())
}

func Test_ParseSensorKind_accepts_known_products(t *testing.T) {
	cases := map[string]SensorKind{
		"SEN50":   SEN50,
		" sen54 ": SEN54,
		"Sen55\t":  SEN55,
	}
	for name, expected := range cases {
		actual, err := ParseSensorKind(name)
		assert.Nil(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := ParseSensorKind("SPS30")
	assert.ErrorContains(t, err, "unknown sensor")
}

func Test_commands_match_wire_format(t *testing.T) {
	type expectation struct {
		opcode         uint16
		execution      time.Duration
		responseLength int
		requestLength  int
	}
	expected := map[command]expectation{
		cmdReadDataReady:                  {0x0202, 20 * time.Millisecond, 3, 0},
		cmdReadMeasurement:                {0x03C4, 20 * time.Millisecond, 24, 0},
		cmdReadRawSignals:                 {0x03D2, 20 * time.Millisecond, 12, 0},
		cmdReadProductName:                {0xD014, 20 * time.Millisecond, 47, 0},
		cmdReadSerialNumber:               {0xD033, 20 * time.Millisecond, 47, 0},
		cmdReadVersion:                    {0xD100, 20 * time.Millisecond, 12, 0},
		cmdReadDeviceStatus:               {0xD206, 20 * time.Millisecond, 6, 0},
		cmdReadAndClearDeviceStatus:       {0xD210, 20 * time.Millisecond, 6, 0},
		cmdWarmStartParameter:             {0x60C6, 20 * time.Millisecond, 3, 5},
		cmdStartMeasurement:               {0x0021, 50 * time.Millisecond, 0, 0},
		cmdStartMeasurementNoParticulates: {0x0037, 50 * time.Millisecond, 0, 0},
		cmdStopMeasurement:                {0x0104, 200 * time.Millisecond, 0, 0},
		cmdStartFanCleaning:               {0x5607, 20 * time.Millisecond, 0, 0},
		cmdReset:                          {0xD304, 100 * time.Millisecond, 0, 0},
	}

	assert.Len(t, commands, len(expected))
	for c, e := range expected {
		desc := c.descriptor()
		assert.Equal(t, e.opcode, desc.opcode, desc.name)
		assert.Equal(t, e.execution, desc.execution, desc.name)
		assert.Equal(t, e.responseLength, desc.responseLength, desc.name)
		assert.Equal(t, e.requestLength, desc.requestLength, desc.name)
		assert.Equal(t, e.opcode, binary.BigEndian.Uint16(desc.opcodeBytes()), desc.name)
	}
}
