package sensironsen5x

import (
	"encoding/binary"

	"github.com/sigurn/crc8"
)

const (
	wordLength     = 2
	checksumLength = 1
	groupLength    = wordLength + checksumLength
)

var (
	checksumTable = crc8.MakeTable(crc8.Params{
		Poly:   0x31,
		Init:   0xFF,
		RefIn:  false,
		RefOut: false,
		XorOut: 0x00,
		Check:  0x00,
		Name:   "CRC-8/Sensiron",
	})
)

func checksum(data []byte) byte {
	return crc8.Checksum(data, checksumTable)
}

func verifyChecksum(data []byte, expected byte) bool {
	return checksum(data) == expected
}

// encodeWord frames a 16-bit argument the way the sensor expects it on the wire
func encodeWord(value uint16) [groupLength]byte {
	var group [groupLength]byte
	binary.BigEndian.PutUint16(group[0:wordLength], value)
	group[wordLength] = checksum(group[0:wordLength])
	return group
}
