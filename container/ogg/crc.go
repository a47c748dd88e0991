package ogg

// Ogg CRC-32: polynomial 0x04C11DB7, no reflection, zero initial value and
// no final XOR. hash/crc32 only offers reflected tables, so it cannot be used.

var oggCRCTable [256]uint32

func init() {
	const poly = uint32(0x04C11DB7)
	for i := range oggCRCTable {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		oggCRCTable[i] = crc
	}
}

// oggCRC computes the Ogg CRC-32 checksum from scratch.
func oggCRC(data []byte) uint32 {
	return oggCRCUpdate(0, data)
}

// oggCRCUpdate updates a running CRC with additional data.
func oggCRCUpdate(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = (crc << 8) ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}
