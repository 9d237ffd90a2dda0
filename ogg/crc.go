package ogg

// Ogg uses the unreflected CRC-32 with polynomial 0x04C11DB7 and zero
// initial and final values. This is not hash/crc32's IEEE table.
const crcPoly = uint32(0x04C11DB7)

var crcTable [256]uint32

func init() {
	for i := range crcTable {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ crcPoly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// Checksum continues the running checksum seed over data[off:off+n].
// Checksum(Checksum(0, a, 0, len(a)), b, 0, len(b)) equals the checksum of a
// followed by b.
func Checksum(seed uint32, data []byte, off, n int) uint32 {
	crc := seed
	for _, b := range data[off : off+n] {
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
