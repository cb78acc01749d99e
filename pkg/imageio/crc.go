package imageio

import "hash/crc32"

// crc32PNG computes the CRC-32 (IEEE polynomial) PNG chunks require over
// their type+data bytes.
func crc32PNG(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
