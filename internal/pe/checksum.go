package pe

import (
	"encoding/binary"

	"github.com/Binject/debug/pe"
)

// checksumFieldOffset is the offset of CheckSum inside the optional header,
// the same for PE32 and PE32+.
const checksumFieldOffset = 64

// ChecksumInfo contains PE checksum verification results.
type ChecksumInfo struct {
	Stored   uint32
	Computed uint32
	Valid    bool
}

// verifyChecksum recomputes the image checksum of the raw file. A stored
// checksum of zero means the file is not checksummed and counts as valid.
func verifyChecksum(f *pe.File, raw []byte) *ChecksumInfo {
	var stored uint32
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		stored = oh.CheckSum
	case *pe.OptionalHeader64:
		stored = oh.CheckSum
	}

	if stored == 0 || len(raw) < 0x40 {
		return &ChecksumInfo{Valid: true}
	}

	ntOffset := int(binary.LittleEndian.Uint32(raw[0x3C:0x40]))
	computed := computeChecksum(raw, ntOffset+4+20+checksumFieldOffset)

	return &ChecksumInfo{
		Stored:   stored,
		Computed: computed,
		Valid:    stored == computed,
	}
}

// computeChecksum folds the file into a 16-bit one's complement sum of
// little-endian words, skipping the 4-byte checksum field at skip, and adds
// the file length. A negative skip checksums every word.
func computeChecksum(data []byte, skip int) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 2 {
		if skip >= 0 && i >= skip && i < skip+4 {
			continue
		}

		var word uint32
		if i+1 < len(data) {
			word = uint32(binary.LittleEndian.Uint16(data[i:]))
		} else {
			word = uint32(data[i])
		}

		sum += word
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	sum = (sum & 0xFFFF) + (sum >> 16)

	return sum + uint32(len(data))
}

// Checksum returns the checksum verification of the file the image was
// loaded from.
func (img *Image) Checksum() *ChecksumInfo {
	return img.checksum
}
