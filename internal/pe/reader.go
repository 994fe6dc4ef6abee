// Package pe loads PE images into a virtual-layout buffer and exposes their
// export table.
package pe

import (
	"bytes"
	"errors"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/Binject/debug/pe"
)

// ErrLoadFailed is returned when an image is missing, unreadable or malformed.
var ErrLoadFailed = errors.New("failed to load the PE")

// Image is a PE file mapped the way the loader would lay it out in memory.
// Section data sits at its VirtualAddress, so an RVA is an offset into the buffer.
// The image is never relocated or executed.
type Image struct {
	path     string
	buf      []byte
	file     *pe.File
	machine  uint16
	checksum *ChecksumInfo
	exports  []export
	byName   map[string]uint32
}

// Load reads the file at path and maps it into a fresh buffer.
func Load(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, path, err)
	}

	machine := fileMachine(raw)

	hdr, err := pe.NewFile(headerReader(raw, machine))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse headers: %w", ErrLoadFailed, path, err)
	}
	defer func() { _ = hdr.Close() }()

	buf, err := mapImage(hdr, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, path, err)
	}

	f, err := pe.NewFileFromMemory(headerReader(buf, machine))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse mapped image: %w", ErrLoadFailed, path, err)
	}

	return &Image{
		path:     path,
		buf:      buf,
		file:     f,
		machine:  machine,
		checksum: verifyChecksum(hdr, raw),
	}, nil
}

// mapImage copies the headers and every section of the raw file to their
// virtual addresses inside a SizeOfImage buffer.
func mapImage(f *pe.File, raw []byte) ([]byte, error) {
	var sizeOfImage, sizeOfHeaders uint32
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		sizeOfImage, sizeOfHeaders = oh.SizeOfImage, oh.SizeOfHeaders
	case *pe.OptionalHeader64:
		sizeOfImage, sizeOfHeaders = oh.SizeOfImage, oh.SizeOfHeaders
	default:
		return nil, errors.New("missing optional header")
	}

	if sizeOfImage == 0 {
		return nil, errors.New("SizeOfImage is zero")
	}
	if uint64(sizeOfImage) > maxImageSize {
		return nil, fmt.Errorf("SizeOfImage 0x%X too large", sizeOfImage)
	}

	buf := make([]byte, sizeOfImage)

	hdr := min(uint64(sizeOfHeaders), uint64(len(raw)), uint64(sizeOfImage))
	copy(buf, raw[:hdr])

	for _, s := range f.Sections {
		if s.Size == 0 {
			continue
		}
		if uint64(s.Offset)+uint64(s.Size) > uint64(len(raw)) {
			return nil, fmt.Errorf("section %s raw data outside file", s.Name)
		}
		if uint64(s.VirtualAddress) >= uint64(sizeOfImage) {
			return nil, fmt.Errorf("section %s VA 0x%X outside image", s.Name, s.VirtualAddress)
		}

		// Raw data beyond VirtualSize is file padding.
		n := uint64(s.Size)
		if s.VirtualSize != 0 && uint64(s.VirtualSize) < n {
			n = uint64(s.VirtualSize)
		}
		end := min(uint64(s.VirtualAddress)+n, uint64(sizeOfImage))
		copy(buf[s.VirtualAddress:end], raw[s.Offset:uint64(s.Offset)+n])
	}

	return buf, nil
}

// machineOffset returns the offset of the COFF Machine field, or -1 when
// the DOS header is missing or points outside data.
func machineOffset(data []byte) int {
	if len(data) < 0x40 || data[0] != 'M' || data[1] != 'Z' {
		return -1
	}
	off := uint64(binary.LittleEndian.Uint32(data[0x3C:0x40])) + 4
	if off+2 > uint64(len(data)) {
		return -1
	}
	return int(off)
}

func fileMachine(data []byte) uint16 {
	off := machineOffset(data)
	if off < 0 {
		return pe.IMAGE_FILE_MACHINE_UNKNOWN
	}
	return binary.LittleEndian.Uint16(data[off:])
}

// headerReader returns a reader over data for the header parser, which
// only accepts x86, x64 and ARM32 images. Any other machine, ARM64 among
// them, reads as IMAGE_FILE_MACHINE_UNKNOWN. The layout of the remaining
// headers does not depend on the machine.
func headerReader(data []byte, machine uint16) io.ReaderAt {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_UNKNOWN, pe.IMAGE_FILE_MACHINE_I386,
		pe.IMAGE_FILE_MACHINE_AMD64, pe.IMAGE_FILE_MACHINE_ARMNT:
		return bytes.NewReader(data)
	}
	return &maskedMachine{r: bytes.NewReader(data), off: int64(machineOffset(data))}
}

type maskedMachine struct {
	r   *bytes.Reader
	off int64
}

func (m *maskedMachine) ReadAt(p []byte, off int64) (int, error) {
	n, err := m.r.ReadAt(p, off)
	for i := m.off; i < m.off+2; i++ {
		if i >= off && i < off+int64(n) {
			p[i-off] = 0
		}
	}
	return n, err
}

// maxImageSize bounds the allocation for a corrupt SizeOfImage.
const maxImageSize = 1 << 30

// Close releases the mapped buffer. It is safe to call more than once.
func (img *Image) Close() error {
	if img.file == nil {
		return nil
	}
	err := img.file.Close()
	img.file = nil
	img.buf = nil
	img.exports = nil
	img.byName = nil
	return err
}

// Path returns the path the image was loaded from.
func (img *Image) Path() string {
	return img.path
}

// Size returns the size of the mapped buffer in bytes.
func (img *Image) Size() int {
	return len(img.buf)
}

// Bytes returns up to n bytes of the mapped image starting at rva.
func (img *Image) Bytes(rva uint32, n int) []byte {
	if uint64(rva) >= uint64(len(img.buf)) {
		return nil
	}
	end := min(uint64(rva)+uint64(n), uint64(len(img.buf)))
	return img.buf[rva:end]
}
