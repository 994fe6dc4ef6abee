package pe

import (
	"fmt"

	"github.com/Binject/debug/pe"
)

// Info contains the header facts reported alongside an extraction.
type Info struct {
	FilePath     string
	ImageSize    int
	Architecture string
	Machine      uint16
	ImageBase    uint64
	Checksum     *ChecksumInfo
	Exports      int
}

// Info summarizes the image headers.
func (img *Image) Info() *Info {
	info := &Info{
		FilePath:  img.path,
		ImageSize: len(img.buf),
		Checksum:  img.checksum,
	}
	if img.file == nil {
		return info
	}

	info.Machine = img.machine
	info.Architecture = getArchitecture(img.machine)

	switch oh := img.file.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		info.ImageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		info.ImageBase = oh.ImageBase
	}

	if names, err := img.ExportedNames(); err == nil {
		info.Exports = len(names)
	}
	return info
}

// DecodeMode returns the x86 decoder width for the image: 32, 64, or 0 when
// the machine is not x86.
func (img *Image) DecodeMode() int {
	if img.file == nil {
		return 0
	}
	switch img.machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return 32
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return 64
	default:
		return 0
	}
}

func getArchitecture(machine uint16) string {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x64"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "ARM64"
	default:
		return fmt.Sprintf("unknown (0x%X)", machine)
	}
}
