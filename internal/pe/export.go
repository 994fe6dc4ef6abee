package pe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Binject/debug/pe"
)

var errClosed = errors.New("image is closed")

// exportDirectory is the IMAGE_EXPORT_DIRECTORY table.
type exportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

const exportDirectorySize = 40

// export is one entry of the name pointer table. Several names may share
// one function slot; each is kept.
type export struct {
	name string
	rva  uint32
}

// loadExports walks the export directory of the mapped image once and
// indexes it by name. Every table is bounds-checked against the buffer, so
// a corrupt directory yields an error instead of a panic.
func (img *Image) loadExports() error {
	if img.file == nil {
		return errClosed
	}
	if img.byName != nil {
		return nil
	}

	exports, err := parseExports(img.buf, exportDataDirectory(img.file))
	if err != nil {
		return fmt.Errorf("read export directory of %s: %w", img.path, err)
	}

	byName := make(map[string]uint32, len(exports))
	for _, e := range exports {
		byName[e.name] = e.rva
	}

	img.exports = exports
	img.byName = byName
	return nil
}

func exportDataDirectory(f *pe.File) pe.DataDirectory {
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
			return oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
			return oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
		}
	}
	return pe.DataDirectory{}
}

// parseExports lists the names of the AddressOfNames table in order with
// the function RVA each resolves to. A name whose ordinal falls outside the
// function table resolves to 0.
func parseExports(buf []byte, dd pe.DataDirectory) ([]export, error) {
	if dd.VirtualAddress == 0 || dd.Size == 0 {
		return nil, nil
	}

	raw, err := tableAt(buf, dd.VirtualAddress, exportDirectorySize, 1)
	if err != nil {
		return nil, fmt.Errorf("export directory: %w", err)
	}
	var dir exportDirectory
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &dir); err != nil {
		return nil, fmt.Errorf("export directory: %w", err)
	}

	if dir.NumberOfNames == 0 {
		return nil, nil
	}

	names, err := tableAt(buf, dir.AddressOfNames, 4, dir.NumberOfNames)
	if err != nil {
		return nil, fmt.Errorf("name pointer table: %w", err)
	}
	ordinals, err := tableAt(buf, dir.AddressOfNameOrdinals, 2, dir.NumberOfNames)
	if err != nil {
		return nil, fmt.Errorf("ordinal table: %w", err)
	}
	funcs, err := tableAt(buf, dir.AddressOfFunctions, 4, dir.NumberOfFunctions)
	if err != nil {
		return nil, fmt.Errorf("function table: %w", err)
	}

	exports := make([]export, 0, dir.NumberOfNames)
	for i := uint32(0); i < dir.NumberOfNames; i++ {
		name := readCString(buf, binary.LittleEndian.Uint32(names[4*i:]))
		if name == "" {
			continue
		}

		var rva uint32
		if ord := uint32(binary.LittleEndian.Uint16(ordinals[2*i:])); ord < dir.NumberOfFunctions {
			rva = binary.LittleEndian.Uint32(funcs[4*ord:])
		}
		exports = append(exports, export{name: name, rva: rva})
	}
	return exports, nil
}

// tableAt returns the count entries of size bytes at rva.
func tableAt(buf []byte, rva, size, count uint32) ([]byte, error) {
	end := uint64(rva) + uint64(size)*uint64(count)
	if rva == 0 || end > uint64(len(buf)) {
		return nil, fmt.Errorf("0x%X entries at RVA 0x%X outside image", count, rva)
	}
	return buf[rva:end], nil
}

// readCString reads a NUL-terminated string at rva. It returns "" when rva
// is outside the buffer or the string is unterminated.
func readCString(buf []byte, rva uint32) string {
	if uint64(rva) >= uint64(len(buf)) {
		return ""
	}
	n := bytes.IndexByte(buf[rva:], 0)
	if n < 0 {
		return ""
	}
	return string(buf[rva : uint64(rva)+uint64(n)])
}

// ExportedNames lists the named exports in name-table order.
// An image without an export directory yields an empty list.
func (img *Image) ExportedNames() ([]string, error) {
	if err := img.loadExports(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(img.exports))
	for _, e := range img.exports {
		names = append(names, e.name)
	}
	return names, nil
}

// ExportedFunc resolves a named export to its RVA. It returns 0 when the
// name is not exported or its address falls outside the image.
func (img *Image) ExportedFunc(name string) uint32 {
	if err := img.loadExports(); err != nil {
		return 0
	}

	rva, ok := img.byName[name]
	if !ok || rva == 0 || uint64(rva) >= uint64(len(img.buf)) {
		return 0
	}
	return rva
}
