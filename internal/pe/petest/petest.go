// Package petest synthesizes small PE32+ DLLs for tests.
package petest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Func is one exported function of a synthesized image.
type Func struct {
	Name string
	RVA  uint32
	Code []byte
}

const (
	align    = 0x1000
	textRVA  = 0x1000
	dosSize  = 0x40
	ntOffset = dosSize
	ohSize   = 240

	// DataDirectory offset inside OptionalHeader64.
	dataDirOffset = 112
)

// Stub returns an x64 ntdll-style syscall stub loading number into eax.
func Stub(number uint32) []byte {
	code := []byte{0x4C, 0x8B, 0xD1, 0xB8, 0, 0, 0, 0, 0x0F, 0x05, 0xC3}
	binary.LittleEndian.PutUint32(code[4:8], number)
	return code
}

// Build returns the bytes of an AMD64 DLL exporting funcs. Each function's
// code is placed at its RVA inside .text, which starts at 0x1000. File and
// section alignment are equal, so raw offsets match RVAs.
func Build(dllName string, funcs []Func) []byte {
	return BuildMachine(pe.IMAGE_FILE_MACHINE_AMD64, dllName, funcs)
}

// BuildMachine is Build with the given COFF machine.
func BuildMachine(machine uint16, dllName string, funcs []Func) []byte {
	textEnd := uint32(textRVA + 0x10)
	for _, f := range funcs {
		if end := f.RVA + uint32(len(f.Code)) + 1; end > textEnd {
			textEnd = end
		}
	}
	textSize := alignUp(textEnd-textRVA, align)
	edataRVA := textRVA + textSize

	edata := buildExportData(edataRVA, dllName, funcs)
	edataSize := alignUp(uint32(len(edata)), align)
	sizeOfImage := edataRVA + edataSize

	img := make([]byte, sizeOfImage)

	// DOS header: magic and e_lfanew only.
	copy(img[0:2], "MZ")
	binary.LittleEndian.PutUint32(img[0x3C:0x40], ntOffset)
	copy(img[ntOffset:], "PE\x00\x00")

	var hdr bytes.Buffer
	fh := pe.FileHeader{
		Machine:              machine,
		NumberOfSections:     2,
		SizeOfOptionalHeader: ohSize,
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_LARGE_ADDRESS_AWARE | pe.IMAGE_FILE_DLL,
	}
	oh := pe.OptionalHeader64{
		Magic:                 0x20b,
		SizeOfCode:            textSize,
		BaseOfCode:            textRVA,
		ImageBase:             0x180000000,
		SectionAlignment:      align,
		FileAlignment:         align,
		MajorSubsystemVersion: 6,
		SizeOfImage:           sizeOfImage,
		SizeOfHeaders:         align,
		Subsystem:             pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
		NumberOfRvaAndSizes:   16,
	}
	oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT] = pe.DataDirectory{
		VirtualAddress: edataRVA,
		Size:           uint32(len(edata)),
	}
	sections := []pe.SectionHeader32{
		section(".text", textRVA, textSize, pe.IMAGE_SCN_CNT_CODE|pe.IMAGE_SCN_MEM_EXECUTE|pe.IMAGE_SCN_MEM_READ),
		section(".edata", edataRVA, edataSize, pe.IMAGE_SCN_CNT_INITIALIZED_DATA|pe.IMAGE_SCN_MEM_READ),
	}

	_ = binary.Write(&hdr, binary.LittleEndian, &fh)
	_ = binary.Write(&hdr, binary.LittleEndian, &oh)
	for i := range sections {
		_ = binary.Write(&hdr, binary.LittleEndian, &sections[i])
	}
	copy(img[ntOffset+4:], hdr.Bytes())

	for _, f := range funcs {
		copy(img[f.RVA:], f.Code)
	}
	copy(img[edataRVA:], edata)

	return img
}

// WriteFile builds an image and writes it under t.TempDir().
func WriteFile(t testing.TB, dllName string, funcs []Func) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), dllName)
	if err := os.WriteFile(path, Build(dllName, funcs), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ExportDirRVA returns the export directory RVA of an image made by Build.
func ExportDirRVA(img []byte) uint32 {
	return binary.LittleEndian.Uint32(img[ntOffset+4+20+dataDirOffset:])
}

// Field offsets inside the export directory.
const (
	NumberOfFunctionsField = 20
	NumberOfNamesField     = 24
	AddressOfNamesField    = 32
)

func buildExportData(base uint32, dllName string, funcs []Func) []byte {
	n := uint32(len(funcs))
	funcsRVA := base + 40
	namesRVA := funcsRVA + 4*n
	ordsRVA := namesRVA + 4*n
	stringsRVA := ordsRVA + 2*n

	var strs bytes.Buffer
	nameRVAs := make([]uint32, n)
	for i, f := range funcs {
		nameRVAs[i] = stringsRVA + uint32(strs.Len())
		strs.WriteString(f.Name)
		strs.WriteByte(0)
	}
	dllNameRVA := stringsRVA + uint32(strs.Len())
	strs.WriteString(dllName)
	strs.WriteByte(0)

	var b bytes.Buffer
	dir := []uint32{
		0,          // Characteristics
		0,          // TimeDateStamp
		0,          // MajorVersion, MinorVersion
		dllNameRVA, // Name
		1,          // Base
		n,          // NumberOfFunctions
		n,          // NumberOfNames
		funcsRVA,
		namesRVA,
		ordsRVA,
	}
	_ = binary.Write(&b, binary.LittleEndian, dir)
	for _, f := range funcs {
		_ = binary.Write(&b, binary.LittleEndian, f.RVA)
	}
	_ = binary.Write(&b, binary.LittleEndian, nameRVAs)
	for i := range funcs {
		_ = binary.Write(&b, binary.LittleEndian, uint16(i))
	}
	b.Write(strs.Bytes())
	return b.Bytes()
}

func section(name string, rva, size, characteristics uint32) pe.SectionHeader32 {
	var s pe.SectionHeader32
	copy(s.Name[:], name)
	s.VirtualSize = size
	s.VirtualAddress = rva
	s.SizeOfRawData = size
	s.PointerToRawData = rva
	s.Characteristics = characteristics
	return s
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}
