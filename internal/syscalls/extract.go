package syscalls

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ZacharyZcR/SyscallExtract/internal/pe"
	"github.com/ZacharyZcR/SyscallExtract/internal/stub"
)

// ExportSource is the part of a loaded image the filter needs.
type ExportSource interface {
	ExportedNames() ([]string, error)
	ExportedFunc(name string) uint32
}

// Filter collects the syscall stubs of an image into a Table. Names that do
// not resolve to an address are skipped. An image whose names cannot be
// listed yields an empty table.
func Filter(src ExportSource) *Table {
	t := NewTable()

	names, err := src.ExportedNames()
	if err != nil {
		return t
	}

	for _, name := range names {
		if !IsSyscallName(name) {
			continue
		}
		rva := src.ExportedFunc(name)
		if rva == 0 {
			continue
		}
		t.Put(rva, name)
	}
	return t
}

// Result describes the extraction from one source image.
type Result struct {
	Path    string
	Info    *pe.Info
	StartID uint64
	Count   int
	Err     error
}

// LastID returns the last ID assigned, or StartID when nothing was extracted.
func (r Result) LastID() uint64 {
	if r.Count == 0 {
		return r.StartID
	}
	return r.StartID + uint64(r.Count) - 1
}

// Extractor accumulates the rendered tables of several images.
type Extractor struct {
	log     zerolog.Logger
	verify  bool
	out     bytes.Buffer
	results []Result
}

// NewExtractor creates an extractor. With verify set, each stub's decoded
// service number is compared with the ID it was given.
func NewExtractor(log zerolog.Logger, verify bool) *Extractor {
	return &Extractor{log: log, verify: verify}
}

// ExtractFromDLL loads the image at path, renders its stubs numbered from
// startID and appends them to the output. It returns the number of stubs
// rendered. Load failures and empty images are logged, not returned.
func (e *Extractor) ExtractFromDLL(path string, startID uint64) int {
	res := Result{Path: path, StartID: startID}
	defer func() { e.results = append(e.results, res) }()

	img, err := pe.Load(path)
	if err != nil {
		res.Err = err
		e.log.Error().Err(err).Str("path", path).Msg("failed to load the PE")
		return 0
	}
	defer func() { _ = img.Close() }()

	res.Info = img.Info()
	if cs := res.Info.Checksum; cs != nil && !cs.Valid {
		e.log.Warn().
			Str("path", path).
			Str("stored", fmt.Sprintf("0x%08x", cs.Stored)).
			Str("computed", fmt.Sprintf("0x%08x", cs.Computed)).
			Msg("image checksum mismatch")
	}

	if _, err := img.ExportedNames(); err != nil {
		res.Err = err
		e.log.Warn().Err(err).Str("path", path).Msg("unreadable export directory")
	}

	table := Filter(img)
	text, _ := Render(table, startID)
	e.out.WriteString(text)
	res.Count = table.Len()

	if res.Count == 0 {
		if res.Err == nil {
			res.Err = fmt.Errorf("%w from %s", ErrNoExportsExtracted, path)
		}
		e.log.Warn().Str("path", path).Msg("no syscalls extracted")
		return 0
	}

	e.log.Debug().
		Str("path", path).
		Str("arch", res.Info.Architecture).
		Int("count", res.Count).
		Str("first", fmt.Sprintf("0x%x", res.StartID)).
		Str("last", fmt.Sprintf("0x%x", res.LastID())).
		Msg("extracted syscalls")

	if e.verify {
		e.verifyStubs(img, table, startID)
	}
	return res.Count
}

// verifyStubs warns about stubs whose "mov eax, imm32" disagrees with the
// assigned ID. Images that are not x86 or x64 are skipped.
func (e *Extractor) verifyStubs(img *pe.Image, table *Table, startID uint64) {
	mode := img.DecodeMode()
	if mode == 0 {
		e.log.Debug().Str("path", img.Path()).Msg("stub verification skipped for this architecture")
		return
	}

	mismatches := 0
	id := startID
	for _, entry := range table.Entries() {
		number, ok := stub.DecodeNumber(img.Bytes(entry.RVA, 32), mode)
		if !ok {
			e.log.Debug().Str("name", entry.Name).Msg("stub has no service number")
		} else if uint64(number)&stub.ServiceMask != id&stub.ServiceMask {
			mismatches++
			e.log.Warn().
				Str("name", entry.Name).
				Str("id", fmt.Sprintf("0x%x", id)).
				Str("stub", fmt.Sprintf("0x%x", number)).
				Msg("service number differs from assigned ID")
		}
		id++
	}

	e.log.Info().Str("path", img.Path()).Int("mismatches", mismatches).Msg("stub verification done")
}

// Bytes returns the text rendered so far.
func (e *Extractor) Bytes() []byte {
	return e.out.Bytes()
}

// Results returns one Result per ExtractFromDLL call, in call order.
func (e *Extractor) Results() []Result {
	return e.results
}
