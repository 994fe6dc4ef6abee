package syscalls

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ZacharyZcR/SyscallExtract/internal/sysroot"
)

// DefaultOutput is the file written when no output path is given.
const DefaultOutput = "syscalls.txt"

// Win32uStartID is the first ID given to win32u.dll stubs. It is a fixed gap,
// not derived from the number of ntdll.dll stubs.
const Win32uStartID = 0x1000

// Source is one image to extract from.
type Source struct {
	// Path may start with %SystemRoot%.
	Path    string
	StartID uint64
}

// DefaultSources returns ntdll.dll and win32u.dll from System32.
func DefaultSources() []Source {
	return []Source{
		{Path: sysroot.Ref + `\system32\ntdll.dll`, StartID: 0},
		{Path: sysroot.Ref + `\system32\win32u.dll`, StartID: Win32uStartID},
	}
}

// Config holds the options of one extraction run.
type Config struct {
	OutputPath string
	// SystemRoot replaces %SystemRoot% when set.
	SystemRoot string
	Sources    []Source
	Verify     bool
}

// DefaultConfig returns the configuration used with no arguments.
func DefaultConfig() Config {
	return Config{
		OutputPath: DefaultOutput,
		Sources:    DefaultSources(),
	}
}

// Report is the outcome of a successful Run.
type Report struct {
	OutputPath string
	Total      int
	Size       int
	Results    []Result
}

// Extract runs every source through a new Extractor with file-system
// redirection disabled, and returns the extractor and the total count.
func Extract(cfg Config, log zerolog.Logger) (*Extractor, int) {
	redir, err := sysroot.DisableRedirection()
	if err != nil {
		log.Warn().Err(err).Msg("could not disable file system redirection")
	}
	defer func() {
		if err := redir.Revert(); err != nil {
			log.Warn().Err(err).Msg("could not restore file system redirection")
		}
	}()

	ex := NewExtractor(log, cfg.Verify)
	total := 0
	for i, src := range cfg.Sources {
		path := sysroot.Resolve(src.Path, cfg.SystemRoot)
		n := ex.ExtractFromDLL(path, src.StartID)
		total += n

		if i+1 < len(cfg.Sources) {
			next := cfg.Sources[i+1].StartID
			if next > src.StartID && uint64(n) > next-src.StartID {
				log.Warn().
					Str("path", path).
					Int("count", n).
					Str("next_start", fmt.Sprintf("0x%x", next)).
					Msg("IDs overlap the next source")
			}
		}
	}
	return ex, total
}

// Run extracts the configured sources and writes the table to
// cfg.OutputPath. When nothing was extracted it returns
// ErrNoSyscallsExtracted and leaves the output file untouched.
func Run(cfg Config, log zerolog.Logger) (*Report, error) {
	if cfg.OutputPath == "" {
		cfg.OutputPath = DefaultOutput
	}

	ex, total := Extract(cfg, log)
	if total == 0 {
		return nil, ErrNoSyscallsExtracted
	}

	data := ex.Bytes()
	if err := os.WriteFile(cfg.OutputPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", cfg.OutputPath, err)
	}

	return &Report{
		OutputPath: cfg.OutputPath,
		Total:      total,
		Size:       len(data),
		Results:    ex.Results(),
	}, nil
}
