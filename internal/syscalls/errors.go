package syscalls

import (
	"errors"

	"github.com/ZacharyZcR/SyscallExtract/internal/pe"
)

var (
	// ErrLoadFailed marks a source image that could not be loaded.
	ErrLoadFailed = pe.ErrLoadFailed

	// ErrNoExportsExtracted marks an image that loaded but yielded no stubs.
	ErrNoExportsExtracted = errors.New("no syscalls extracted")

	// ErrNoSyscallsExtracted is returned by Run when every source yielded
	// nothing. No output file is written in that case.
	ErrNoSyscallsExtracted = errors.New("failed to extract syscalls")
)
