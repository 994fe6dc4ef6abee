//go:build windows

package sysroot

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32                        = windows.NewLazySystemDLL("kernel32.dll")
	procWow64DisableWow64FsRedirection = modkernel32.NewProc("Wow64DisableWow64FsRedirection")
	procWow64RevertWow64FsRedirection  = modkernel32.NewProc("Wow64RevertWow64FsRedirection")
)

func expand(path string) string {
	src, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return path
	}

	buf := make([]uint16, windows.MAX_PATH)
	for {
		n, err := windows.ExpandEnvironmentStrings(src, &buf[0], uint32(len(buf)))
		if err != nil || n == 0 {
			return path
		}
		if n <= uint32(len(buf)) {
			return windows.UTF16ToString(buf[:n])
		}
		buf = make([]uint16, n)
	}
}

type wow64Redirection struct {
	old      uintptr
	disabled bool
}

// DisableRedirection turns off WOW64 file-system redirection for the calling
// thread so that System32 paths reach the native DLLs. It is a no-op for
// processes not running under WOW64. While redirection is disabled the
// calling goroutine stays locked to its OS thread, so Revert must be called
// from the same goroutine.
func DisableRedirection() (Redirection, error) {
	r := &wow64Redirection{}

	var isWow64 bool
	if err := windows.IsWow64Process(windows.CurrentProcess(), &isWow64); err != nil || !isWow64 {
		return r, nil
	}
	if err := procWow64DisableWow64FsRedirection.Find(); err != nil {
		return r, nil
	}

	runtime.LockOSThread()
	ret, _, err := procWow64DisableWow64FsRedirection.Call(uintptr(unsafe.Pointer(&r.old)))
	if ret == 0 {
		runtime.UnlockOSThread()
		return r, fmt.Errorf("Wow64DisableWow64FsRedirection: %w", err)
	}
	r.disabled = true
	return r, nil
}

func (r *wow64Redirection) Revert() error {
	if !r.disabled {
		return nil
	}
	r.disabled = false
	defer runtime.UnlockOSThread()

	ret, _, err := procWow64RevertWow64FsRedirection.Call(r.old)
	if ret == 0 {
		return fmt.Errorf("Wow64RevertWow64FsRedirection: %w", err)
	}
	return nil
}
