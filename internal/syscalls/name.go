// Package syscalls extracts the Nt* system-call stubs exported by ntdll.dll
// and win32u.dll and numbers them in address order.
package syscalls

const syscallPrefix = "Nt"

// IsSyscallName reports whether an export name looks like a syscall stub:
// the "Nt" prefix followed by an uppercase letter. NtUserSetWindowLongPtr
// qualifies, NtdllDefWindowProc_A does not.
func IsSyscallName(name string) bool {
	if len(name) < len(syscallPrefix)+1 {
		return false
	}
	if name[:len(syscallPrefix)] != syscallPrefix {
		return false
	}
	c := name[len(syscallPrefix)]
	return c >= 'A' && c <= 'Z'
}
