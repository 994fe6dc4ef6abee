// Package sysroot resolves paths under the Windows system root and guards
// against WOW64 file-system redirection while they are read.
package sysroot

import (
	"path/filepath"
	"strings"
)

// Ref is the environment reference for the Windows directory.
const Ref = "%SystemRoot%"

// Resolve turns a path written relative to %SystemRoot% into a real path.
// With a non-empty root the reference is replaced by root and backslashes
// become the host separator, so a mounted Windows tree can be read from
// any OS. Otherwise the reference is expanded from the environment.
func Resolve(path, root string) string {
	if root == "" {
		return expand(path)
	}

	rest := path
	if len(path) >= len(Ref) && strings.EqualFold(path[:len(Ref)], Ref) {
		rest = path[len(Ref):]
	}
	rest = strings.TrimLeft(strings.ReplaceAll(rest, `\`, "/"), "/")
	return filepath.Join(root, filepath.FromSlash(rest))
}

// Redirection is the saved file-system redirection state of the process.
// Revert must be called once when the protected reads are done.
type Redirection interface {
	Revert() error
}
