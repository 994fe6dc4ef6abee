//go:build !windows

package sysroot

import (
	"os"
	"strings"
)

// expand replaces %NAME% references with environment values. Unset
// variables are left as written.
func expand(path string) string {
	var sb strings.Builder
	for {
		start := strings.IndexByte(path, '%')
		if start < 0 {
			break
		}
		end := strings.IndexByte(path[start+1:], '%')
		if end < 0 {
			break
		}
		end += start + 1

		name := path[start+1 : end]
		if v, ok := os.LookupEnv(name); ok && name != "" {
			sb.WriteString(path[:start])
			sb.WriteString(v)
		} else {
			sb.WriteString(path[:end+1])
		}
		path = path[end+1:]
	}
	sb.WriteString(path)
	return sb.String()
}

type noRedirection struct{}

// DisableRedirection is a no-op outside Windows.
func DisableRedirection() (Redirection, error) {
	return noRedirection{}, nil
}

func (noRedirection) Revert() error { return nil }
