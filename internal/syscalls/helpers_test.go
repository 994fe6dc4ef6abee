package syscalls

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func testLogger(t *testing.T) (zerolog.Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	return zerolog.New(&buf).Level(zerolog.DebugLevel), &buf
}
