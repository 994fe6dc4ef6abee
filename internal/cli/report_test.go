package cli

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/ZacharyZcR/SyscallExtract/internal/pe"
	"github.com/ZacharyZcR/SyscallExtract/internal/syscalls"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "Bytes", bytes: 512, want: "512 B"},
		{name: "Kilobytes", bytes: 1536, want: "1.5 KiB"},
		{name: "Megabytes", bytes: 3 * 1024 * 1024, want: "3.0 MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSize(tt.bytes); got != tt.want {
				t.Errorf("formatSize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReporterPrint(t *testing.T) {
	color.NoColor = true

	report := &syscalls.Report{
		OutputPath: "syscalls.txt",
		Total:      3,
		Size:       2048,
		Results: []syscalls.Result{
			{Path: `C:\Windows\system32\ntdll.dll`, Info: &pe.Info{Architecture: "x64", Checksum: &pe.ChecksumInfo{Stored: 0x1F2E3, Computed: 0x1F2E4}}, StartID: 0, Count: 3},
			{Path: `C:\Windows\system32\win32u.dll`, StartID: 0x1000},
		},
	}

	var buf bytes.Buffer
	r := NewReporter(report, &buf)
	r.Print()
	assert.Equal(t, "Saved to: syscalls.txt\n", buf.String())

	buf.Reset()
	r.SetVerbose(true)
	r.Print()
	out := buf.String()
	assert.Contains(t, out, "0x0-0x2")
	assert.Contains(t, out, "x64")
	assert.Contains(t, out, "INVALID")
	assert.Contains(t, out, "3 syscalls, 2.0 KiB")
	assert.Contains(t, out, "Saved to: syscalls.txt")
}
