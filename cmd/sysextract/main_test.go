package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacharyZcR/SyscallExtract/internal/pe/petest"
	"github.com/ZacharyZcR/SyscallExtract/internal/syscalls"
)

func writeSystemRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "system32")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	ntdll := []petest.Func{
		{Name: "NtClose", RVA: 0x1020, Code: petest.Stub(1)},
		{Name: "NtAccessCheck", RVA: 0x1000, Code: petest.Stub(0)},
	}
	win32u := []petest.Func{
		{Name: "NtUserGetDC", RVA: 0x1000, Code: petest.Stub(0x1000)},
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ntdll.dll"), petest.Build("ntdll.dll", ntdll), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "win32u.dll"), petest.Build("win32u.dll", win32u), 0o644))
	return root
}

func TestRootCmdWritesOutput(t *testing.T) {
	color.NoColor = true

	out := filepath.Join(t.TempDir(), "table.txt")
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--sysroot", writeSystemRoot(t), out})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "0x0,NtAccessCheck\n0x1,NtClose\n0x1000,NtUserGetDC\n", string(data))
	assert.Contains(t, stdout.String(), "Saved to: "+out)
	assert.NotContains(t, stdout.String(), "Optional arg")
}

func TestRootCmdNoArgsPrintsUsage(t *testing.T) {
	color.NoColor = true

	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--sysroot", writeSystemRoot(t)})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "Optional arg: <out path>")
	assert.Contains(t, stdout.String(), "Saved to: syscalls.txt")

	_, err := os.Stat(syscalls.DefaultOutput)
	assert.NoError(t, err)
}

func TestRootCmdNothingExtracted(t *testing.T) {
	color.NoColor = true

	out := filepath.Join(t.TempDir(), "table.txt")
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--sysroot", t.TempDir(), out})
	err := cmd.Execute()

	assert.ErrorIs(t, err, syscalls.ErrNoSyscallsExtracted)
	assert.Contains(t, stderr.String(), "failed to load the PE")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRootCmdTooManyArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"a.txt", "b.txt"})
	assert.Error(t, cmd.Execute())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "Success", err: nil, want: 0},
		{name: "Nothing extracted", err: syscalls.ErrNoSyscallsExtracted, want: -1},
		{name: "Wrapped nothing extracted", err: fmt.Errorf("run: %w", syscalls.ErrNoSyscallsExtracted), want: -1},
		{name: "Other failure", err: errors.New("write syscalls.txt: permission denied"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCodeFromCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--sysroot", t.TempDir(), filepath.Join(t.TempDir(), "table.txt")})
	assert.Equal(t, exitFailure, exitCode(cmd.Execute()))
}
