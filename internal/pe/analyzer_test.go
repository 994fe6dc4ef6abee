package pe

import (
	"testing"

	"github.com/Binject/debug/pe"
	"github.com/stretchr/testify/assert"

	"github.com/ZacharyZcR/SyscallExtract/internal/pe/petest"
)

func TestGetArchitecture(t *testing.T) {
	tests := []struct {
		name    string
		machine uint16
		want    string
	}{
		{
			name:    "x86",
			machine: pe.IMAGE_FILE_MACHINE_I386,
			want:    "x86",
		},
		{
			name:    "x64",
			machine: pe.IMAGE_FILE_MACHINE_AMD64,
			want:    "x64",
		},
		{
			name:    "ARM64",
			machine: pe.IMAGE_FILE_MACHINE_ARM64,
			want:    "ARM64",
		},
		{
			name:    "Unknown machine",
			machine: 0x1234,
			want:    "unknown (0x1234)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getArchitecture(tt.machine)
			if got != tt.want {
				t.Errorf("getArchitecture() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageInfo(t *testing.T) {
	img := loadFixture(t, []petest.Func{
		{Name: "NtClose", RVA: 0x1020},
		{Name: "NtOpenFile", RVA: 0x1040},
	})

	info := img.Info()
	assert.Equal(t, "x64", info.Architecture)
	assert.Equal(t, uint64(0x180000000), info.ImageBase)
	assert.Equal(t, 2, info.Exports)
	assert.True(t, info.Checksum.Valid)
	assert.Equal(t, img.Size(), info.ImageSize)
	assert.Equal(t, 64, img.DecodeMode())
}
