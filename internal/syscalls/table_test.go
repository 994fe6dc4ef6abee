package syscalls

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderOrdersByAddress(t *testing.T) {
	table := NewTable()
	table.Put(0x200, "NtClose")
	table.Put(0x100, "NtCreateFile")

	text, next := Render(table, 0)

	assert.Equal(t, "0x0,NtCreateFile\n0x1,NtClose\n", text)
	assert.Equal(t, uint64(2), next)
}

func TestRenderStartID(t *testing.T) {
	table := NewTable()
	for i := uint32(0); i < 17; i++ {
		table.Put(0x1000+i*0x20, "NtUserStub")
	}

	text, next := Render(table, Win32uStartID)

	lines := splitLines(text)
	assert.Len(t, lines, 17)
	assert.Equal(t, "0x1000,NtUserStub", lines[0])
	assert.Equal(t, "0x100a,NtUserStub", lines[10])
	assert.Equal(t, "0x1010,NtUserStub", lines[16])
	assert.Equal(t, uint64(0x1011), next)
}

func TestRenderEmpty(t *testing.T) {
	tests := []struct {
		name    string
		startID uint64
	}{
		{name: "start at zero", startID: 0},
		{name: "start at win32u base", startID: Win32uStartID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, next := Render(NewTable(), tt.startID)
			assert.Empty(t, text)
			assert.Equal(t, tt.startID, next)
		})
	}
}

func TestTableLastWriteWins(t *testing.T) {
	table := NewTable()
	table.Put(0x300, "NtFirst")
	table.Put(0x300, "NtSecond")
	table.Put(0x100, "NtLow")

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []Entry{
		{RVA: 0x100, Name: "NtLow"},
		{RVA: 0x300, Name: "NtSecond"},
	}, table.Entries())
}
