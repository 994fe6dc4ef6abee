package syscalls

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// Table maps stub RVAs to export names, ordered by RVA. Putting a name at an
// RVA that is already present replaces the earlier name.
type Table struct {
	m *treemap.Map
}

// Entry is one stub of a Table.
type Entry struct {
	RVA  uint32
	Name string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{m: treemap.NewWith(utils.UInt32Comparator)}
}

// Put records name at rva.
func (t *Table) Put(rva uint32, name string) {
	t.m.Put(rva, name)
}

// Len returns the number of distinct RVAs.
func (t *Table) Len() int {
	return t.m.Size()
}

// Entries returns the stubs in ascending RVA order.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, t.m.Size())
	it := t.m.Iterator()
	for it.Next() {
		entries = append(entries, Entry{
			RVA:  it.Key().(uint32),
			Name: it.Value().(string),
		})
	}
	return entries
}

// Render writes one "0x<id>,<name>" line per entry, numbering from startID
// in RVA order. It returns the text and the ID following the last one used.
func Render(t *Table, startID uint64) (string, uint64) {
	var sb strings.Builder
	id := startID
	for _, e := range t.Entries() {
		fmt.Fprintf(&sb, "0x%x,%s\n", id, e.Name)
		id++
	}
	return sb.String(), id
}
