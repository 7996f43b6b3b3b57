package asm

import (
	"fmt"
	"strings"
)

// MappingVersion is the format version written at the top of mapping files.
const MappingVersion = 1

// MapEntry relates one IR source position to the assembly line it produced
// and the nearest enclosing label.
type MapEntry struct {
	IRLine  int
	IRCol   int
	AsmLine int
	Label   string
}

// Mapping is the optional "IR line:col → assembly line:label" side file.
type Mapping struct {
	Entries []MapEntry
}

// Add appends one entry.
func (m *Mapping) Add(e MapEntry) { m.Entries = append(m.Entries, e) }

// Render produces the versioned textual form of the mapping.
func (m *Mapping) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "jsavrs-map %d\n", MappingVersion)
	for _, e := range m.Entries {
		fmt.Fprintf(&b, "%d:%d -> %d:%s\n", e.IRLine, e.IRCol, e.AsmLine, e.Label)
	}
	return b.String()
}
