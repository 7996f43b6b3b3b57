// Package asm models an assembly file as a value: named sections populated
// append-only with labels, instructions and data, then rendered once to
// assembler-ready text in either GAS (AT&T) or Intel (NASM) flavor.
package asm

import "fmt"

// Flavor selects the output dialect.
type Flavor int

const (
	GAS   Flavor = iota // AT&T syntax for GNU as
	Intel               // Intel syntax for NASM
)

func (f Flavor) String() string {
	if f == Intel {
		return "intel"
	}
	return "gas"
}

// itemKind discriminates section items.
type itemKind int

const (
	itemLabel itemKind = iota
	itemInst
	itemData
)

// DataKind selects the encoding of a data item.
type DataKind int

const (
	DataQuad DataKind = iota
	DataFloat64
	DataFloat32
	DataAsciz
	DataReserve // bss reservation, Bytes long
)

// DataItem is one labeled datum in the data or bss section.
type DataItem struct {
	Kind  DataKind
	Quad  int64
	Float float64
	Str   string
	Bytes int
}

type item struct {
	kind  itemKind
	label string
	inst  Instruction
	data  DataItem
}

// Section is an ordered, append-only list of labels, instructions and data.
type Section struct {
	name   string
	items  []item
	sealed *bool
}

// AddLabel appends a label definition and returns its item index.
func (s *Section) AddLabel(name string) int {
	s.check()
	s.items = append(s.items, item{kind: itemLabel, label: name})
	return len(s.items) - 1
}

// AddInstruction appends an instruction and returns its item index.
func (s *Section) AddInstruction(in Instruction) int {
	s.check()
	s.items = append(s.items, item{kind: itemInst, inst: in})
	return len(s.items) - 1
}

// AddData appends a labeled datum and returns its item index.
func (s *Section) AddData(label string, d DataItem) int {
	s.check()
	s.items = append(s.items, item{kind: itemData, label: label, data: d})
	return len(s.items) - 1
}

// Len returns the number of items appended so far.
func (s *Section) Len() int { return len(s.items) }

func (s *Section) check() {
	if s.sealed != nil && *s.sealed {
		panic(fmt.Sprintf("asm: append to section %s after render", s.name))
	}
}

// File is one assembly translation unit.
type File struct {
	// Globals and Externs become visibility directives in the header.
	Globals []string
	Externs []string

	Text Section
	Data Section
	Bss  Section

	sealed    bool
	rendered  string
	textLines []int // absolute 1-based output line per Text item
}

// NewFile returns an empty assembly file.
func NewFile() *File {
	f := &File{}
	f.Text = Section{name: "text", sealed: &f.sealed}
	f.Data = Section{name: "data", sealed: &f.sealed}
	f.Bss = Section{name: "bss", sealed: &f.sealed}
	return f
}

// Global marks a symbol as externally visible.
func (f *File) Global(name string) { f.Globals = append(f.Globals, name) }

// Extern declares a symbol resolved at link time.
func (f *File) Extern(name string) {
	for _, e := range f.Externs {
		if e == name {
			return
		}
	}
	f.Externs = append(f.Externs, name)
}

// TextItemLine returns the absolute 1-based line number the given text-section
// item landed on.  Valid only after Render.
func (f *File) TextItemLine(idx int) int {
	if !f.sealed || idx < 0 || idx >= len(f.textLines) {
		return 0
	}
	return f.textLines[idx]
}
