package ir

import (
	"fmt"
	"strings"
)

// DebugDump returns a human-readable listing of the whole module.
func (m *Module) DebugDump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== IR module %s (%d functions) ===\n", m.Name, len(m.Functions))
	for _, fn := range m.Functions {
		b.WriteString("\n")
		b.WriteString(fn.DebugDump())
	}
	return b.String()
}

// DebugDump returns a human-readable listing of one function.
func (f *Function) DebugDump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func @%s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%%%s: %s", p.Name, p.Type)
	}
	fmt.Fprintf(&b, ") -> %s {\n", f.Return)
	for _, blk := range f.Blocks {
		fmt.Fprintf(&b, "%s:  ; b%d\n", blk.Name, blk.ID)
		for i := range blk.Instrs {
			fmt.Fprintf(&b, "  %s\n", blk.Instrs[i].String())
		}
		fmt.Fprintf(&b, "  %s\n", blk.Term.String())
	}
	b.WriteString("}\n")
	return b.String()
}
