package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Rendering
//
// One File renders to either dialect.  GAS output reverses operand order,
// prefixes registers with % and immediates with $, and derives size suffixes
// from Instruction.Size; Intel output keeps the stored form and adds memory
// size keywords.
// ---------------------------------------------------------------------------

var gasSuffix = map[int]string{1: "b", 2: "w", 4: "l", 8: "q"}
var intelSizeKeyword = map[int]string{1: "byte", 2: "word", 4: "dword", 8: "qword"}

// Render produces the final text.  The first call seals the file; later
// calls return the cached result.
func (f *File) Render(fl Flavor) string {
	if f.sealed {
		return f.rendered
	}

	var b strings.Builder
	line := 0
	writeln := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
		line++
	}

	if fl == Intel {
		writeln("bits 64")
		writeln("default rel")
		writeln("")
	}
	for _, g := range f.Globals {
		if fl == Intel {
			writeln("global " + g)
		} else {
			writeln(".globl " + g)
		}
	}
	if fl == Intel {
		for _, e := range f.Externs {
			writeln("extern " + e)
		}
	}
	if len(f.Globals) > 0 || (fl == Intel && len(f.Externs) > 0) {
		writeln("")
	}

	if f.Data.Len() > 0 {
		if fl == Intel {
			writeln("section .data")
		} else {
			writeln(".data")
		}
		for _, it := range f.Data.items {
			renderData(writeln, fl, it)
		}
		writeln("")
	}
	if f.Bss.Len() > 0 {
		if fl == Intel {
			writeln("section .bss")
		}
		for _, it := range f.Bss.items {
			renderData(writeln, fl, it)
		}
		writeln("")
	}

	if fl == Intel {
		writeln("section .text")
	} else {
		writeln(".text")
	}

	f.textLines = make([]int, len(f.Text.items))
	for i, it := range f.Text.items {
		f.textLines[i] = line + 1
		switch it.kind {
		case itemLabel:
			writeln(it.label + ":")
		case itemInst:
			writeln(renderInst(fl, it.inst))
		case itemData:
			renderData(writeln, fl, it)
		}
	}

	f.sealed = true
	f.rendered = b.String()
	return f.rendered
}

func renderData(writeln func(string), fl Flavor, it item) {
	d := it.data
	if fl == Intel {
		switch d.Kind {
		case DataQuad:
			writeln(fmt.Sprintf("    %s: dq %d", it.label, d.Quad))
		case DataFloat64:
			writeln(fmt.Sprintf("    %s: dq %s", it.label, formatFloat(d.Float)))
		case DataFloat32:
			writeln(fmt.Sprintf("    %s: dd %s", it.label, formatFloat(d.Float)))
		case DataAsciz:
			writeln(fmt.Sprintf("    %s: db %s, 0", it.label, nasmQuote(d.Str)))
		case DataReserve:
			writeln(fmt.Sprintf("    %s: resb %d", it.label, d.Bytes))
		}
		return
	}
	switch d.Kind {
	case DataQuad:
		writeln(it.label + ":")
		writeln(fmt.Sprintf("    .quad %d", d.Quad))
	case DataFloat64:
		writeln(it.label + ":")
		writeln(fmt.Sprintf("    .double %s", formatFloat(d.Float)))
	case DataFloat32:
		writeln(it.label + ":")
		writeln(fmt.Sprintf("    .float %s", formatFloat(d.Float)))
	case DataAsciz:
		writeln(it.label + ":")
		writeln(fmt.Sprintf("    .asciz %s", gasQuote(d.Str)))
	case DataReserve:
		writeln(fmt.Sprintf(".lcomm %s, %d", it.label, d.Bytes))
	}
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func renderInst(fl Flavor, in Instruction) string {
	var s string
	if fl == Intel {
		s = renderInstIntel(in)
	} else {
		s = renderInstGAS(in)
	}
	if in.Comment != "" {
		if fl == Intel {
			s += " ; " + in.Comment
		} else {
			s += " # " + in.Comment
		}
	}
	return s
}

func renderInstIntel(in Instruction) string {
	if len(in.Operands) == 0 {
		return "    " + in.Mnemonic
	}
	size := in.Size
	if in.Mnemonic == "lea" {
		// NASM rejects a size keyword on the address operand of lea.
		size = 0
	}
	parts := make([]string, len(in.Operands))
	for i, op := range in.Operands {
		parts[i] = renderOperandIntel(op, size)
	}
	return "    " + in.Mnemonic + " " + strings.Join(parts, ", ")
}

func renderOperandIntel(op Operand, size int) string {
	switch op.Kind {
	case KindReg:
		return op.Reg
	case KindImm:
		return strconv.FormatInt(op.Imm, 10)
	case KindLabel:
		return op.Lbl
	case KindSym:
		return op.Sym
	case KindSymRef:
		return "[rel " + op.Sym + "]"
	case KindMem:
		ref := "[" + intelMem(op.Mem) + "]"
		if kw, ok := intelSizeKeyword[size]; ok && size > 0 {
			return kw + " " + ref
		}
		return ref
	}
	return "?"
}

func intelMem(m Mem) string {
	var b strings.Builder
	if m.Base != "" {
		b.WriteString(m.Base)
	}
	if m.Index != "" {
		if b.Len() > 0 {
			b.WriteByte('+')
		}
		fmt.Fprintf(&b, "%s*%d", m.Index, m.Scale)
	}
	if m.Disp != 0 || b.Len() == 0 {
		if m.Disp >= 0 && b.Len() > 0 {
			b.WriteByte('+')
		}
		fmt.Fprintf(&b, "%d", m.Disp)
	}
	return b.String()
}

func renderInstGAS(in Instruction) string {
	mn := gasMnemonic(in)
	if len(in.Operands) == 0 {
		return "    " + mn
	}
	// AT&T order: source first, destination last.
	parts := make([]string, 0, len(in.Operands))
	for i := len(in.Operands) - 1; i >= 0; i-- {
		parts = append(parts, renderOperandGAS(in.Operands[i]))
	}
	return "    " + mn + " " + strings.Join(parts, ", ")
}

// gasMnemonic converts the stored Intel-style mnemonic to its AT&T form.
func gasMnemonic(in Instruction) string {
	switch in.Mnemonic {
	case "mov":
		// 64-bit immediates need the explicit movabs form under GNU as.
		if in.Size == 8 && len(in.Operands) == 2 && in.Operands[1].Kind == KindImm &&
			(in.Operands[1].Imm < -1<<31 || in.Operands[1].Imm >= 1<<31) {
			return "movabsq"
		}
	case "cqo":
		return "cqto"
	case "cdq":
		return "cltd"
	case "movsxd":
		return "movslq"
	case "movzx":
		// movzx dst, src → movz<srcsize><dstsize>
		src := "b"
		if len(in.Operands) == 2 {
			src = gasSuffix[regWidth(in.Operands[1].Reg)]
		}
		dst := gasSuffix[in.Size]
		if in.Size == 0 {
			dst = "q"
		}
		return "movz" + src + dst
	}
	if sfx, ok := gasSuffix[in.Size]; ok && in.Size > 0 {
		return in.Mnemonic + sfx
	}
	return in.Mnemonic
}

// regWidth infers a register's width in bytes from its name.
func regWidth(name string) int {
	switch {
	case name == "":
		return 8
	case strings.HasSuffix(name, "b") && len(name) > 2,
		name == "al", name == "bl", name == "cl", name == "dl":
		return 1
	case strings.HasSuffix(name, "w") && strings.HasPrefix(name, "r"):
		return 2
	case strings.HasSuffix(name, "d") && strings.HasPrefix(name, "r") && len(name) > 2:
		return 4
	case strings.HasPrefix(name, "e"):
		return 4
	default:
		return 8
	}
}

func renderOperandGAS(op Operand) string {
	switch op.Kind {
	case KindReg:
		return "%" + op.Reg
	case KindImm:
		return "$" + strconv.FormatInt(op.Imm, 10)
	case KindLabel:
		return op.Lbl
	case KindSym:
		return op.Sym
	case KindSymRef:
		return op.Sym + "(%rip)"
	case KindMem:
		return gasMem(op.Mem)
	}
	return "?"
}

func gasMem(m Mem) string {
	var b strings.Builder
	if m.Disp != 0 || (m.Base == "" && m.Index == "") {
		fmt.Fprintf(&b, "%d", m.Disp)
	}
	if m.Base != "" || m.Index != "" {
		b.WriteByte('(')
		if m.Base != "" {
			b.WriteString("%" + m.Base)
		}
		if m.Index != "" {
			fmt.Fprintf(&b, ",%%%s,%d", m.Index, m.Scale)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// String quoting
// ---------------------------------------------------------------------------

func gasQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\\':
			b.WriteString("\\\\")
		case '"':
			b.WriteString("\\\"")
		default:
			if ch < 32 || ch > 126 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func nasmQuote(s string) string {
	if len(s) == 0 {
		return `""`
	}
	var parts []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, fmt.Sprintf("%q", current.String()))
			current.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 32 || ch > 126 || ch == '"' {
			flush()
			parts = append(parts, strconv.Itoa(int(ch)))
		} else {
			current.WriteByte(ch)
		}
	}
	flush()
	return strings.Join(parts, ", ")
}
