package asm

// ---------------------------------------------------------------------------
// Instructions and operands
//
// Instructions are stored flavor-neutral: Intel-style mnemonics with the
// destination operand first.  The renderer takes care of AT&T operand order,
// register/immediate sigils and size suffixes.
// ---------------------------------------------------------------------------

// OperandKind discriminates Operand.
type OperandKind int

const (
	KindReg    OperandKind = iota // a physical register
	KindImm                       // an immediate integer
	KindMem                       // a memory reference
	KindLabel                     // a local label (jump target)
	KindSym                       // a bare symbol (call target)
	KindSymRef                    // a rip-relative reference to a symbol
)

// Mem is a memory reference: [base + index*scale + disp].
// Base and Index are optional; Scale must be 1, 2, 4 or 8 when Index is set.
type Mem struct {
	Base  string
	Index string
	Scale int
	Disp  int64
}

// Operand is one operand of an assembly instruction.
type Operand struct {
	Kind OperandKind
	Reg  string
	Imm  int64
	Mem  Mem
	Sym  string // KindSym / KindSymRef
	Lbl  string // KindLabel
}

// Constructors.
func Reg(name string) Operand  { return Operand{Kind: KindReg, Reg: name} }
func Imm(v int64) Operand      { return Operand{Kind: KindImm, Imm: v} }
func Label(name string) Operand { return Operand{Kind: KindLabel, Lbl: name} }
func Sym(name string) Operand  { return Operand{Kind: KindSym, Sym: name} }
func SymRef(name string) Operand { return Operand{Kind: KindSymRef, Sym: name} }
func Memory(m Mem) Operand     { return Operand{Kind: KindMem, Mem: m} }

// BaseDisp is shorthand for the common [base + disp] reference.
func BaseDisp(base string, disp int64) Operand {
	return Operand{Kind: KindMem, Mem: Mem{Base: base, Disp: disp}}
}

// Instruction is one assembly instruction: a mnemonic, its operands in
// Intel order (destination first) and an optional trailing comment.
// Size is the integer operand width in bytes and selects the AT&T suffix
// and Intel memory-size keyword; 0 means the mnemonic already carries its
// width (SSE moves, setcc, jumps).
type Instruction struct {
	Mnemonic string
	Size     int
	Operands []Operand
	Comment  string
}

// Inst builds an instruction value.
func Inst(mnemonic string, size int, ops ...Operand) Instruction {
	return Instruction{Mnemonic: mnemonic, Size: size, Operands: ops}
}

// WithComment returns a copy of the instruction carrying a comment.
func (i Instruction) WithComment(c string) Instruction {
	i.Comment = c
	return i
}
