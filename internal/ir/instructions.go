package ir

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// Opcode is the closed set of instruction operations.
type Opcode int

const (
	// Binary operations: Args[0] op Args[1].
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr

	// Comparisons: Args[0] rel Args[1], result is 0 or 1.
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Memory: Load reads *Args[0]; Store writes Args[1] to *Args[0].
	OpLoad
	OpStore

	// OpCall calls Callee with Args as arguments.
	OpCall

	// OpAlloca reserves a stack slot of Type; the result is its address.
	OpAlloca

	// OpConst materializes the constant Int or Float value of Type.
	OpConst
)

var opcodeNames = map[Opcode]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr",
	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpLoad: "load", OpStore: "store", OpCall: "call",
	OpAlloca: "alloca", OpConst: "const",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op_%d", int(op))
}

// ParseOpcode maps an opcode name to its Opcode, reporting whether it is known.
func ParseOpcode(s string) (Opcode, bool) {
	for op, name := range opcodeNames {
		if name == s {
			return op, true
		}
	}
	return 0, false
}

// IsBinary reports whether the opcode is a two-operand arithmetic,
// bitwise or shift operation.
func (op Opcode) IsBinary() bool { return op >= OpAdd && op <= OpShr }

// IsComparison reports whether the opcode is a relational comparison.
func (op Opcode) IsComparison() bool { return op >= OpEq && op <= OpGe }

// Instr is a single IR instruction.  ID is the result value (InvalidValue
// for instructions that produce none, such as Store).  Args reference prior
// results or constants in operand order.
type Instr struct {
	ID     ValueID
	Op     Opcode
	Type   Type
	Args   []ValueID
	Callee string  // OpCall only
	Int    int64   // OpConst integer payload
	Float  float64 // OpConst float payload
	Loc    Location
}

func (in *Instr) String() string {
	var b strings.Builder
	if in.ID != InvalidValue {
		fmt.Fprintf(&b, "%%%d = ", in.ID)
	}
	b.WriteString(in.Op.String())
	if in.Type != Void {
		b.WriteString(" " + in.Type.String())
	}
	switch in.Op {
	case OpConst:
		if in.Type.IsFloat() {
			fmt.Fprintf(&b, " %g", in.Float)
		} else {
			fmt.Fprintf(&b, " %d", in.Int)
		}
	case OpCall:
		fmt.Fprintf(&b, " @%s(", in.Callee)
		for i, a := range in.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%%%d", a)
		}
		b.WriteString(")")
	default:
		for i, a := range in.Args {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %%%d", a)
		}
	}
	return b.String()
}
