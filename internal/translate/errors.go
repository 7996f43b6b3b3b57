package translate

import (
	"fmt"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

// ---------------------------------------------------------------------------
// Error taxonomy
//
// Every error is fatal to the whole translation; there is no local recovery.
// Each carries the IR location and offending construct so the first failure
// in deterministic traversal order is actionable on its own.
// ---------------------------------------------------------------------------

// ErrorKind classifies translation failures.
type ErrorKind int

const (
	ErrUnsupportedInstruction ErrorKind = iota
	ErrUnsupportedType
	ErrRegisterAllocation // defensive; should be unreachable
	ErrStackOverflow
	ErrInvalidOperand
	ErrAbiViolation
	ErrAssemblerFailure
)

var errorKindNames = map[ErrorKind]string{
	ErrUnsupportedInstruction: "unsupported instruction",
	ErrUnsupportedType:        "unsupported type",
	ErrRegisterAllocation:     "register allocation failed",
	ErrStackOverflow:          "stack frame too large",
	ErrInvalidOperand:         "invalid operand",
	ErrAbiViolation:           "ABI violation",
	ErrAssemblerFailure:       "assembler failure",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return "unknown error"
}

// Error is the shared compiler-error representation of the backend.
type Error struct {
	Kind      ErrorKind
	Function  string
	Loc       ir.Location
	Construct string // the offending IR construct, rendered
	Err       error  // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Construct != "" {
		msg += ": " + e.Construct
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Function != "" {
		if e.Loc.Line > 0 {
			return fmt.Sprintf("%s (in @%s at %d:%d)", msg, e.Function, e.Loc.Line, e.Loc.Col)
		}
		return fmt.Sprintf("%s (in @%s)", msg, e.Function)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// errf builds an Error for a construct inside the current function.
func errf(kind ErrorKind, fn string, loc ir.Location, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Function: fn, Loc: loc, Construct: fmt.Sprintf(format, args...)}
}
