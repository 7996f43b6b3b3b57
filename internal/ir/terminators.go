package ir

import "fmt"

// ---------------------------------------------------------------------------
// Terminators
// ---------------------------------------------------------------------------

// TermKind is the closed set of block-terminator shapes.
type TermKind int

const (
	// TermNone marks a block that was never given a terminator.
	// Validation rejects it; the translator never sees one.
	TermNone TermKind = iota
	TermReturn
	TermJump
	TermCondJump
	TermUnreachable
)

// Term ends a basic block.  Exactly one of the field groups is meaningful,
// selected by Kind.
type Term struct {
	Kind TermKind

	// TermReturn
	Value    ValueID
	HasValue bool

	// TermJump
	Target BlockID

	// TermCondJump
	Cond ValueID
	Then BlockID
	Else BlockID

	Loc Location
}

// Successors returns the blocks this terminator may transfer control to.
func (t *Term) Successors() []BlockID {
	switch t.Kind {
	case TermJump:
		return []BlockID{t.Target}
	case TermCondJump:
		return []BlockID{t.Then, t.Else}
	default:
		return nil
	}
}

func (t *Term) String() string {
	switch t.Kind {
	case TermReturn:
		if t.HasValue {
			return fmt.Sprintf("ret %%%d", t.Value)
		}
		return "ret"
	case TermJump:
		return fmt.Sprintf("jmp b%d", t.Target)
	case TermCondJump:
		return fmt.Sprintf("br %%%d, b%d, b%d", t.Cond, t.Then, t.Else)
	case TermUnreachable:
		return "unreachable"
	default:
		return "<no terminator>"
	}
}
