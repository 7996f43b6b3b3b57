package ir

import "fmt"

// ---------------------------------------------------------------------------
// Structural validation
//
// Validate is run before any translation so that broken control flow is
// rejected up front rather than discovered mid-emission.
// ---------------------------------------------------------------------------

// ValidationError describes a structural defect in a module.
type ValidationError struct {
	Function string
	Block    BlockID
	Loc      Location
	Msg      string
}

func (e *ValidationError) Error() string {
	if e.Block != InvalidBlock {
		return fmt.Sprintf("invalid IR in %s (block b%d, %d:%d): %s",
			e.Function, e.Block, e.Loc.Line, e.Loc.Col, e.Msg)
	}
	return fmt.Sprintf("invalid IR in %s: %s", e.Function, e.Msg)
}

// Validate checks every function for structural soundness: a present entry
// block, unique block ids, exactly one terminator per block, and terminator
// targets that resolve within the same function.
func Validate(m *Module) error {
	for _, fn := range m.Functions {
		if err := validateFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func validateFunction(fn *Function) error {
	if len(fn.Blocks) == 0 {
		return &ValidationError{Function: fn.Name, Msg: "function has no blocks"}
	}

	ids := make(map[BlockID]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if b.ID == InvalidBlock {
			return &ValidationError{Function: fn.Name, Block: b.ID, Loc: b.Loc,
				Msg: "block uses the reserved id 0"}
		}
		if ids[b.ID] {
			return &ValidationError{Function: fn.Name, Block: b.ID, Loc: b.Loc,
				Msg: fmt.Sprintf("duplicate block id b%d", b.ID)}
		}
		ids[b.ID] = true
	}

	for _, b := range fn.Blocks {
		if b.Term.Kind == TermNone {
			return &ValidationError{Function: fn.Name, Block: b.ID, Loc: b.Loc,
				Msg: "block has no terminator"}
		}
		for _, succ := range b.Term.Successors() {
			if !ids[succ] {
				return &ValidationError{Function: fn.Name, Block: b.ID, Loc: b.Term.Loc,
					Msg: fmt.Sprintf("terminator targets unknown block b%d", succ)}
			}
		}
		if b.Term.Kind == TermReturn && b.Term.HasValue && fn.Return == Void {
			return &ValidationError{Function: fn.Name, Block: b.ID, Loc: b.Term.Loc,
				Msg: "return carries a value in a void function"}
		}
	}
	return nil
}
