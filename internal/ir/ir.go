package ir

// ---------------------------------------------------------------------------
// IR — a typed, block-structured intermediate representation
//
// A Module holds functions; a Function holds basic blocks; a Block holds an
// ordered instruction list and exactly one terminator.  Instructions produce
// at most one value, identified by a ValueID that later instructions
// reference as operands.  The IR is immutable once handed to the translator.
// ---------------------------------------------------------------------------

// ValueID identifies an SSA-like value within a function.
// 0 is reserved and never identifies a real value.
type ValueID uint32

// BlockID identifies a basic block within a function.
// 0 is reserved and never identifies a real block.
type BlockID uint32

const (
	InvalidValue ValueID = 0
	InvalidBlock BlockID = 0
)

// Location is a line:column position in the source the IR was built from.
type Location struct {
	Line int
	Col  int
}

// Module is the root container for one compilation unit.
type Module struct {
	Name      string
	Functions []*Function
}

// Function is a typed function made of basic blocks.
// Blocks[0] is the entry block.
type Function struct {
	Name   string
	Params []Param
	Return Type
	Blocks []*Block
	Loc    Location
}

// Param is a named, typed function parameter.  Its ID makes the incoming
// value referenceable from instructions.
type Param struct {
	ID   ValueID
	Name string
	Type Type
}

// Block is a basic block: an id, a label name, an ordered instruction list
// and exactly one terminator.
type Block struct {
	ID     BlockID
	Name   string
	Instrs []Instr
	Term   Term
	Loc    Location
}

// Entry returns the function's entry block, or nil for a bodyless function.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// BlockByID resolves a block id within the function.
func (f *Function) BlockByID(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}
