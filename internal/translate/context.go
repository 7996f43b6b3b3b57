package translate

import (
	"fmt"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/asm"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

// ---------------------------------------------------------------------------
// TranslationContext
//
// Owns all mutable state for one module translation.  The symbol table and
// ABI adapter persist for the whole module; the label counter, temporary
// allocator and frame state reset at every function boundary.
// ---------------------------------------------------------------------------

// frameLayout is the per-function stack frame plan, fixed before emission.
//
// Layout below rbp: first the reserved save slots for callee-saved scratch
// registers, then alloca storage, then one 8-byte spill slot per value.
type frameLayout struct {
	slots      map[ir.ValueID]int64 // rbp-relative homes of values
	allocaOffs map[ir.ValueID]int64 // rbp-relative addresses of alloca storage
	size       int64                // bytes the prologue subtracts from rsp
	leaf       bool                 // no calls anywhere in the function
	redZone    bool                 // leaf frame small enough to live in the red zone
}

// Context threads the translation state through one module.
type Context struct {
	Cfg     *Config
	Spec    *abi.Spec
	Adapter AbiAdapter
	Symbols *SymbolTable
	File    *asm.File

	temps      *tempAllocator
	labelCount int

	fn              *ir.Function
	frame           frameLayout
	usedCalleeSaved []string
	consts          map[ir.ValueID]*ir.Instr
	valueType       map[ir.ValueID]ir.Type
	uses            map[ir.ValueID]int
	foldedCmp       map[ir.ValueID]*ir.Instr
}

func newContext(cfg *Config, file *asm.File) *Context {
	c := &Context{
		Cfg:     cfg,
		Spec:    cfg.ABI,
		Symbols: NewSymbolTable(),
		File:    file,
	}
	c.Adapter = NewAdapter(cfg.ABI)
	c.temps = newTempAllocator(cfg.ABI, c.noteCalleeSaved)
	return c
}

// resetForFunction clears all per-function state.  The symbol table is left
// alone so it grows monotonically across the module.
func (c *Context) resetForFunction(fn *ir.Function) {
	c.fn = fn
	c.labelCount = 0
	c.temps.reset()
	c.frame = frameLayout{
		slots:      make(map[ir.ValueID]int64),
		allocaOffs: make(map[ir.ValueID]int64),
	}
	c.usedCalleeSaved = nil
	c.consts = make(map[ir.ValueID]*ir.Instr)
	c.valueType = make(map[ir.ValueID]ir.Type)
	c.uses = make(map[ir.ValueID]int)
	c.foldedCmp = make(map[ir.ValueID]*ir.Instr)
}

func (c *Context) noteCalleeSaved(reg string) {
	for _, r := range c.usedCalleeSaved {
		if r == reg {
			return
		}
	}
	c.usedCalleeSaved = append(c.usedCalleeSaved, reg)
}

// calleeSaveOffset is the reserved frame slot for a callee-saved scratch
// register, fixed by its position in the convention's list.
func (c *Context) calleeSaveOffset(reg string) int64 {
	for i, r := range c.Spec.ScratchNonVolatile {
		if r == reg {
			return -int64(8 * (i + 1))
		}
	}
	return 0
}

// newLabel issues a function-unique local label.
func (c *Context) newLabel(prefix string) string {
	c.labelCount++
	return fmt.Sprintf(".L%s_%s%d", c.fn.Name, prefix, c.labelCount)
}

// blockLabel is the stable label of a basic block.
func (c *Context) blockLabel(b *ir.Block) string {
	return fmt.Sprintf(".L%s_%s", c.fn.Name, b.Name)
}

// ---------------------------------------------------------------------------
// Pre-emission analysis
// ---------------------------------------------------------------------------

// analyzeFunction walks the function once before emission: it records
// constants and value types, counts uses, decides which comparisons fold
// into their conditional jump, and lays out the stack frame.
func (c *Context) analyzeFunction(fn *ir.Function, paramLocs []ParamLoc) error {
	for _, p := range fn.Params {
		c.valueType[p.ID] = p.Type
	}

	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if in.ID != ir.InvalidValue {
				switch in.Op {
				case ir.OpConst:
					c.consts[in.ID] = in
					c.valueType[in.ID] = in.Type
				case ir.OpAlloca:
					c.valueType[in.ID] = ir.Ptr
				default:
					c.valueType[in.ID] = in.Type
				}
			}
			for _, a := range in.Args {
				c.uses[a]++
			}
		}
		t := &b.Term
		if t.Kind == ir.TermCondJump {
			c.uses[t.Cond]++
		}
		if t.Kind == ir.TermReturn && t.HasValue {
			c.uses[t.Value]++
		}
	}

	// A comparison feeding a conditional jump in its own block, with no
	// other use, is re-emitted as cmp+jcc by the terminator instead of
	// being materialized to 0/1.
	for _, b := range fn.Blocks {
		if b.Term.Kind != ir.TermCondJump {
			continue
		}
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if in.ID == b.Term.Cond && in.Op.IsComparison() && c.uses[in.ID] == 1 {
				c.foldedCmp[in.ID] = in
			}
		}
	}

	// Frame layout.
	cum := int64(8 * len(c.Spec.ScratchNonVolatile))
	c.frame.leaf = true
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if in.Op == ir.OpCall {
				c.frame.leaf = false
			}
			if in.Op == ir.OpAlloca {
				size := int64(in.Type.Size())
				if size < 8 {
					size = 8
				}
				size = (size + 7) &^ 7
				cum += size
				c.frame.allocaOffs[in.ID] = -cum
			}
		}
	}
	// Parameter homes: register parameters spill next to locals; stack
	// parameters stay in the caller's frame at positive offsets.
	for i, p := range fn.Params {
		if paramLocs[i].InReg {
			cum += 8
			c.frame.slots[p.ID] = -cum
		} else {
			c.frame.slots[p.ID] = paramLocs[i].Offset
		}
	}
	// One spill slot per produced value, except constants (re-materialized
	// at each use), allocas (addresses are recomputed) and folded
	// comparisons (never materialized).
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if in.ID == ir.InvalidValue {
				continue
			}
			switch in.Op {
			case ir.OpConst, ir.OpAlloca:
				continue
			}
			if _, folded := c.foldedCmp[in.ID]; folded {
				continue
			}
			if in.Op == ir.OpCall && in.Type == ir.Void {
				continue
			}
			cum += 8
			c.frame.slots[in.ID] = -cum
		}
	}

	c.frame.size = (cum + 15) &^ 15
	if c.frame.size > int64(c.Cfg.FrameLimit) {
		return errf(ErrStackOverflow, fn.Name, fn.Loc,
			"frame of %d bytes exceeds the %d byte limit", c.frame.size, c.Cfg.FrameLimit)
	}
	c.frame.redZone = c.frame.leaf && c.Spec.RedZone > 0 && c.frame.size <= int64(c.Spec.RedZone)
	return nil
}
