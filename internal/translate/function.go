package translate

import (
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/asm"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

// ---------------------------------------------------------------------------
// FunctionTranslator
//
// Drives one function: parameter mapping, frame analysis, block translation
// in reverse post-order, then a flush that wraps the buffered body with the
// adapter's prologue and expands epilogue markers.  Buffering the body first
// lets the prologue know which callee-saved scratch registers were touched.
// ---------------------------------------------------------------------------

type bodyKind int

const (
	bodyInst bodyKind = iota
	bodyLabel
	bodyEpilogue
)

type bodyEntry struct {
	kind   bodyKind
	label  string
	inst   asm.Instruction
	loc    ir.Location
	hasLoc bool
}

type fnTranslator struct {
	tr  *moduleTranslator
	ctx *Context
	fn  *ir.Function

	body       []bodyEntry
	pendingLoc *ir.Location
}

func (tr *moduleTranslator) translateFunction(fn *ir.Function) error {
	ctx := tr.ctx
	ctx.resetForFunction(fn)

	locs, err := ctx.Adapter.MapParameters(fn.Params, ctx)
	if err != nil {
		return err
	}
	if err := checkParamLocs(ctx.Spec, fn.Name, fn.Loc, fn.Params, locs); err != nil {
		return err
	}
	if err := ctx.analyzeFunction(fn, locs); err != nil {
		return err
	}

	order, err := reversePostOrder(fn)
	if err != nil {
		return err
	}

	ft := &fnTranslator{tr: tr, ctx: ctx, fn: fn}

	// Home register-passed parameters into their frame slots while the
	// parameter registers are still untouched.
	for i, p := range fn.Params {
		if !locs[i].InReg {
			continue
		}
		off := ctx.frame.slots[p.ID]
		if locs[i].Float {
			ft.emit(asm.Inst(movFor(p.Type), 0,
				asm.BaseDisp(ctx.Spec.BasePointer, off), asm.Reg(locs[i].Reg)))
		} else {
			ft.emit(asm.Inst("mov", 8,
				asm.BaseDisp(ctx.Spec.BasePointer, off), asm.Reg(locs[i].Reg)))
		}
	}

	for oi, b := range order {
		ft.label(ctx.blockLabel(b))
		for i := range b.Instrs {
			if err := ft.translateInstr(&b.Instrs[i]); err != nil {
				return err
			}
		}
		next := ir.InvalidBlock
		if oi+1 < len(order) {
			next = order[oi+1].ID
		}
		if err := ft.translateTerm(b, next); err != nil {
			return err
		}
	}

	ft.flush()
	return nil
}

// reversePostOrder visits every reachable block exactly once, entry first,
// each block before its non-back-edge successors.
func reversePostOrder(fn *ir.Function) ([]*ir.Block, error) {
	entry := fn.Entry()
	if entry == nil {
		return nil, errf(ErrInvalidOperand, fn.Name, fn.Loc, "function has no entry block")
	}
	var post []*ir.Block
	seen := make(map[ir.BlockID]bool, len(fn.Blocks))
	var firstErr error
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		if firstErr != nil || seen[b.ID] {
			return
		}
		seen[b.ID] = true
		for _, succ := range b.Term.Successors() {
			sb := fn.BlockByID(succ)
			if sb == nil {
				firstErr = errf(ErrInvalidOperand, fn.Name, b.Term.Loc,
					"terminator targets unknown block b%d", succ)
				return
			}
			visit(sb)
		}
		post = append(post, b)
	}
	visit(entry)
	if firstErr != nil {
		return nil, firstErr
	}
	order := make([]*ir.Block, 0, len(post))
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	return order, nil
}

// flush writes label, prologue and buffered body to the text section,
// expanding epilogue markers and recording mapping positions.
func (ft *fnTranslator) flush() {
	ctx := ft.ctx
	text := &ctx.File.Text

	sym, _ := ctx.Symbols.Lookup(ft.fn.Name)
	asmName := ft.fn.Name
	if sym != nil {
		asmName = sym.AsmName
	}
	text.AddLabel(asmName)
	curLabel := asmName

	for _, in := range ctx.Adapter.GeneratePrologue(ctx) {
		text.AddInstruction(in)
	}
	for _, e := range ft.body {
		switch e.kind {
		case bodyLabel:
			text.AddLabel(e.label)
			curLabel = e.label
		case bodyEpilogue:
			for _, in := range ctx.Adapter.GenerateEpilogue(ctx) {
				text.AddInstruction(in)
			}
		case bodyInst:
			idx := text.AddInstruction(e.inst)
			if e.hasLoc {
				ft.tr.pend = append(ft.tr.pend, pendMap{loc: e.loc, item: idx, label: curLabel})
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (ft *fnTranslator) emit(in asm.Instruction) {
	e := bodyEntry{kind: bodyInst, inst: in}
	if ft.pendingLoc != nil {
		e.loc, e.hasLoc = *ft.pendingLoc, true
		ft.pendingLoc = nil
	}
	ft.body = append(ft.body, e)
}

func (ft *fnTranslator) label(name string) {
	ft.body = append(ft.body, bodyEntry{kind: bodyLabel, label: name})
}

func (ft *fnTranslator) epilogue() {
	ft.body = append(ft.body, bodyEntry{kind: bodyEpilogue})
}

// setLoc attaches an IR position to the next emitted instruction.
func (ft *fnTranslator) setLoc(loc ir.Location) {
	l := loc
	ft.pendingLoc = &l
}

func (ft *fnTranslator) allocInt(loc ir.Location) (*temp, error) {
	t, ok := ft.ctx.temps.allocInt()
	if !ok {
		return nil, errf(ErrRegisterAllocation, ft.fn.Name, loc, "integer scratch registers exhausted")
	}
	return t, nil
}

func (ft *fnTranslator) allocFloat(loc ir.Location) (*temp, error) {
	t, ok := ft.ctx.temps.allocFloat()
	if !ok {
		return nil, errf(ErrRegisterAllocation, ft.fn.Name, loc, "floating-point scratch registers exhausted")
	}
	return t, nil
}

func (ft *fnTranslator) release(ts ...*temp) {
	for _, t := range ts {
		ft.ctx.temps.release(t)
	}
}

// operand makes a value usable: constants fold to immediates where the
// consumer accepts one, otherwise everything is brought into a scratch
// register.  The returned temp, if any, is the caller's to release.
func (ft *fnTranslator) operand(id ir.ValueID, loc ir.Location, allowImm bool) (asm.Operand, *temp, error) {
	ctx := ft.ctx
	if c, ok := ctx.consts[id]; ok {
		if c.Type.IsFloat() {
			t, err := ft.allocFloat(loc)
			if err != nil {
				return asm.Operand{}, nil, err
			}
			lbl := ft.tr.floatLabel(c.Float, c.Type == ir.F32)
			ft.emit(asm.Inst(movFor(c.Type), 0, asm.Reg(t.reg), asm.SymRef(lbl)))
			return asm.Reg(t.reg), t, nil
		}
		if allowImm && fitsInt32(c.Int) {
			return asm.Imm(c.Int), nil, nil
		}
		t, err := ft.allocInt(loc)
		if err != nil {
			return asm.Operand{}, nil, err
		}
		ft.emit(asm.Inst("mov", 8, asm.Reg(t.reg), asm.Imm(c.Int)))
		return asm.Reg(t.reg), t, nil
	}
	if off, ok := ctx.frame.allocaOffs[id]; ok {
		t, err := ft.allocInt(loc)
		if err != nil {
			return asm.Operand{}, nil, err
		}
		ft.emit(asm.Inst("lea", 8, asm.Reg(t.reg), asm.BaseDisp(ctx.Spec.BasePointer, off)))
		return asm.Reg(t.reg), t, nil
	}
	if off, ok := ctx.frame.slots[id]; ok {
		if ctx.valueType[id].IsFloat() {
			t, err := ft.allocFloat(loc)
			if err != nil {
				return asm.Operand{}, nil, err
			}
			ft.emit(asm.Inst(movFor(ctx.valueType[id]), 0,
				asm.Reg(t.reg), asm.BaseDisp(ctx.Spec.BasePointer, off)))
			return asm.Reg(t.reg), t, nil
		}
		t, err := ft.allocInt(loc)
		if err != nil {
			return asm.Operand{}, nil, err
		}
		if ctx.valueType[id] == ir.I32 {
			// The slot's low doubleword is the value; arithmetic can wrap
			// bits into the high half, so every reload sign-extends.
			ft.emit(asm.Inst("movsxd", 4, asm.Reg(t.reg), asm.BaseDisp(ctx.Spec.BasePointer, off)))
		} else {
			ft.emit(asm.Inst("mov", 8, asm.Reg(t.reg), asm.BaseDisp(ctx.Spec.BasePointer, off)))
		}
		return asm.Reg(t.reg), t, nil
	}
	return asm.Operand{}, nil, errf(ErrInvalidOperand, ft.fn.Name, loc,
		"use of value %%%d with no storage", id)
}

// addressOf yields a memory operand for a pointer value.  Alloca results
// address their frame slot directly; other pointers are dereferenced via a
// scratch register.
func (ft *fnTranslator) addressOf(id ir.ValueID, loc ir.Location) (asm.Operand, *temp, error) {
	if off, ok := ft.ctx.frame.allocaOffs[id]; ok {
		return asm.BaseDisp(ft.ctx.Spec.BasePointer, off), nil, nil
	}
	op, t, err := ft.operand(id, loc, false)
	if err != nil {
		return asm.Operand{}, nil, err
	}
	return asm.BaseDisp(op.Reg, 0), t, nil
}

// storeResult spills a produced value into its frame slot.
func (ft *fnTranslator) storeResult(id ir.ValueID, reg string, typ ir.Type) {
	off, ok := ft.ctx.frame.slots[id]
	if !ok {
		return
	}
	if typ.IsFloat() {
		ft.emit(asm.Inst(movFor(typ), 0, asm.BaseDisp(ft.ctx.Spec.BasePointer, off), asm.Reg(reg)))
		return
	}
	ft.emit(asm.Inst("mov", 8, asm.BaseDisp(ft.ctx.Spec.BasePointer, off), asm.Reg(reg)))
}

func movFor(t ir.Type) string {
	if t == ir.F32 {
		return "movss"
	}
	return "movsd"
}

func fitsInt32(v int64) bool { return v >= -1<<31 && v < 1<<31 }

var byteRegNames = map[string]string{
	"rax": "al", "rbx": "bl", "rcx": "cl", "rdx": "dl",
	"rsi": "sil", "rdi": "dil", "rbp": "bpl", "rsp": "spl",
}

var dwordRegNames = map[string]string{
	"rax": "eax", "rbx": "ebx", "rcx": "ecx", "rdx": "edx",
	"rsi": "esi", "rdi": "edi", "rbp": "ebp", "rsp": "esp",
}

// byteReg returns the 8-bit alias of a 64-bit register.
func byteReg(r string) string {
	if b, ok := byteRegNames[r]; ok {
		return b
	}
	return r + "b" // r8..r15
}

// dwordReg returns the 32-bit alias of a 64-bit register.
func dwordReg(r string) string {
	if d, ok := dwordRegNames[r]; ok {
		return d
	}
	return r + "d" // r8..r15
}
