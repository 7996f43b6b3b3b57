package translate

import (
	"fmt"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/asm"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

// ---------------------------------------------------------------------------
// InstructionTranslator
//
// One rule per opcode, dispatched through a table.  Unlisted opcodes fail
// with a clear unsupported-instruction error instead of silently emitting
// nothing.
// ---------------------------------------------------------------------------

type instrRule func(ft *fnTranslator, in *ir.Instr) error

var instrRules = map[ir.Opcode]instrRule{
	ir.OpAdd: arithRule("add", true),
	ir.OpSub: arithRule("sub", true),
	ir.OpMul: mulRule,
	ir.OpDiv: divRule,
	ir.OpAnd: arithRule("and", false),
	ir.OpOr:  arithRule("or", false),
	ir.OpXor: arithRule("xor", false),
	ir.OpShl: shiftRule("shl"),
	ir.OpShr: shiftRule("shr"),

	ir.OpEq: cmpRule("sete"),
	ir.OpNe: cmpRule("setne"),
	ir.OpLt: cmpRule("setl"),
	ir.OpLe: cmpRule("setle"),
	ir.OpGt: cmpRule("setg"),
	ir.OpGe: cmpRule("setge"),

	ir.OpLoad:  loadRule,
	ir.OpStore: storeRule,
	ir.OpCall:  callRule,

	// Alloca and Const emit nothing here: alloca storage is carved out by
	// the frame layout, constants fold at each use.
	ir.OpAlloca: func(*fnTranslator, *ir.Instr) error { return nil },
	ir.OpConst:  func(*fnTranslator, *ir.Instr) error { return nil },
}

func (ft *fnTranslator) translateInstr(in *ir.Instr) error {
	if _, folded := ft.ctx.foldedCmp[in.ID]; folded {
		return nil // re-emitted as cmp+jcc by the terminator
	}
	rule, ok := instrRules[in.Op]
	if !ok {
		return ft.unsupported(in)
	}
	ft.setLoc(in.Loc)
	return rule(ft, in)
}

func (ft *fnTranslator) unsupported(in *ir.Instr) error {
	return errf(ErrUnsupportedInstruction, ft.fn.Name, in.Loc,
		"no translation for %s", in.String())
}

func (ft *fnTranslator) unsupportedType(in *ir.Instr, t ir.Type) error {
	return errf(ErrUnsupportedType, ft.fn.Name, in.Loc,
		"%s cannot operate on %s", in.Op, t)
}

// ---------------------------------------------------------------------------
// Arithmetic and bitwise
// ---------------------------------------------------------------------------

// arithRule covers the two-operand forms whose x86 mnemonic takes
// dest op= src.  Float variants append the scalar suffix (addsd, subss).
func arithRule(mn string, hasFloat bool) instrRule {
	return func(ft *fnTranslator, in *ir.Instr) error {
		if in.Type.IsFloat() {
			if !hasFloat {
				return ft.unsupportedType(in, in.Type)
			}
			return ft.floatBinary(in, mn)
		}
		if !in.Type.IsInteger() {
			return ft.unsupportedType(in, in.Type)
		}
		lhs, lt, err := ft.operand(in.Args[0], in.Loc, false)
		if err != nil {
			return err
		}
		rhs, rt, err := ft.operand(in.Args[1], in.Loc, true)
		if err != nil {
			return err
		}
		ft.emit(asm.Inst(mn, 8, lhs, rhs))
		ft.storeResult(in.ID, lhs.Reg, in.Type)
		ft.release(rt, lt)
		return nil
	}
}

func (ft *fnTranslator) floatBinary(in *ir.Instr, mn string) error {
	suffix := "sd"
	if in.Type == ir.F32 {
		suffix = "ss"
	}
	lhs, lt, err := ft.operand(in.Args[0], in.Loc, false)
	if err != nil {
		return err
	}
	rhs, rt, err := ft.operand(in.Args[1], in.Loc, false)
	if err != nil {
		return err
	}
	ft.emit(asm.Inst(mn+suffix, 0, lhs, rhs))
	ft.storeResult(in.ID, lhs.Reg, in.Type)
	ft.release(rt, lt)
	return nil
}

func mulRule(ft *fnTranslator, in *ir.Instr) error {
	if in.Type.IsFloat() {
		return ft.floatBinary(in, "mul")
	}
	if !in.Type.IsInteger() {
		return ft.unsupportedType(in, in.Type)
	}
	lhs, lt, err := ft.operand(in.Args[0], in.Loc, false)
	if err != nil {
		return err
	}
	rhs, rt, err := ft.operand(in.Args[1], in.Loc, true)
	if err != nil {
		return err
	}
	ft.emit(asm.Inst("imul", 8, lhs, rhs))
	ft.storeResult(in.ID, lhs.Reg, in.Type)
	ft.release(rt, lt)
	return nil
}

// divRule uses the fixed rax/rdx division sequence.  Neither register is in
// the scratch pool, so live temporaries cannot be clobbered.
func divRule(ft *fnTranslator, in *ir.Instr) error {
	if in.Type.IsFloat() {
		return ft.floatBinary(in, "div")
	}
	if !in.Type.IsInteger() {
		return ft.unsupportedType(in, in.Type)
	}
	lhs, lt, err := ft.operand(in.Args[0], in.Loc, true)
	if err != nil {
		return err
	}
	rhs, rt, err := ft.operand(in.Args[1], in.Loc, false)
	if err != nil {
		return err
	}
	ft.emit(asm.Inst("mov", 8, asm.Reg("rax"), lhs))
	ft.emit(asm.Inst("cqo", 0))
	ft.emit(asm.Inst("idiv", 8, rhs))
	ft.storeResult(in.ID, "rax", in.Type)
	ft.release(rt, lt)
	return nil
}

// shiftRule puts a variable count in cl; small constant counts stay
// immediate.
func shiftRule(mn string) instrRule {
	return func(ft *fnTranslator, in *ir.Instr) error {
		if !in.Type.IsInteger() {
			return ft.unsupportedType(in, in.Type)
		}
		lhs, lt, err := ft.operand(in.Args[0], in.Loc, false)
		if err != nil {
			return err
		}
		// i32 shifts run at their own width: registers hold the
		// sign-extended form, and a 64-bit logical right shift would drag
		// extension bits into bit 31.
		size := 8
		dst := lhs
		if in.Type == ir.I32 {
			size = 4
			dst = asm.Reg(dwordReg(lhs.Reg))
		}
		if c, ok := ft.ctx.consts[in.Args[1]]; ok && c.Int >= 0 && c.Int < 64 {
			ft.emit(asm.Inst(mn, size, dst, asm.Imm(c.Int)))
		} else {
			rhs, rt, err := ft.operand(in.Args[1], in.Loc, false)
			if err != nil {
				return err
			}
			ft.emit(asm.Inst("mov", 8, asm.Reg("rcx"), rhs))
			ft.emit(asm.Inst(mn, size, dst, asm.Reg("cl")))
			ft.release(rt)
		}
		ft.storeResult(in.ID, lhs.Reg, in.Type)
		ft.release(lt)
		return nil
	}
}

// ---------------------------------------------------------------------------
// Comparisons
// ---------------------------------------------------------------------------

// cmpRule materializes a comparison to 0 or 1.  Comparisons folded into
// their conditional jump never reach this rule.
func cmpRule(setcc string) instrRule {
	return func(ft *fnTranslator, in *ir.Instr) error {
		operandType := ft.ctx.valueType[in.Args[0]]
		if operandType.IsFloat() {
			return ft.unsupported(in)
		}
		lhs, lt, err := ft.operand(in.Args[0], in.Loc, false)
		if err != nil {
			return err
		}
		rhs, rt, err := ft.operand(in.Args[1], in.Loc, true)
		if err != nil {
			return err
		}
		low := byteReg(lhs.Reg)
		ft.emit(asm.Inst("cmp", 8, lhs, rhs))
		ft.emit(asm.Inst(setcc, 0, asm.Reg(low)))
		ft.emit(asm.Inst("movzx", 8, asm.Reg(lhs.Reg), asm.Reg(low)))
		ft.storeResult(in.ID, lhs.Reg, ir.I64)
		ft.release(rt, lt)
		return nil
	}
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

func loadRule(ft *fnTranslator, in *ir.Instr) error {
	mem, mt, err := ft.addressOf(in.Args[0], in.Loc)
	if err != nil {
		return err
	}
	switch in.Type {
	case ir.F64, ir.F32:
		t, err := ft.allocFloat(in.Loc)
		if err != nil {
			return err
		}
		ft.emit(asm.Inst(movFor(in.Type), 0, asm.Reg(t.reg), mem))
		ft.storeResult(in.ID, t.reg, in.Type)
		ft.release(t, mt)
	case ir.I64, ir.Ptr:
		t, err := ft.allocInt(in.Loc)
		if err != nil {
			return err
		}
		ft.emit(asm.Inst("mov", 8, asm.Reg(t.reg), mem))
		ft.storeResult(in.ID, t.reg, in.Type)
		ft.release(t, mt)
	case ir.I32:
		t, err := ft.allocInt(in.Loc)
		if err != nil {
			return err
		}
		// Sign-extend so 64-bit compares and division see the value's sign.
		ft.emit(asm.Inst("movsxd", 4, asm.Reg(t.reg), mem))
		ft.storeResult(in.ID, t.reg, in.Type)
		ft.release(t, mt)
	default:
		return ft.unsupportedType(in, in.Type)
	}
	return nil
}

func storeRule(ft *fnTranslator, in *ir.Instr) error {
	valType, ok := ft.ctx.valueType[in.Args[1]]
	if !ok {
		return errf(ErrInvalidOperand, ft.fn.Name, in.Loc,
			"store of value %%%d with no known type", in.Args[1])
	}
	switch valType {
	case ir.I64, ir.Ptr, ir.I32, ir.F64, ir.F32:
	default:
		return ft.unsupportedType(in, valType)
	}
	mem, mt, err := ft.addressOf(in.Args[0], in.Loc)
	if err != nil {
		return err
	}
	val, vt, err := ft.operand(in.Args[1], in.Loc, valType.IsInteger())
	if err != nil {
		return err
	}
	switch {
	case valType.IsFloat():
		ft.emit(asm.Inst(movFor(valType), 0, mem, val))
	case valType == ir.I32:
		src := val
		if src.Kind == asm.KindReg {
			src = asm.Reg(dwordReg(src.Reg))
		}
		ft.emit(asm.Inst("mov", 4, mem, src))
	default:
		ft.emit(asm.Inst("mov", 8, mem, val))
	}
	ft.release(vt, mt)
	return nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// callRule stages arguments per the convention: the stack-argument area is
// reserved in one step and filled with stores, register arguments are loaded
// last, shadow space is carved out just before the call and reclaimed with
// the stack arguments after it.
func callRule(ft *fnTranslator, in *ir.Instr) error {
	ctx := ft.ctx
	spec := ctx.Spec

	params := make([]ir.Param, len(in.Args))
	for i, a := range in.Args {
		t, ok := ctx.valueType[a]
		if !ok {
			return errf(ErrInvalidOperand, ft.fn.Name, in.Loc,
				"call argument %%%d has no known type", a)
		}
		params[i] = ir.Param{ID: a, Name: fmt.Sprintf("arg%d", i), Type: t}
	}
	locs, err := ctx.Adapter.MapParameters(params, ctx)
	if err != nil {
		return err
	}
	if err := checkParamLocs(spec, ft.fn.Name, in.Loc, params, locs); err != nil {
		return err
	}

	stackArgs := 0
	for i := range locs {
		if !locs[i].InReg {
			stackArgs++
		}
	}

	// The pad keeps rsp on 16 at the call; reserving it together with the
	// argument slots keeps the arguments adjacent to the return address.
	pad := int64(0)
	if stackArgs%2 == 1 {
		pad = 8
	}
	if stackBytes := 8*int64(stackArgs) + pad; stackBytes > 0 {
		ft.emit(asm.Inst("sub", 8, asm.Reg(spec.StackPointer), asm.Imm(stackBytes)))
	}
	slot := int64(0)
	for i, a := range in.Args {
		if locs[i].InReg {
			continue
		}
		op, t, err := ft.operand(a, in.Loc, !locs[i].Float)
		if err != nil {
			return err
		}
		if locs[i].Float {
			ft.emit(asm.Inst(movFor(params[i].Type), 0, asm.BaseDisp(spec.StackPointer, slot), op))
		} else {
			ft.emit(asm.Inst("mov", 8, asm.BaseDisp(spec.StackPointer, slot), op))
		}
		slot += 8
		ft.release(t)
	}
	for i, a := range in.Args {
		if !locs[i].InReg {
			continue
		}
		op, t, err := ft.operand(a, in.Loc, !locs[i].Float)
		if err != nil {
			return err
		}
		if locs[i].Float {
			ft.emit(asm.Inst(movFor(params[i].Type), 0, asm.Reg(locs[i].Reg), op))
		} else {
			ft.emit(asm.Inst("mov", 8, asm.Reg(locs[i].Reg), op))
		}
		ft.release(t)
	}
	if spec.ShadowSpace > 0 {
		ft.emit(asm.Inst("sub", 8, asm.Reg(spec.StackPointer), asm.Imm(int64(spec.ShadowSpace))))
	}

	sym, ok := ctx.Symbols.Lookup(in.Callee)
	if !ok {
		sym = ctx.Symbols.Define(in.Callee, in.Callee, SymFunction)
		sym.Extern = true
		ctx.File.Extern(sym.AsmName)
	}
	ft.emit(asm.Inst("call", 0, asm.Sym(sym.AsmName)))

	cleanup := int64(spec.ShadowSpace) + 8*int64(stackArgs) + pad
	if cleanup > 0 {
		ft.emit(asm.Inst("add", 8, asm.Reg(spec.StackPointer), asm.Imm(cleanup)))
	}

	if in.ID != ir.InvalidValue && in.Type != ir.Void {
		if in.Type.IsFloat() {
			ft.storeResult(in.ID, spec.FloatReturnReg, in.Type)
		} else {
			ft.storeResult(in.ID, spec.ReturnReg, in.Type)
		}
	}
	return nil
}
