package translate

import (
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/asm"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

// ---------------------------------------------------------------------------
// TerminatorTranslator
//
// Control flow at block boundaries.  Jumps to the block emitted immediately
// after are omitted; conditional jumps fold their single-use comparison into
// a cmp+jcc pair when the analysis marked it foldable.
// ---------------------------------------------------------------------------

var jccFor = map[ir.Opcode]string{
	ir.OpEq: "je", ir.OpNe: "jne",
	ir.OpLt: "jl", ir.OpLe: "jle",
	ir.OpGt: "jg", ir.OpGe: "jge",
}

var jccInverse = map[string]string{
	"je": "jne", "jne": "je",
	"jl": "jge", "jge": "jl",
	"jle": "jg", "jg": "jle",
}

func (ft *fnTranslator) translateTerm(b *ir.Block, next ir.BlockID) error {
	t := &b.Term
	ft.setLoc(t.Loc)
	switch t.Kind {
	case ir.TermReturn:
		return ft.translateReturn(t)
	case ir.TermJump:
		if t.Target != next {
			ft.emit(asm.Inst("jmp", 0, asm.Label(ft.targetLabel(t.Target))))
		}
		return nil
	case ir.TermCondJump:
		return ft.translateCondJump(b, t, next)
	case ir.TermUnreachable:
		if ft.ctx.Cfg.UnreachableTrap {
			ft.emit(asm.Inst("ud2", 0))
		}
		return nil
	default:
		return errf(ErrInvalidOperand, ft.fn.Name, t.Loc,
			"block %s has no terminator", b.Name)
	}
}

func (ft *fnTranslator) translateReturn(t *ir.Term) error {
	if t.HasValue {
		typ := ft.ctx.valueType[t.Value]
		op, tmp, err := ft.operand(t.Value, t.Loc, true)
		if err != nil {
			return err
		}
		if typ.IsFloat() {
			if op.Kind != asm.KindReg || op.Reg != ft.ctx.Spec.FloatReturnReg {
				ft.emit(asm.Inst(movFor(typ), 0, asm.Reg(ft.ctx.Spec.FloatReturnReg), op))
			}
		} else {
			ft.emit(asm.Inst("mov", 8, asm.Reg(ft.ctx.Spec.ReturnReg), op))
		}
		ft.release(tmp)
	}
	ft.epilogue()
	ft.emit(asm.Inst("ret", 0))
	return nil
}

func (ft *fnTranslator) translateCondJump(b *ir.Block, t *ir.Term, next ir.BlockID) error {
	if cmp, ok := ft.ctx.foldedCmp[t.Cond]; ok {
		lhs, lt, err := ft.operand(cmp.Args[0], cmp.Loc, false)
		if err != nil {
			return err
		}
		rhs, rt, err := ft.operand(cmp.Args[1], cmp.Loc, true)
		if err != nil {
			return err
		}
		ft.emit(asm.Inst("cmp", 8, lhs, rhs))
		ft.release(rt, lt)
		ft.emitBranch(jccFor[cmp.Op], t.Then, t.Else, next)
		return nil
	}
	op, tmp, err := ft.operand(t.Cond, t.Loc, false)
	if err != nil {
		return err
	}
	ft.emit(asm.Inst("test", 8, op, op))
	ft.release(tmp)
	ft.emitBranch("jne", t.Then, t.Else, next)
	return nil
}

// emitBranch lays down a two-way branch, dropping whichever edge lands on
// the next emitted block.
func (ft *fnTranslator) emitBranch(jcc string, then, els, next ir.BlockID) {
	switch {
	case els == next:
		ft.emit(asm.Inst(jcc, 0, asm.Label(ft.targetLabel(then))))
	case then == next:
		ft.emit(asm.Inst(jccInverse[jcc], 0, asm.Label(ft.targetLabel(els))))
	default:
		ft.emit(asm.Inst(jcc, 0, asm.Label(ft.targetLabel(then))))
		ft.emit(asm.Inst("jmp", 0, asm.Label(ft.targetLabel(els))))
	}
}

func (ft *fnTranslator) targetLabel(id ir.BlockID) string {
	return ft.ctx.blockLabel(ft.fn.BlockByID(id))
}
