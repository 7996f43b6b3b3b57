package translate

import (
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/asm"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

// ---------------------------------------------------------------------------
// AbiAdapter
//
// Encapsulates one convention's parameter, stack and register rules.  The
// translator consumes it through these queries only; everything that differs
// between System V and Win64 is data in the underlying abi.Spec, so no
// translation code ever branches on the platform.
// ---------------------------------------------------------------------------

// ParamLoc is where one parameter lives on entry: a register, or a
// caller-frame stack slot at a positive rbp-relative offset.
type ParamLoc struct {
	Reg    string
	InReg  bool
	Offset int64
	Float  bool
}

// AbiAdapter answers the calling-convention questions of one target.
type AbiAdapter interface {
	Spec() *abi.Spec

	// Parameter-register lookup by index, for the two register classes.
	IntParamReg(i int) (string, bool)
	FloatParamReg(i int) (string, bool)
	// ParamIndexSpacesOverlap reports whether the integer and float index
	// spaces share positions (Win64) or advance independently (System V).
	ParamIndexSpacesOverlap() bool

	// MapParameters returns exactly one location per parameter, in
	// declaration order.  A type with no passing rule is an error.
	MapParameters(params []ir.Param, ctx *Context) ([]ParamLoc, error)

	// GeneratePrologue and GenerateEpilogue produce the frame setup and
	// teardown for the function currently held by the context.  The
	// callee-saved registers saved by the prologue are restored in
	// reverse by the epilogue.
	GeneratePrologue(ctx *Context) []asm.Instruction
	GenerateEpilogue(ctx *Context) []asm.Instruction
}

// NewAdapter returns the adapter for a convention.
func NewAdapter(spec *abi.Spec) AbiAdapter { return &convAdapter{spec: spec} }

type convAdapter struct {
	spec *abi.Spec
}

func (a *convAdapter) Spec() *abi.Spec { return a.spec }

func (a *convAdapter) IntParamReg(i int) (string, bool)   { return a.spec.IntParamReg(i) }
func (a *convAdapter) FloatParamReg(i int) (string, bool) { return a.spec.FloatParamReg(i) }
func (a *convAdapter) ParamIndexSpacesOverlap() bool      { return a.spec.OverlapParamIndices }

func (a *convAdapter) MapParameters(params []ir.Param, ctx *Context) ([]ParamLoc, error) {
	locs := make([]ParamLoc, 0, len(params))
	intIdx, floatIdx, stackIdx := 0, 0, 0
	for i, p := range params {
		var loc ParamLoc
		switch {
		case p.Type.IsFloat():
			pos := floatIdx
			if a.spec.OverlapParamIndices {
				pos = i
			}
			if reg, ok := a.spec.FloatParamReg(pos); ok {
				loc = ParamLoc{Reg: reg, InReg: true, Float: true}
			} else {
				loc = ParamLoc{Offset: a.stackParamOffset(stackIdx), Float: true}
				stackIdx++
			}
			floatIdx++
		case p.Type.IsInteger():
			pos := intIdx
			if a.spec.OverlapParamIndices {
				pos = i
			}
			if reg, ok := a.spec.IntParamReg(pos); ok {
				loc = ParamLoc{Reg: reg, InReg: true}
			} else {
				loc = ParamLoc{Offset: a.stackParamOffset(stackIdx)}
				stackIdx++
			}
			intIdx++
		default:
			fnName := ""
			var fnLoc ir.Location
			if ctx != nil && ctx.fn != nil {
				fnName, fnLoc = ctx.fn.Name, ctx.fn.Loc
			}
			return nil, errf(ErrUnsupportedType, fnName, fnLoc,
				"no passing rule for parameter %q of type %s", p.Name, p.Type)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

// stackParamOffset is the rbp-relative offset of the i-th stack-passed
// parameter inside the callee: above the saved rbp and return address, and
// above the caller's shadow space when the convention reserves one.
func (a *convAdapter) stackParamOffset(i int) int64 {
	return int64(16 + a.spec.ShadowSpace + 8*i)
}

func (a *convAdapter) GeneratePrologue(ctx *Context) []asm.Instruction {
	s := a.spec
	ins := []asm.Instruction{
		asm.Inst("push", 8, asm.Reg(s.BasePointer)),
		asm.Inst("mov", 8, asm.Reg(s.BasePointer), asm.Reg(s.StackPointer)),
	}
	if ctx.frame.size > 0 && !ctx.frame.redZone {
		ins = append(ins, asm.Inst("sub", 8, asm.Reg(s.StackPointer), asm.Imm(ctx.frame.size)))
	}
	for _, reg := range ctx.usedCalleeSaved {
		off := ctx.calleeSaveOffset(reg)
		ins = append(ins, asm.Inst("mov", 8, asm.BaseDisp(s.BasePointer, off), asm.Reg(reg)))
	}
	return ins
}

func (a *convAdapter) GenerateEpilogue(ctx *Context) []asm.Instruction {
	s := a.spec
	var ins []asm.Instruction
	for i := len(ctx.usedCalleeSaved) - 1; i >= 0; i-- {
		reg := ctx.usedCalleeSaved[i]
		off := ctx.calleeSaveOffset(reg)
		ins = append(ins, asm.Inst("mov", 8, asm.Reg(reg), asm.BaseDisp(s.BasePointer, off)))
	}
	if ctx.frame.size > 0 && !ctx.frame.redZone {
		ins = append(ins, asm.Inst("add", 8, asm.Reg(s.StackPointer), asm.Imm(ctx.frame.size)))
	}
	ins = append(ins, asm.Inst("pop", 8, asm.Reg(s.BasePointer)))
	return ins
}

// checkParamLocs is the defensive abi-violation gate: the adapter's answer
// must cover every parameter and never name a register outside the
// convention's own parameter sets.
func checkParamLocs(spec *abi.Spec, fn string, loc ir.Location, params []ir.Param, locs []ParamLoc) error {
	if len(locs) != len(params) {
		return errf(ErrAbiViolation, fn, loc,
			"adapter returned %d locations for %d parameters", len(locs), len(params))
	}
	for i, l := range locs {
		if !l.InReg {
			if l.Offset < 16 {
				return errf(ErrAbiViolation, fn, loc,
					"stack slot for parameter %d overlaps the saved frame", i)
			}
			continue
		}
		if l.Float && !contains(spec.FloatParamRegs, l.Reg) ||
			!l.Float && !contains(spec.IntParamRegs, l.Reg) {
			return errf(ErrAbiViolation, fn, loc,
				"register %s is not a %s parameter register", l.Reg, spec.Name)
		}
	}
	return nil
}

func contains(regs []string, r string) bool {
	for _, x := range regs {
		if x == r {
			return true
		}
	}
	return false
}
