// Package translate lowers a validated IR module to textual x86-64 assembly
// for one calling convention.  Translation is deterministic and fails fast:
// the first error aborts the run and no partial output is returned.
package translate

import (
	"fmt"
	"math"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/asm"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

// Output is the result of a successful translation.
type Output struct {
	// Text is the complete assembly file, GAS flavor for System V targets
	// and NASM flavor for Win64.
	Text string

	// Mapping is the optional IR-position side file, empty unless
	// Config.EmitMapping was set.
	Mapping string
}

// pendMap is a mapping entry waiting for its absolute output line, known
// only after the file renders.
type pendMap struct {
	loc   ir.Location
	item  int // text-section item index
	label string
}

// floatConst is one pooled floating-point literal.
type floatConst struct {
	label  string
	value  float64
	single bool
}

type moduleTranslator struct {
	ctx  *Context
	pend []pendMap

	floatSeen map[floatKey]string
	floatPool []floatConst
}

type floatKey struct {
	bits   uint64
	single bool
}

// Module translates a whole IR module.  A nil config selects the defaults.
func Module(mod *ir.Module, cfg *Config) (*Output, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.withDefaults()
	}
	if err := ir.Validate(mod); err != nil {
		return nil, &Error{Kind: ErrInvalidOperand, Construct: "module validation", Err: err}
	}

	file := asm.NewFile()
	ctx := newContext(cfg, file)
	tr := &moduleTranslator{ctx: ctx, floatSeen: make(map[floatKey]string)}

	// Every defined function is known up front so forward calls resolve
	// without externs.
	for _, fn := range mod.Functions {
		ctx.Symbols.Define(fn.Name, fn.Name, SymFunction)
		file.Global(fn.Name)
	}

	for _, fn := range mod.Functions {
		if err := tr.translateFunction(fn); err != nil {
			return nil, err
		}
	}

	for _, fc := range tr.floatPool {
		kind := asm.DataFloat64
		if fc.single {
			kind = asm.DataFloat32
		}
		file.Data.AddData(fc.label, asm.DataItem{Kind: kind, Float: fc.value})
	}

	out := &Output{Text: file.Render(flavorOf(ctx.Spec))}
	if cfg.EmitMapping {
		var m asm.Mapping
		for _, p := range tr.pend {
			m.Add(asm.MapEntry{
				IRLine:  p.loc.Line,
				IRCol:   p.loc.Col,
				AsmLine: file.TextItemLine(p.item),
				Label:   p.label,
			})
		}
		out.Mapping = m.Render()
	}
	return out, nil
}

// floatLabel interns a floating-point literal in the data section pool and
// returns its label.  Literals are keyed by bit pattern so -0.0 and 0.0 get
// distinct slots.
func (tr *moduleTranslator) floatLabel(v float64, single bool) string {
	key := floatKey{bits: math.Float64bits(v), single: single}
	if lbl, ok := tr.floatSeen[key]; ok {
		return lbl
	}
	// No leading dot: NASM scopes dotted labels to the previous non-local
	// label, which a data-section literal does not have.
	lbl := fmt.Sprintf("LCF%d", len(tr.floatPool))
	tr.floatSeen[key] = lbl
	tr.floatPool = append(tr.floatPool, floatConst{label: lbl, value: v, single: single})
	return lbl
}

func flavorOf(spec *abi.Spec) asm.Flavor {
	if spec.Syntax == abi.Intel {
		return asm.Intel
	}
	return asm.GAS
}
