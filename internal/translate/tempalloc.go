package translate

import (
	"fmt"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"
)

// ---------------------------------------------------------------------------
// Temporary register allocator
//
// Issues unique, function-scoped symbolic names (t0, t1, …), each naively
// bound to a register from the convention's priority-ordered scratch list.
// Names are monotonic and never reused; registers return to the pool when a
// temporary is released.  Reserved and ABI-fixed registers (rax, rdx, rcx,
// parameter registers) are never in the pool, so implicit-use sequences
// (idiv, shifts, calls) cannot collide with a live temporary.
// ---------------------------------------------------------------------------

// temp is one live temporary: a symbolic name bound to a physical register.
type temp struct {
	name  string
	reg   string
	float bool
}

type tempAllocator struct {
	spec      *abi.Spec
	next      int // monotonic symbolic counter
	freeInt   []string
	freeFloat []string
	live      map[string]string // register -> symbolic name

	// onCalleeSaved is called the first time a callee-saved scratch
	// register is handed out, so the frame can plan its save slot.
	onCalleeSaved func(reg string)
}

func newTempAllocator(spec *abi.Spec, onCalleeSaved func(string)) *tempAllocator {
	a := &tempAllocator{spec: spec, onCalleeSaved: onCalleeSaved}
	a.reset()
	return a
}

// reset clears the allocator at a function boundary.
func (a *tempAllocator) reset() {
	a.next = 0
	a.freeInt = append(a.freeInt[:0], a.spec.Scratch...)
	a.freeFloat = append(a.freeFloat[:0], a.spec.FloatScratch...)
	a.live = make(map[string]string)
}

// allocInt hands out an integer temporary.  Exhaustion is the defensive
// register-allocation-failed condition reported by the caller.
func (a *tempAllocator) allocInt() (*temp, bool) {
	if len(a.freeInt) == 0 {
		return nil, false
	}
	reg := a.freeInt[0]
	a.freeInt = a.freeInt[1:]
	return a.bind(reg, false), true
}

// allocFloat hands out a floating-point temporary.
func (a *tempAllocator) allocFloat() (*temp, bool) {
	if len(a.freeFloat) == 0 {
		return nil, false
	}
	reg := a.freeFloat[0]
	a.freeFloat = a.freeFloat[1:]
	return a.bind(reg, true), true
}

func (a *tempAllocator) bind(reg string, float bool) *temp {
	t := &temp{name: fmt.Sprintf("t%d", a.next), reg: reg, float: float}
	a.next++
	a.live[reg] = t.name
	if a.spec.IsNonVolatile(reg) && a.onCalleeSaved != nil {
		a.onCalleeSaved(reg)
	}
	return t
}

// release returns a temporary's register to the front of the pool.
// The symbolic name stays retired.
func (a *tempAllocator) release(t *temp) {
	if t == nil {
		return
	}
	if _, ok := a.live[t.reg]; !ok {
		return
	}
	delete(a.live, t.reg)
	if t.float {
		a.freeFloat = append([]string{t.reg}, a.freeFloat...)
	} else {
		a.freeInt = append([]string{t.reg}, a.freeInt...)
	}
}
