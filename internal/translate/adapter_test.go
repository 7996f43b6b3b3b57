package translate

import (
	"testing"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

func intParams(n int) []ir.Param {
	ps := make([]ir.Param, n)
	for i := range ps {
		ps[i] = ir.Param{ID: ir.ValueID(i + 1), Name: "p", Type: ir.I64}
	}
	return ps
}

func TestMapParametersSysVBoundary(t *testing.T) {
	a := NewAdapter(abi.SysV)
	locs, err := a.MapParameters(intParams(7), nil)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
	for i, reg := range want {
		if !locs[i].InReg || locs[i].Reg != reg {
			t.Errorf("param %d: got %+v, want register %s", i, locs[i], reg)
		}
	}
	if locs[6].InReg || locs[6].Offset != 16 {
		t.Errorf("seventh parameter: got %+v, want stack offset 16", locs[6])
	}
}

func TestMapParametersSysVIndependentSpaces(t *testing.T) {
	a := NewAdapter(abi.SysV)
	params := []ir.Param{
		{ID: 1, Name: "a", Type: ir.I64},
		{ID: 2, Name: "x", Type: ir.F64},
		{ID: 3, Name: "b", Type: ir.I64},
		{ID: 4, Name: "y", Type: ir.F64},
	}
	locs, err := a.MapParameters(params, nil)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := []string{"rdi", "xmm0", "rsi", "xmm1"}
	for i, reg := range want {
		if locs[i].Reg != reg {
			t.Errorf("param %d: got %s, want %s", i, locs[i].Reg, reg)
		}
	}
}

func TestMapParametersWin64OverlappingSpaces(t *testing.T) {
	a := NewAdapter(abi.Win64)
	params := []ir.Param{
		{ID: 1, Name: "a", Type: ir.I64},
		{ID: 2, Name: "x", Type: ir.F64},
		{ID: 3, Name: "b", Type: ir.I64},
	}
	locs, err := a.MapParameters(params, nil)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	// Positions, not class counters: i64/f64/i64 take rcx, xmm1, r8.
	want := []string{"rcx", "xmm1", "r8"}
	for i, reg := range want {
		if locs[i].Reg != reg {
			t.Errorf("param %d: got %s, want %s", i, locs[i].Reg, reg)
		}
	}
}

func TestMapParametersWin64StackOffsets(t *testing.T) {
	a := NewAdapter(abi.Win64)
	locs, err := a.MapParameters(intParams(6), nil)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	// Saved rbp + return address + 32 bytes of shadow space.
	if locs[4].InReg || locs[4].Offset != 48 {
		t.Errorf("fifth parameter: got %+v, want stack offset 48", locs[4])
	}
	if locs[5].Offset != 56 {
		t.Errorf("sixth parameter: got %+v, want stack offset 56", locs[5])
	}
}

func TestMapParametersRejectsVoid(t *testing.T) {
	a := NewAdapter(abi.SysV)
	_, err := a.MapParameters([]ir.Param{{ID: 1, Name: "v", Type: ir.Void}}, nil)
	terr, ok := err.(*Error)
	if !ok || terr.Kind != ErrUnsupportedType {
		t.Fatalf("expected unsupported-type error, got %v", err)
	}
}

func TestCheckParamLocsCatchesBadAnswers(t *testing.T) {
	params := intParams(1)

	if err := checkParamLocs(abi.SysV, "f", ir.Location{}, params, nil); err == nil {
		t.Error("count mismatch not caught")
	}

	bad := []ParamLoc{{Reg: "r13", InReg: true}}
	err := checkParamLocs(abi.SysV, "f", ir.Location{}, params, bad)
	terr, ok := err.(*Error)
	if !ok || terr.Kind != ErrAbiViolation {
		t.Errorf("non-parameter register not caught: %v", err)
	}

	overlap := []ParamLoc{{Offset: 8}}
	if err := checkParamLocs(abi.SysV, "f", ir.Location{}, params, overlap); err == nil {
		t.Error("stack slot inside the saved frame not caught")
	}
}

// ---------------------------------------------------------------------------
// Temporary allocator
// ---------------------------------------------------------------------------

func TestTempAllocatorNamesAreMonotonic(t *testing.T) {
	a := newTempAllocator(abi.SysV, nil)
	t0, _ := a.allocInt()
	t1, _ := a.allocInt()
	a.release(t0)
	t2, _ := a.allocInt()

	if t0.name != "t0" || t1.name != "t1" || t2.name != "t2" {
		t.Errorf("names not monotonic: %s %s %s", t0.name, t1.name, t2.name)
	}
	// The register is recycled even though the name is retired.
	if t2.reg != t0.reg {
		t.Errorf("released register not reused: got %s, want %s", t2.reg, t0.reg)
	}
}

func TestTempAllocatorCalleeSavedCallback(t *testing.T) {
	var saved []string
	a := newTempAllocator(abi.SysV, func(r string) { saved = append(saved, r) })

	t0, _ := a.allocInt() // r10
	t1, _ := a.allocInt() // r11
	if len(saved) != 0 {
		t.Fatalf("volatile scratch registers reported as callee-saved: %v", saved)
	}
	t2, _ := a.allocInt() // rbx, first callee-saved
	if len(saved) != 1 || saved[0] != "rbx" {
		t.Fatalf("expected rbx callback, got %v", saved)
	}
	_ = t0
	_ = t1
	_ = t2
}

func TestTempAllocatorExhaustion(t *testing.T) {
	a := newTempAllocator(abi.SysV, nil)
	for i := 0; i < len(abi.SysV.Scratch); i++ {
		if _, ok := a.allocInt(); !ok {
			t.Fatalf("allocation %d failed early", i)
		}
	}
	if _, ok := a.allocInt(); ok {
		t.Fatal("expected exhaustion after the scratch pool is drained")
	}
}
