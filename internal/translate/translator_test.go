package translate

import (
	"errors"
	"strings"
	"testing"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
)

// helper: parse source and translate it for the given convention.
func mustTranslate(t *testing.T, src string, spec *abi.Spec) *Output {
	t.Helper()
	out, err := translateSrc(t, src, spec)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	return out
}

func translateSrc(t *testing.T, src string, spec *abi.Spec) (*Output, error) {
	t.Helper()
	mod, err := ir.ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ABI = spec
	return Module(mod, cfg)
}

const addSrc = `module demo

func @add(%a: i64, %b: i64) -> i64 {
entry:
  %c = add i64 %a, %b
  ret %c
}`

// ---------------------------------------------------------------------------
// Whole-module scenarios
// ---------------------------------------------------------------------------

func TestSysVAddFunction(t *testing.T) {
	out := mustTranslate(t, addSrc, abi.SysV)

	for _, want := range []string{
		".globl add",
		"add:",
		"pushq %rbp",
		"movq %rsp, %rbp",
		"movq %rdi, -", // first parameter homed from its System V register
		"movq %rsi, -",
		"addq",
		"%rax", // result materialized in the return register
		"popq %rbp",
		"    ret",
	} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("missing %q in:\n%s", want, out.Text)
		}
	}

	// A small leaf frame lives in the red zone: no stack adjustment at all.
	if strings.Contains(out.Text, "subq $") {
		t.Errorf("leaf function should use the red zone:\n%s", out.Text)
	}
}

func TestWin64CallPair(t *testing.T) {
	src := `func @pair(%a: i64, %b: i64) -> i64 {
entry:
  %r = call i64 @combine(%a, %b)
  ret %r
}

func @combine(%x: i64, %y: i64) -> i64 {
entry:
  %s = add i64 %x, %y
  ret %s
}`
	out := mustTranslate(t, src, abi.Win64)

	for _, want := range []string{
		"bits 64",
		"global pair",
		"global combine",
		"mov rcx, ", // first argument staged per Win64
		"mov rdx, ",
		"sub rsp, 32", // shadow space carved out before the call
		"call combine",
		"add rsp, 32",
	} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("missing %q in:\n%s", want, out.Text)
		}
	}
	// combine is defined in the module, not an import.
	if strings.Contains(out.Text, "extern combine") {
		t.Errorf("defined function declared extern:\n%s", out.Text)
	}
}

func TestShadowSpaceOnlyUnderWin64(t *testing.T) {
	src := `func @pair(%a: i64, %b: i64) -> i64 {
entry:
  %r = call i64 @combine(%a, %b)
  ret %r
}

func @combine(%x: i64, %y: i64) -> i64 {
entry:
  %s = add i64 %x, %y
  ret %s
}`
	sysv := mustTranslate(t, src, abi.SysV)
	win := mustTranslate(t, src, abi.Win64)

	if strings.Contains(sysv.Text, "$32, %rsp") {
		t.Errorf("System V must not reserve shadow space:\n%s", sysv.Text)
	}
	if !strings.Contains(win.Text, "sub rsp, 32") || !strings.Contains(win.Text, "add rsp, 32") {
		t.Errorf("Win64 call needs its shadow-space pair:\n%s", win.Text)
	}
	// Same IR, each convention's own first two registers.
	if !strings.Contains(sysv.Text, "%rdi") || strings.Contains(sysv.Text, "rcx,") {
		t.Errorf("System V arguments belong in rdi/rsi:\n%s", sysv.Text)
	}
	if !strings.Contains(win.Text, "mov rcx, ") {
		t.Errorf("Win64 arguments belong in rcx/rdx:\n%s", win.Text)
	}
}

func TestUnreachableTerminator(t *testing.T) {
	src := `func @trap() {
entry:
  unreachable
}`
	out := mustTranslate(t, src, abi.SysV)
	if !strings.Contains(out.Text, "ud2") {
		t.Errorf("expected ud2 trap:\n%s", out.Text)
	}

	mod, err := ir.ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ABI = abi.SysV
	cfg.UnreachableTrap = false
	quiet, err := Module(mod, cfg)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if strings.Contains(quiet.Text, "ud2") {
		t.Errorf("trap emitted despite being disabled:\n%s", quiet.Text)
	}
}

// ---------------------------------------------------------------------------
// Determinism and structural properties
// ---------------------------------------------------------------------------

func TestTranslationIsDeterministic(t *testing.T) {
	src := `func @loop(%n: i64) -> i64 {
entry:
  %zero = const i64 0
  %p = alloca i64
  store %p, %zero
  jmp head
head:
  %i = load i64 %p
  %more = lt i64 %i, %n
  br %more, body, done
body:
  %one = const i64 1
  %next = add i64 %i, %one
  store %p, %next
  jmp head
done:
  %r = load i64 %p
  ret %r
}`
	mod, err := ir.ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ABI = abi.SysV
	cfg.EmitMapping = true

	first, err := Module(mod, cfg)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Module(mod, cfg)
		if err != nil {
			t.Fatalf("translate: %v", err)
		}
		if again.Text != first.Text || again.Mapping != first.Mapping {
			t.Fatal("identical input produced different output")
		}
	}
}

func TestPrologueEpilogueSymmetry(t *testing.T) {
	src := `func @pick(%a: i64, %b: i64) -> i64 {
entry:
  %c = lt i64 %a, %b
  br %c, less, more
less:
  ret %b
more:
  ret %a
}`
	out := mustTranslate(t, src, abi.SysV)

	pushes := strings.Count(out.Text, "pushq %rbp")
	pops := strings.Count(out.Text, "popq %rbp")
	rets := strings.Count(out.Text, "\n    ret")
	if pushes != 1 {
		t.Errorf("expected one prologue, got %d", pushes)
	}
	if pops != rets || rets != 2 {
		t.Errorf("every return path needs its own epilogue: %d pops, %d rets\n%s",
			pops, rets, out.Text)
	}
}

func TestComparisonFoldsIntoConditionalJump(t *testing.T) {
	src := `func @pick(%a: i64, %b: i64) -> i64 {
entry:
  %c = lt i64 %a, %b
  br %c, less, more
less:
  ret %b
more:
  ret %a
}`
	out := mustTranslate(t, src, abi.SysV)

	if !strings.Contains(out.Text, "cmpq") || !strings.Contains(out.Text, "jl") {
		t.Errorf("expected folded cmp+jl:\n%s", out.Text)
	}
	if strings.Contains(out.Text, "setl") {
		t.Errorf("single-use branch condition must not be materialized:\n%s", out.Text)
	}
}

func TestComparisonMaterializesWhenValueIsUsed(t *testing.T) {
	src := `func @flag(%a: i64, %b: i64) -> i64 {
entry:
  %c = lt i64 %a, %b
  %d = add i64 %c, %b
  ret %d
}`
	out := mustTranslate(t, src, abi.SysV)
	if !strings.Contains(out.Text, "setl") || !strings.Contains(out.Text, "movzbq") {
		t.Errorf("expected setcc+zero-extend materialization:\n%s", out.Text)
	}
}

func TestJumpTargetsResolveToEmittedLabels(t *testing.T) {
	src := `func @loop(%n: i64) -> i64 {
entry:
  %one = const i64 1
  %more = lt i64 %one, %n
  br %more, again, out
again:
  jmp out
out:
  ret %n
}`
	out := mustTranslate(t, src, abi.SysV)
	for _, line := range strings.Split(out.Text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "j") {
			continue
		}
		parts := strings.Fields(trimmed)
		if len(parts) != 2 {
			continue
		}
		target := parts[1]
		if !strings.Contains(out.Text, "\n"+target+":\n") {
			t.Errorf("jump to label %q that is never defined:\n%s", target, out.Text)
		}
	}
}

// ---------------------------------------------------------------------------
// Parameter boundaries
// ---------------------------------------------------------------------------

func TestSysVSeventhParameterOnStack(t *testing.T) {
	src := `func @seven(%a: i64, %b: i64, %c: i64, %d: i64, %e: i64, %f: i64, %g: i64) -> i64 {
entry:
  ret %g
}`
	out := mustTranslate(t, src, abi.SysV)
	// The seventh integer parameter lives at 16(%rbp): above the saved rbp
	// and return address.
	if !strings.Contains(out.Text, "16(%rbp)") {
		t.Errorf("seventh parameter should be read from the caller's frame:\n%s", out.Text)
	}
	for _, reg := range []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"} {
		if !strings.Contains(out.Text, reg) {
			t.Errorf("register parameter %s never homed:\n%s", reg, out.Text)
		}
	}
}

func TestWin64FifthParameterOnStack(t *testing.T) {
	src := `func @five(%a: i64, %b: i64, %c: i64, %d: i64, %e: i64) -> i64 {
entry:
  ret %e
}`
	out := mustTranslate(t, src, abi.Win64)
	// 16 for saved rbp + return address, plus the caller's 32-byte shadow
	// space, puts the fifth parameter at rbp+48.
	if !strings.Contains(out.Text, "[rbp+48]") {
		t.Errorf("fifth parameter should be read from beyond the shadow space:\n%s", out.Text)
	}
}

func TestWin64OverlappingIndexSpaces(t *testing.T) {
	// Under Win64 a float in position 1 consumes xmm1, not xmm0.
	src := `func @mixed(%a: i64, %x: f64) -> f64 {
entry:
  ret %x
}`
	out := mustTranslate(t, src, abi.Win64)
	if !strings.Contains(out.Text, "xmm1") {
		t.Errorf("second parameter should arrive in xmm1:\n%s", out.Text)
	}
}

func TestSysVIndependentIndexSpaces(t *testing.T) {
	// Under System V the same signature passes the float in xmm0.
	src := `func @mixed(%a: i64, %x: f64) -> f64 {
entry:
  ret %x
}`
	out := mustTranslate(t, src, abi.SysV)
	if !strings.Contains(out.Text, "%xmm0") {
		t.Errorf("first float parameter should arrive in xmm0:\n%s", out.Text)
	}
	if strings.Contains(out.Text, "%xmm1") {
		t.Errorf("no parameter occupies xmm1 under System V:\n%s", out.Text)
	}
}

func TestWin64StackArgumentCall(t *testing.T) {
	src := `func @many(%a: i64, %b: i64, %c: i64, %d: i64, %e: i64) -> i64 {
entry:
  %r = call i64 @sink(%a, %b, %c, %d, %e)
  ret %r
}`
	out := mustTranslate(t, src, abi.Win64)
	for _, want := range []string{
		"sub rsp, 16",          // stack argument slot + alignment pad
		"mov qword [rsp], r10", // fifth argument stored
		"call sink",
		"extern sink", // unknown callee declared extern
		"add rsp, 48", // shadow space + stack argument + alignment pad
	} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("missing %q in:\n%s", want, out.Text)
		}
	}
}

func TestSysVFloatStackArgumentCall(t *testing.T) {
	// Nine f64 arguments: xmm0 through xmm7 plus one stack slot.
	src := `func @spray(%x: f64) -> f64 {
entry:
  %r = call f64 @fsink(%x, %x, %x, %x, %x, %x, %x, %x, %x)
  ret %r
}`
	out := mustTranslate(t, src, abi.SysV)
	for _, want := range []string{
		"subq $16, %rsp",       // stack argument slot + alignment pad
		"movsd %xmm8, (%rsp)",  // ninth argument stored, not pushed
		"movsd %xmm8, %xmm7",   // eighth argument still in a register
		"call fsink",
		"addq $16, %rsp",
	} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("missing %q in:\n%s", want, out.Text)
		}
	}
	if strings.Contains(out.Text, "push") && strings.Count(out.Text, "pushq %rbp") != strings.Count(out.Text, "push") {
		t.Errorf("float arguments must not go through push:\n%s", out.Text)
	}
}

// ---------------------------------------------------------------------------
// Instruction selection details
// ---------------------------------------------------------------------------

func TestNegativeI32Compare(t *testing.T) {
	// A 32-bit load must sign-extend: stored -1 compares equal to the
	// constant -1 at the full comparison width.
	src := `func @negcmp(%p: ptr) -> i64 {
entry:
  %m = const i32 -1
  %v = load i32 %p
  %e = eq i32 %v, %m
  ret %e
}`
	out := mustTranslate(t, src, abi.SysV)
	for _, want := range []string{
		"movslq (%r10), %r11", // load sign-extends into the full register
		"cmpq $-1, %r10",
		"sete",
	} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("missing %q in:\n%s", want, out.Text)
		}
	}
	if strings.Contains(out.Text, "movl (") {
		t.Errorf("i32 load must not zero-extend:\n%s", out.Text)
	}
}

func TestNegativeI32Division(t *testing.T) {
	src := `func @halve(%p: ptr) -> i32 {
entry:
  %v = load i32 %p
  %two = const i32 2
  %q = div i32 %v, %two
  ret %q
}`
	out := mustTranslate(t, src, abi.SysV)
	for _, want := range []string{"movslq", "cqto", "idivq"} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("missing %q in:\n%s", want, out.Text)
		}
	}
}

func TestI32LogicalShiftWidth(t *testing.T) {
	// shr on i32 runs at 32 bits so sign-extension bits cannot reach bit 31.
	src := `func @lsr(%p: ptr) -> i32 {
entry:
  %v = load i32 %p
  %one = const i32 1
  %s = shr i32 %v, %one
  ret %s
}`
	out := mustTranslate(t, src, abi.SysV)
	if !strings.Contains(out.Text, "shrl $1, %r10d") {
		t.Errorf("i32 shift should use the 32-bit register:\n%s", out.Text)
	}
}

func TestDivisionSequence(t *testing.T) {
	src := `func @quot(%a: i64, %b: i64) -> i64 {
entry:
  %q = div i64 %a, %b
  ret %q
}`
	out := mustTranslate(t, src, abi.SysV)
	for _, want := range []string{"%rax", "cqto", "idivq"} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("missing %q in division sequence:\n%s", want, out.Text)
		}
	}
}

func TestVariableShiftUsesCL(t *testing.T) {
	src := `func @sh(%a: i64, %n: i64) -> i64 {
entry:
  %r = shl i64 %a, %n
  ret %r
}`
	out := mustTranslate(t, src, abi.SysV)
	if !strings.Contains(out.Text, "%cl") {
		t.Errorf("variable shift count must go through cl:\n%s", out.Text)
	}
}

func TestConstantShiftStaysImmediate(t *testing.T) {
	src := `func @sh(%a: i64) -> i64 {
entry:
  %n = const i64 3
  %r = shl i64 %a, %n
  ret %r
}`
	out := mustTranslate(t, src, abi.SysV)
	if !strings.Contains(out.Text, "shlq $3") {
		t.Errorf("constant shift count should fold to an immediate:\n%s", out.Text)
	}
}

func TestFloatArithmeticAndConstantPool(t *testing.T) {
	src := `func @scale(%x: f64) -> f64 {
entry:
  %k = const f64 1.5
  %r = mul f64 %x, %k
  ret %r
}`
	out := mustTranslate(t, src, abi.SysV)
	for _, want := range []string{
		".double 1.5",
		"LCF0(%rip)",
		"mulsd",
		"%xmm0",
	} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("missing %q in:\n%s", want, out.Text)
		}
	}
}

func TestAllocaLoadStore(t *testing.T) {
	src := `func @mem() -> i64 {
entry:
  %p = alloca i64
  %v = const i64 42
  store %p, %v
  %r = load i64 %p
  ret %r
}`
	out := mustTranslate(t, src, abi.SysV)
	if !strings.Contains(out.Text, "movq $42, -") {
		t.Errorf("store of a constant should write the immediate:\n%s", out.Text)
	}
}

// ---------------------------------------------------------------------------
// Failure behavior
// ---------------------------------------------------------------------------

func TestFailFastProducesNoOutput(t *testing.T) {
	src := `func @bad(%a: f64, %b: f64) -> f64 {
entry:
  %x = shl f64 %a, %b
  ret %x
}`
	out, err := translateSrc(t, src, abi.SysV)
	if err == nil {
		t.Fatal("expected an error")
	}
	if out != nil {
		t.Fatalf("failed translation must not return partial output: %+v", out)
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != ErrUnsupportedType {
		t.Fatalf("expected unsupported-type error, got %v", err)
	}
	if terr.Function != "bad" || terr.Loc.Line == 0 {
		t.Fatalf("error lacks position context: %+v", terr)
	}
}

func TestBrokenControlFlowRejected(t *testing.T) {
	src := `func @bad() -> i64 {
entry:
  jmp nowhere
}`
	out, err := translateSrc(t, src, abi.SysV)
	if err == nil || out != nil {
		t.Fatalf("expected validation failure, got out=%v err=%v", out, err)
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != ErrInvalidOperand {
		t.Fatalf("expected invalid-operand error, got %v", err)
	}
}

func TestFrameLimitEnforced(t *testing.T) {
	mod, err := ir.ParseModule(addSrc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ABI = abi.SysV
	cfg.FrameLimit = 16 // below what even the smallest frame needs
	_, err = Module(mod, cfg)
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != ErrStackOverflow {
		t.Fatalf("expected stack-overflow error, got %v", err)
	}
}

func TestNarrowLoadRejected(t *testing.T) {
	src := `func @bad(%p: ptr) -> i64 {
entry:
  %v = load i8 %p
  ret %v
}`
	_, err := translateSrc(t, src, abi.SysV)
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != ErrUnsupportedType {
		t.Fatalf("expected unsupported-type error for i8 load, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

func TestMappingSideFile(t *testing.T) {
	mod, err := ir.ParseModule(addSrc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ABI = abi.SysV
	cfg.EmitMapping = true
	out, err := Module(mod, cfg)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	if !strings.HasPrefix(out.Mapping, "jsavrs-map 1\n") {
		t.Fatalf("missing version header:\n%s", out.Mapping)
	}
	if !strings.Contains(out.Mapping, ".Ladd_entry") {
		t.Errorf("entries should name the enclosing label:\n%s", out.Mapping)
	}
	// The add instruction sits on line 5 of the source.
	if !strings.Contains(out.Mapping, "5:3 -> ") {
		t.Errorf("missing entry for the add instruction:\n%s", out.Mapping)
	}
}

func TestMappingEmptyWhenDisabled(t *testing.T) {
	out := mustTranslate(t, addSrc, abi.SysV)
	if out.Mapping != "" {
		t.Fatalf("mapping emitted without being requested: %q", out.Mapping)
	}
}
