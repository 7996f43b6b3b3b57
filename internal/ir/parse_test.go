package ir

import (
	"strings"
	"testing"
)

func TestParseAddFunction(t *testing.T) {
	src := `module demo

func @add(%a: i64, %b: i64) -> i64 {
entry:
  %c = add i64 %a, %b
  ret %c
}`
	mod, err := ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if mod.Name != "demo" {
		t.Fatalf("expected module name demo, got %q", mod.Name)
	}
	if len(mod.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(mod.Functions))
	}

	fn := mod.Functions[0]
	if fn.Name != "add" || fn.Return != I64 {
		t.Fatalf("bad header: %q -> %s", fn.Name, fn.Return)
	}
	if len(fn.Params) != 2 || fn.Params[0].Name != "a" || fn.Params[1].Type != I64 {
		t.Fatalf("bad params: %+v", fn.Params)
	}
	if len(fn.Blocks) != 1 || fn.Blocks[0].Name != "entry" {
		t.Fatalf("bad blocks: %+v", fn.Blocks)
	}

	b := fn.Blocks[0]
	if len(b.Instrs) != 1 || b.Instrs[0].Op != OpAdd {
		t.Fatalf("expected one add instruction, got %+v", b.Instrs)
	}
	if b.Instrs[0].Args[0] != fn.Params[0].ID || b.Instrs[0].Args[1] != fn.Params[1].ID {
		t.Fatalf("add does not reference the parameters: %+v", b.Instrs[0])
	}
	if b.Term.Kind != TermReturn || !b.Term.HasValue || b.Term.Value != b.Instrs[0].ID {
		t.Fatalf("bad terminator: %+v", b.Term)
	}
}

func TestParseControlFlow(t *testing.T) {
	src := `func @pick(%a: i64, %b: i64) -> i64 {
entry:
  %c = lt i64 %a, %b
  br %c, less, more
less:
  ret %b
more:
  ret %a
}`
	mod, err := ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := mod.Functions[0]
	if len(fn.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(fn.Blocks))
	}
	term := fn.Blocks[0].Term
	if term.Kind != TermCondJump {
		t.Fatalf("expected conditional jump, got %+v", term)
	}
	if fn.BlockByID(term.Then).Name != "less" || fn.BlockByID(term.Else).Name != "more" {
		t.Fatalf("branch targets do not resolve: %+v", term)
	}
}

func TestParseConstAllocaLoadStore(t *testing.T) {
	src := `func @mem() -> i64 {
entry:
  %p = alloca i64
  %v = const i64 42
  store %p, %v
  %r = load i64 %p
  ret %r
}`
	mod, err := ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	instrs := mod.Functions[0].Blocks[0].Instrs
	if len(instrs) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(instrs))
	}
	if instrs[1].Op != OpConst || instrs[1].Int != 42 {
		t.Fatalf("bad const: %+v", instrs[1])
	}
	if instrs[2].Op != OpStore || instrs[2].ID != InvalidValue {
		t.Fatalf("store must not produce a value: %+v", instrs[2])
	}
	if instrs[3].Op != OpLoad || instrs[3].Args[0] != instrs[0].ID {
		t.Fatalf("load does not reference the alloca: %+v", instrs[3])
	}
}

func TestParseCall(t *testing.T) {
	src := `func @caller(%x: i64) -> i64 {
entry:
  %r = call i64 @callee(%x, %x)
  ret %r
}`
	mod, err := ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	in := mod.Functions[0].Blocks[0].Instrs[0]
	if in.Op != OpCall || in.Callee != "callee" || len(in.Args) != 2 {
		t.Fatalf("bad call: %+v", in)
	}
}

func TestParseUndefinedValue(t *testing.T) {
	src := `func @bad() -> i64 {
entry:
  ret %nope
}`
	_, err := ParseModule(src)
	if err == nil || !strings.Contains(err.Error(), "undefined value") {
		t.Fatalf("expected undefined-value error, got %v", err)
	}
}

func TestParseMissingTerminator(t *testing.T) {
	src := `func @bad() -> i64 {
entry:
  %v = const i64 1
}`
	_, err := ParseModule(src)
	if err == nil || !strings.Contains(err.Error(), "no terminator") {
		t.Fatalf("expected missing-terminator error, got %v", err)
	}
}

func TestValidateUnknownJumpTarget(t *testing.T) {
	// jmp to a label that is never defined parses (forward reference) but
	// must fail validation.
	src := `func @bad() -> i64 {
entry:
  jmp nowhere
}`
	mod, err := ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Validate(mod); err == nil || !strings.Contains(err.Error(), "unknown block") {
		t.Fatalf("expected unknown-block error, got %v", err)
	}
}

func TestValidateVoidReturnValue(t *testing.T) {
	mod := &Module{Functions: []*Function{{
		Name: "v",
		Blocks: []*Block{{
			ID: 1, Name: "entry",
			Term: Term{Kind: TermReturn, Value: 1, HasValue: true},
		}},
	}}}
	if err := Validate(mod); err == nil || !strings.Contains(err.Error(), "void") {
		t.Fatalf("expected void-return error, got %v", err)
	}
}

func TestLocationTracksSourceLines(t *testing.T) {
	src := `func @f() -> i64 {
entry:
  %v = const i64 7
  ret %v
}`
	mod, err := ParseModule(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	in := mod.Functions[0].Blocks[0].Instrs[0]
	if in.Loc.Line != 3 {
		t.Fatalf("expected const on line 3, got %d", in.Loc.Line)
	}
}
