package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Textual IR reader
//
// A compact line-oriented format, one instruction per line:
//
//	module demo
//
//	func @add(%a: i64, %b: i64) -> i64 {
//	entry:
//	  %t = add i64 %a, %b
//	  ret %t
//	}
//
// Instructions: add sub mul div and or xor shl shr eq ne lt le gt ge,
// const, alloca, load, store, call.  Terminators: ret, jmp, br, unreachable.
// `;` starts a comment.  This reader stands in for the upstream collaborator
// that would otherwise hand the translator an already-built module.
// ---------------------------------------------------------------------------

// ParseError is a syntax error in the textual IR.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ir parse error on line %d: %s", e.Line, e.Msg)
}

type parser struct {
	lines []string
	pos   int // index of the line currently being parsed

	mod *Module

	// per-function state
	fn        *Function
	values    map[string]ValueID
	nextValue ValueID
	blocks    map[string]BlockID
	nextBlock BlockID
	cur       *Block
}

// ParseModule parses a whole textual IR module.
func ParseModule(src string) (*Module, error) {
	p := &parser{
		lines: strings.Split(src, "\n"),
		mod:   &Module{Name: "module"},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.mod, nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &ParseError{Line: p.pos + 1, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) loc(line string) Location {
	col := 1 + len(line) - len(strings.TrimLeft(line, " \t"))
	return Location{Line: p.pos + 1, Col: col}
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, " \t\r")
}

func (p *parser) run() error {
	for p.pos = 0; p.pos < len(p.lines); p.pos++ {
		raw := p.lines[p.pos]
		line := strings.TrimSpace(stripComment(raw))
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "module "):
			p.mod.Name = strings.TrimSpace(strings.TrimPrefix(line, "module "))
		case strings.HasPrefix(line, "func "):
			if err := p.parseFunction(line); err != nil {
				return err
			}
		default:
			return p.errf("expected 'module' or 'func', got %q", line)
		}
	}
	return nil
}

// parseFunction consumes the header line plus the body up to its closing '}'.
func (p *parser) parseFunction(header string) error {
	name, params, ret, err := p.parseHeader(header)
	if err != nil {
		return err
	}

	p.fn = &Function{Name: name, Return: ret, Loc: Location{Line: p.pos + 1, Col: 1}}
	p.values = make(map[string]ValueID)
	p.nextValue = 1
	p.blocks = make(map[string]BlockID)
	p.nextBlock = 1
	p.cur = nil

	for _, pr := range params {
		id := p.defineValue(pr.Name)
		p.fn.Params = append(p.fn.Params, Param{ID: id, Name: pr.Name, Type: pr.Type})
	}

	for p.pos++; p.pos < len(p.lines); p.pos++ {
		raw := p.lines[p.pos]
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}
		if line == "}" {
			if p.cur != nil && p.cur.Term.Kind == TermNone {
				return p.errf("block %q has no terminator", p.cur.Name)
			}
			p.mod.Functions = append(p.mod.Functions, p.fn)
			p.fn = nil
			return nil
		}
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			p.startBlock(strings.TrimSuffix(line, ":"))
			continue
		}
		if p.cur == nil {
			// An instruction before any label opens an implicit entry block.
			p.startBlock("entry")
		}
		if err := p.parseLine(line, p.loc(raw)); err != nil {
			return err
		}
	}
	return p.errf("missing '}' at end of function @%s", name)
}

func (p *parser) parseHeader(line string) (string, []Param, Type, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "func "))
	if !strings.HasSuffix(rest, "{") {
		return "", nil, Void, p.errf("function header must end with '{'")
	}
	rest = strings.TrimSpace(strings.TrimSuffix(rest, "{"))

	open := strings.IndexByte(rest, '(')
	close_ := strings.LastIndexByte(rest, ')')
	if open < 0 || close_ < open {
		return "", nil, Void, p.errf("malformed parameter list")
	}
	name := strings.TrimPrefix(strings.TrimSpace(rest[:open]), "@")
	if name == "" {
		return "", nil, Void, p.errf("function has no name")
	}

	var params []Param
	paramSrc := strings.TrimSpace(rest[open+1 : close_])
	if paramSrc != "" {
		for _, part := range strings.Split(paramSrc, ",") {
			nv := strings.SplitN(part, ":", 2)
			if len(nv) != 2 {
				return "", nil, Void, p.errf("parameter %q must be '%%name: type'", strings.TrimSpace(part))
			}
			pname := strings.TrimPrefix(strings.TrimSpace(nv[0]), "%")
			ptype, ok := ParseType(strings.TrimSpace(nv[1]))
			if !ok {
				return "", nil, Void, p.errf("unknown parameter type %q", strings.TrimSpace(nv[1]))
			}
			params = append(params, Param{Name: pname, Type: ptype})
		}
	}

	ret := Void
	tail := strings.TrimSpace(rest[close_+1:])
	if tail != "" {
		if !strings.HasPrefix(tail, "->") {
			return "", nil, Void, p.errf("expected '-> type' after parameter list")
		}
		var ok bool
		ret, ok = ParseType(strings.TrimSpace(strings.TrimPrefix(tail, "->")))
		if !ok {
			return "", nil, Void, p.errf("unknown return type %q", tail)
		}
	}
	return name, params, ret, nil
}

func (p *parser) startBlock(name string) {
	b := &Block{ID: p.blockID(name), Name: name, Loc: Location{Line: p.pos + 1, Col: 1}}
	p.fn.Blocks = append(p.fn.Blocks, b)
	p.cur = b
}

func (p *parser) blockID(name string) BlockID {
	if id, ok := p.blocks[name]; ok {
		return id
	}
	id := p.nextBlock
	p.nextBlock++
	p.blocks[name] = id
	return id
}

func (p *parser) defineValue(name string) ValueID {
	id := p.nextValue
	p.nextValue++
	p.values[name] = id
	return id
}

func (p *parser) valueRef(tok string) (ValueID, error) {
	name := strings.TrimPrefix(strings.TrimSpace(tok), "%")
	id, ok := p.values[name]
	if !ok {
		return InvalidValue, p.errf("reference to undefined value %%%s", name)
	}
	return id, nil
}

// fields splits on spaces and commas, keeping call argument lists intact.
func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
}

func (p *parser) parseLine(line string, loc Location) error {
	if p.cur.Term.Kind != TermNone {
		return p.errf("instruction after terminator in block %q", p.cur.Name)
	}

	// Terminators.
	toks := fields(line)
	switch toks[0] {
	case "ret":
		t := Term{Kind: TermReturn, Loc: loc}
		if len(toks) > 1 {
			v, err := p.valueRef(toks[1])
			if err != nil {
				return err
			}
			t.Value, t.HasValue = v, true
		}
		p.cur.Term = t
		return nil
	case "jmp":
		if len(toks) != 2 {
			return p.errf("jmp takes one target label")
		}
		p.cur.Term = Term{Kind: TermJump, Target: p.blockID(toks[1]), Loc: loc}
		return nil
	case "br":
		if len(toks) != 4 {
			return p.errf("br takes a condition and two target labels")
		}
		cond, err := p.valueRef(toks[1])
		if err != nil {
			return err
		}
		p.cur.Term = Term{Kind: TermCondJump, Cond: cond,
			Then: p.blockID(toks[2]), Else: p.blockID(toks[3]), Loc: loc}
		return nil
	case "unreachable":
		p.cur.Term = Term{Kind: TermUnreachable, Loc: loc}
		return nil
	}

	// Instructions, with or without a result.
	var resultName string
	body := line
	if eq := strings.Index(line, "="); eq > 0 && strings.HasPrefix(line, "%") {
		resultName = strings.TrimPrefix(strings.TrimSpace(line[:eq]), "%")
		body = strings.TrimSpace(line[eq+1:])
	}
	toks = fields(body)
	if len(toks) == 0 {
		return p.errf("empty instruction")
	}
	op, ok := ParseOpcode(toks[0])
	if !ok {
		return p.errf("unknown instruction %q", toks[0])
	}

	in := Instr{Op: op, Loc: loc}
	switch {
	case op == OpConst:
		if len(toks) != 3 {
			return p.errf("const takes a type and a literal")
		}
		in.Type, ok = ParseType(toks[1])
		if !ok {
			return p.errf("unknown type %q", toks[1])
		}
		if in.Type.IsFloat() {
			f, err := strconv.ParseFloat(toks[2], 64)
			if err != nil {
				return p.errf("bad float literal %q", toks[2])
			}
			in.Float = f
		} else {
			n, err := strconv.ParseInt(toks[2], 0, 64)
			if err != nil {
				return p.errf("bad integer literal %q", toks[2])
			}
			in.Int = n
		}
	case op == OpAlloca:
		if len(toks) != 2 {
			return p.errf("alloca takes a type")
		}
		in.Type, ok = ParseType(toks[1])
		if !ok {
			return p.errf("unknown type %q", toks[1])
		}
	case op == OpLoad:
		if len(toks) != 3 {
			return p.errf("load takes a type and an address")
		}
		in.Type, ok = ParseType(toks[1])
		if !ok {
			return p.errf("unknown type %q", toks[1])
		}
		addr, err := p.valueRef(toks[2])
		if err != nil {
			return err
		}
		in.Args = []ValueID{addr}
	case op == OpStore:
		if len(toks) != 3 {
			return p.errf("store takes an address and a value")
		}
		addr, err := p.valueRef(toks[1])
		if err != nil {
			return err
		}
		val, err := p.valueRef(toks[2])
		if err != nil {
			return err
		}
		in.Args = []ValueID{addr, val}
	case op == OpCall:
		return p.parseCall(&in, body, resultName, loc)
	default: // binary ops and comparisons
		if len(toks) != 4 {
			return p.errf("%s takes a type and two operands", toks[0])
		}
		in.Type, ok = ParseType(toks[1])
		if !ok {
			return p.errf("unknown type %q", toks[1])
		}
		lhs, err := p.valueRef(toks[2])
		if err != nil {
			return err
		}
		rhs, err := p.valueRef(toks[3])
		if err != nil {
			return err
		}
		in.Args = []ValueID{lhs, rhs}
	}

	if resultName != "" {
		in.ID = p.defineValue(resultName)
	}
	p.cur.Instrs = append(p.cur.Instrs, in)
	return nil
}

// parseCall handles `call TYPE @name(%a, %b)` bodies.
func (p *parser) parseCall(in *Instr, body, resultName string, loc Location) error {
	rest := strings.TrimSpace(strings.TrimPrefix(body, "call"))
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return p.errf("call takes a return type and a callee")
	}
	typ, ok := ParseType(rest[:sp])
	if !ok {
		return p.errf("unknown type %q", rest[:sp])
	}
	in.Type = typ

	rest = strings.TrimSpace(rest[sp+1:])
	open := strings.IndexByte(rest, '(')
	close_ := strings.LastIndexByte(rest, ')')
	if open < 0 || close_ < open {
		return p.errf("malformed call argument list")
	}
	in.Callee = strings.TrimPrefix(strings.TrimSpace(rest[:open]), "@")
	if in.Callee == "" {
		return p.errf("call has no callee")
	}
	for _, tok := range fields(rest[open+1 : close_]) {
		v, err := p.valueRef(tok)
		if err != nil {
			return err
		}
		in.Args = append(in.Args, v)
	}

	if resultName != "" {
		in.ID = p.defineValue(resultName)
	}
	p.cur.Instrs = append(p.cur.Instrs, *in)
	return nil
}
