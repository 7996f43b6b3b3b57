package translate

// SymbolKind classifies entries in the symbol table.
type SymbolKind int

const (
	SymFunction SymbolKind = iota
	SymVariable
	SymConstant
)

func (k SymbolKind) String() string {
	switch k {
	case SymFunction:
		return "function"
	case SymVariable:
		return "variable"
	default:
		return "constant"
	}
}

// SymbolInfo maps an IR name onto its assembly identity.  Addr is present
// only for statically known absolute or section-relative locations; it is
// absent for stack-relative locals and unresolved externs.
type SymbolInfo struct {
	Name    string // original IR name
	AsmName string
	Kind    SymbolKind
	Addr    int64
	HasAddr bool
	Extern  bool
}

// SymbolTable grows monotonically over a whole module translation so that
// later-declared functions stay referenceable from earlier call sites.
type SymbolTable struct {
	syms map[string]*SymbolInfo
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[string]*SymbolInfo)}
}

// Define records a symbol, replacing any earlier entry of the same name.
func (t *SymbolTable) Define(name, asmName string, kind SymbolKind) *SymbolInfo {
	s := &SymbolInfo{Name: name, AsmName: asmName, Kind: kind}
	t.syms[name] = s
	return s
}

// Lookup resolves an IR name.
func (t *SymbolTable) Lookup(name string) (*SymbolInfo, bool) {
	s, ok := t.syms[name]
	return s, ok
}
