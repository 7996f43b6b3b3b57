package ir

// Type is the closed set of value types the backend understands.
type Type int

const (
	Void Type = iota
	I8
	I16
	I32
	I64
	F32
	F64
	Ptr
)

var typeNames = map[Type]string{
	Void: "void", I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	F32: "f32", F64: "f64", Ptr: "ptr",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "type?"
}

// ParseType maps a type name to its Type, reporting whether it is known.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return Void, false
}

// Size returns the size of the type in bytes.
func (t Type) Size() int {
	switch t {
	case I8:
		return 1
	case I16:
		return 2
	case I32, F32:
		return 4
	case I64, F64, Ptr:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether the type lives in the floating-point register file.
func (t Type) IsFloat() bool { return t == F32 || t == F64 }

// IsInteger reports whether the type lives in the integer register file.
// Pointers are passed and operated on as integers.
func (t Type) IsInteger() bool {
	return t == I8 || t == I16 || t == I32 || t == I64 || t == Ptr
}
