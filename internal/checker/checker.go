// Package checker defines the type-query capability the expansion engine
// consumes. Front ends (the schema manifest, Go packages) implement these
// interfaces; the engine never mutates anything it receives through them.
package checker

// Flags classifies a Type. A type carries exactly one of the kind flags below.
type Flags uint32

const (
	String Flags = 1 << iota
	Number
	Boolean
	Null
	Undefined
	Void
	Any
	Unknown
	Never
	StringLiteral
	NumberLiteral
	BooleanLiteral
	EnumLiteral
	Union
	Intersection
	Object
)

// Literal covers the three plain literal kinds.
const Literal = StringLiteral | NumberLiteral | BooleanLiteral

// Has reports whether any bit of mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask != 0
}

func (f Flags) String() string {
	switch f {
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Null:
		return "null"
	case Undefined:
		return "undefined"
	case Void:
		return "void"
	case Any:
		return "any"
	case Unknown:
		return "unknown"
	case Never:
		return "never"
	case StringLiteral:
		return "string-literal"
	case NumberLiteral:
		return "number-literal"
	case BooleanLiteral:
		return "boolean-literal"
	case EnumLiteral:
		return "enum-literal"
	case Union:
		return "union"
	case Intersection:
		return "intersection"
	case Object:
		return "object"
	default:
		return "mixed"
	}
}

// NodeKind classifies a declaration or use-site node.
type NodeKind int

const (
	OtherNode NodeKind = iota
	PropertySignature
	MethodSignature
	MethodDeclaration
	PropertyAssignment
	TypeReference
)

// Type is a resolved type at a specific use site.
type Type interface {
	Flags() Flags

	// Text is the capability's default rendering. It may contain
	// module qualifications of the form import("...").Name.
	Text(site Node) string

	AliasSymbol() Symbol
	AliasTypeArguments() []Type
	Symbol() Symbol
	// TargetSymbol is the symbol of the generic target for instantiated
	// references (Array for string[]), or nil.
	TargetSymbol() Symbol
	TypeArguments() []Type

	Properties() []Symbol
	Property(name string) Symbol
	// UnionTypes returns the constituents of a union or an intersection.
	UnionTypes() []Type

	IsArray() bool
	IsReadonlyArray() bool
	IsTuple() bool
	TupleElements() []Type
	ArrayElementType() Type

	StringIndexType() Type
	NumberIndexType() Type
}

// Symbol is a named entity: a property, a declaration, or a builtin.
type Symbol interface {
	Name() string
	Optional() bool
	// Module is the path of the module declaring the symbol, or "" for
	// globals and anonymous members.
	Module() string
	Declaration() Node
	// TypeAt resolves the symbol's type as seen from site. Resolution at a
	// site the capability does not know is an error.
	TypeAt(site Node) (Type, error)
}

// Node is a syntax position: a declaration or a use site.
type Node interface {
	Kind() NodeKind
	Initializer() Node
	Type() Type
}

// NameOf returns the symbol's name, or "" for a nil symbol.
func NameOf(s Symbol) string {
	if s == nil {
		return ""
	}
	return s.Name()
}
