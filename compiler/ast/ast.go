// Package ast defines the uniform syntax tree node and its services.
// Nodes live in an arena owned by a Builder; they are never freed one
// by one, the whole arena is reset between compilations.
package ast

import (
	"github.com/cruxlang/crux/compiler/memory"
	"github.com/cruxlang/crux/compiler/token"
)

type (
	Kind int

	// Literal is a literal payload attached to literal nodes.
	Literal struct {
		Int   int64
		Float float64
		Bool  bool
	}

	// Symbol is symbol metadata attached by later passes.
	Symbol struct {
		Name  string
		Decl  *Node
		Scope int
	}

	// Node is a uniform heterogeneous tree node: a kind, an optional
	// value (identifier name, literal text or operator lexeme) and an
	// ordered list of children whose roles depend on the kind.
	Node struct {
		Kind     Kind
		Value    string
		Children []*Node

		Line int
		Col  int

		Lit Literal
		Sym *Symbol
	}

	// Builder allocates nodes from an arena and node values from the
	// string pool.
	Builder struct {
		arena *memory.Arena[Node]
		pool  *memory.Pool
	}
)

const (
	// Program structure
	Program Kind = iota
	Module
	Import
	Export

	// Declarations
	Function
	VarDecl
	Struct
	Enum
	Union
	Param
	ParamList

	// Types
	Type
	PointerType
	ArrayType

	// Statements
	Block
	ExprStmt
	ReturnStmt
	IfStmt
	WhileStmt
	ForStmt
	DoWhileStmt
	SwitchStmt
	CaseStmt
	DefaultStmt
	BreakStmt
	ContinueStmt

	// Expressions
	Assign
	BinaryOp
	UnaryOp
	PostfixOp
	Ternary
	Call
	ArrayAccess
	MemberAccess
	Sizeof

	// Literals
	NumberLit
	FloatLit
	StringLit
	CharLit
	BoolLit
	NullLit

	// Identifiers and values
	Ident
	EnumValue

	// Casts and conversions
	Cast
	TypeConv

	// Empty is the sentinel for an omitted for-clause.
	Empty
)

var kindNames = map[Kind]string{
	Program:      "PROGRAM",
	Module:       "MODULE",
	Import:       "IMPORT",
	Export:       "EXPORT",
	Function:     "FUNCTION",
	VarDecl:      "VARIABLE_DECLARATION",
	Struct:       "STRUCT",
	Enum:         "ENUM",
	Union:        "UNION",
	Param:        "PARAMETER",
	ParamList:    "PARAMETER_LIST",
	Type:         "TYPE",
	PointerType:  "POINTER_TYPE",
	ArrayType:    "ARRAY_TYPE",
	Block:        "BLOCK",
	ExprStmt:     "EXPRESSION_STATEMENT",
	ReturnStmt:   "RETURN_STATEMENT",
	IfStmt:       "IF_STATEMENT",
	WhileStmt:    "WHILE_STATEMENT",
	ForStmt:      "FOR_STATEMENT",
	DoWhileStmt:  "DO_WHILE_STATEMENT",
	SwitchStmt:   "SWITCH_STATEMENT",
	CaseStmt:     "CASE_STATEMENT",
	DefaultStmt:  "DEFAULT_STATEMENT",
	BreakStmt:    "BREAK_STATEMENT",
	ContinueStmt: "CONTINUE_STATEMENT",
	Assign:       "ASSIGNMENT",
	BinaryOp:     "BINARY_OP",
	UnaryOp:      "UNARY_OP",
	PostfixOp:    "POSTFIX_OP",
	Ternary:      "TERNARY",
	Call:         "FUNCTION_CALL",
	ArrayAccess:  "ARRAY_ACCESS",
	MemberAccess: "MEMBER_ACCESS",
	Sizeof:       "SIZEOF",
	NumberLit:    "NUMBER_LITERAL",
	FloatLit:     "FLOAT_LITERAL",
	StringLit:    "STRING_LITERAL",
	CharLit:      "CHAR_LITERAL",
	BoolLit:      "BOOL_LITERAL",
	NullLit:      "NULL_LITERAL",
	Ident:        "IDENTIFIER",
	EnumValue:    "ENUM_VALUE",
	Cast:         "CAST",
	TypeConv:     "TYPE_CONVERSION",
	Empty:        "EMPTY",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "UNKNOWN"
}

func NewBuilder(arena *memory.Arena[Node], pool *memory.Pool) *Builder {
	return &Builder{
		arena: arena,
		pool:  pool,
	}
}

// New allocates a node of the given kind from the arena.
func (b *Builder) New(k Kind) *Node {
	n := b.arena.Alloc()
	n.Kind = k

	return n
}

// NewValue allocates a node and interns its value.
func (b *Builder) NewValue(k Kind, value string) *Node {
	n := b.New(k)
	if value != "" {
		n.Value = b.pool.InternString(value)
	}

	return n
}

// NewLiteral allocates a literal node with its payload.
func (b *Builder) NewLiteral(k Kind, value string, lit Literal) *Node {
	n := b.NewValue(k, value)
	n.Lit = lit

	return n
}

// NewToken allocates a node from a token, carrying over the lexeme,
// the location and the literal payload.
func (b *Builder) NewToken(k Kind, tk token.Token) *Node {
	n := b.NewValue(k, tk.Text)
	n.Line = tk.Line
	n.Col = tk.Col
	n.Lit = Literal{Int: tk.Lit.Int, Float: tk.Lit.Float, Bool: tk.Lit.Bool}

	return n
}

// Copy deep-copies a subtree into the builder's arena.
func (b *Builder) Copy(n *Node) *Node {
	if n == nil {
		return nil
	}

	c := b.NewValue(n.Kind, n.Value)
	c.Line = n.Line
	c.Col = n.Col
	c.Lit = n.Lit
	c.Sym = n.Sym

	for _, child := range n.Children {
		if cc := b.Copy(child); cc != nil {
			c.AddChild(cc)
		}
	}

	return c
}

// AddChild appends a child, growing the children array from an initial
// capacity of 4, doubling. Nil children are ignored; omitted clauses
// are represented by Empty nodes.
func (n *Node) AddChild(child *Node) {
	if n == nil || child == nil {
		return
	}

	if len(n.Children) == cap(n.Children) {
		capacity := cap(n.Children) * 2
		if capacity == 0 {
			capacity = 4
		}

		grown := make([]*Node, len(n.Children), capacity)
		copy(grown, n.Children)
		n.Children = grown
	}

	n.Children = append(n.Children, child)
}

// InsertChild inserts a child at index, shifting the rest right.
func (n *Node) InsertChild(index int, child *Node) {
	if n == nil || child == nil || index < 0 || index > len(n.Children) {
		return
	}

	n.AddChild(child)
	copy(n.Children[index+1:], n.Children[index:len(n.Children)-1])
	n.Children[index] = child
}

// RemoveChild removes the child at index, shifting the rest left.
func (n *Node) RemoveChild(index int) {
	if n == nil || index < 0 || index >= len(n.Children) {
		return
	}

	copy(n.Children[index:], n.Children[index+1:])
	n.Children = n.Children[:len(n.Children)-1]
}

// Child returns the child at index or nil.
func (n *Node) Child(index int) *Node {
	if n == nil || index < 0 || index >= len(n.Children) {
		return nil
	}

	return n.Children[index]
}

// Free is a no-op kept for API symmetry; nodes are arena-owned and
// reclaimed in bulk.
func (n *Node) Free() {}

// Visit walks the subtree pre-order.
func Visit(n *Node, visitor func(*Node)) {
	if n == nil || visitor == nil {
		return
	}

	visitor(n)

	for _, c := range n.Children {
		Visit(c, visitor)
	}
}

// VisitContext walks the subtree pre-order threading a context value.
func VisitContext(n *Node, ctx any, visitor func(*Node, any)) {
	if n == nil || visitor == nil {
		return
	}

	visitor(n, ctx)

	for _, c := range n.Children {
		VisitContext(c, ctx, visitor)
	}
}

// FindByKind returns the first node of the given kind, pre-order.
func FindByKind(root *Node, k Kind) *Node {
	if root == nil {
		return nil
	}

	if root.Kind == k {
		return root
	}

	for _, c := range root.Children {
		if found := FindByKind(c, k); found != nil {
			return found
		}
	}

	return nil
}

// FindByValue returns the first node with the given value, pre-order.
func FindByValue(root *Node, value string) *Node {
	if root == nil {
		return nil
	}

	if root.Value != "" && root.Value == value {
		return root
	}

	for _, c := range root.Children {
		if found := FindByValue(c, value); found != nil {
			return found
		}
	}

	return nil
}

func IsLiteralKind(k Kind) bool {
	return k >= NumberLit && k <= NullLit
}

func IsStatementKind(k Kind) bool {
	return k >= Block && k <= ContinueStmt
}

func IsExpressionKind(k Kind) bool {
	return k >= Assign && k <= Sizeof || IsLiteralKind(k) || k == Ident
}

func IsDeclarationKind(k Kind) bool {
	return k >= Function && k <= ParamList
}
