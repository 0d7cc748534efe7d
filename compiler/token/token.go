// Package token defines the lexical vocabulary of the language.
package token

type (
	Kind int

	// Literal is the payload of literal tokens: Int for numbers and
	// chars, Float for floats, Bool for true/false.
	Literal struct {
		Int   int64
		Float float64
		Bool  bool
	}

	// Token is a value object. The parser holds exactly one lookahead
	// at a time; Text is interned in the string pool.
	Token struct {
		Kind Kind
		Text string
		Line int
		Col  int
		Lit  Literal
	}
)

const (
	// Literals
	Number Kind = iota
	Float
	Ident
	String
	Char
	Bool

	// Primitive types
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	BoolType
	Void

	// Keywords
	Struct
	Enum
	Union
	Return
	If
	Else
	While
	For
	Do
	Switch
	Case
	Default
	Break
	Continue
	Const
	Static
	Extern
	Sizeof
	True
	False
	Null

	// Module system
	Import
	Export
	Module

	// Operators
	Plus
	Minus
	Mul
	Div
	Mod
	Assign
	PlusAssign
	MinusAssign
	MulAssign
	DivAssign
	ModAssign
	Inc
	Dec

	// Comparison
	Eq
	NotEq
	Less
	Greater
	LessEq
	GreaterEq

	// Logical
	AndAnd
	OrOr
	Not

	// Bitwise
	And
	Or
	Xor
	Tilde
	Shl
	Shr

	// Memory
	AddrOf
	Deref
	Arrow
	Dot

	// Punctuation
	Semicolon
	Colon
	Comma
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Question

	// Special
	EOF
	Invalid
	Newline
)

var kindNames = map[Kind]string{
	Number:      "NUMBER",
	Float:       "FLOAT",
	Ident:       "IDENTIFIER",
	String:      "STRING",
	Char:        "CHAR",
	Bool:        "BOOL",
	I8:          "I8",
	I16:         "I16",
	I32:         "I32",
	I64:         "I64",
	U8:          "U8",
	U16:         "U16",
	U32:         "U32",
	U64:         "U64",
	F32:         "F32",
	F64:         "F64",
	BoolType:    "BOOL_TYPE",
	Void:        "VOID",
	Struct:      "STRUCT",
	Enum:        "ENUM",
	Union:       "UNION",
	Return:      "RETURN",
	If:          "IF",
	Else:        "ELSE",
	While:       "WHILE",
	For:         "FOR",
	Do:          "DO",
	Switch:      "SWITCH",
	Case:        "CASE",
	Default:     "DEFAULT",
	Break:       "BREAK",
	Continue:    "CONTINUE",
	Const:       "CONST",
	Static:      "STATIC",
	Extern:      "EXTERN",
	Sizeof:      "SIZEOF",
	True:        "TRUE",
	False:       "FALSE",
	Null:        "NULL",
	Import:      "IMPORT",
	Export:      "EXPORT",
	Module:      "MODULE",
	Plus:        "PLUS",
	Minus:       "MINUS",
	Mul:         "MULTIPLY",
	Div:         "DIVIDE",
	Mod:         "MODULO",
	Assign:      "ASSIGN",
	PlusAssign:  "PLUS_ASSIGN",
	MinusAssign: "MINUS_ASSIGN",
	MulAssign:   "MULTIPLY_ASSIGN",
	DivAssign:   "DIVIDE_ASSIGN",
	ModAssign:   "MODULO_ASSIGN",
	Inc:         "INCREMENT",
	Dec:         "DECREMENT",
	Eq:          "EQUAL",
	NotEq:       "NOT_EQUAL",
	Less:        "LESS_THAN",
	Greater:     "GREATER_THAN",
	LessEq:      "LESS_EQUAL",
	GreaterEq:   "GREATER_EQUAL",
	AndAnd:      "LOGICAL_AND",
	OrOr:        "LOGICAL_OR",
	Not:         "LOGICAL_NOT",
	And:         "BITWISE_AND",
	Or:          "BITWISE_OR",
	Xor:         "BITWISE_XOR",
	Tilde:       "BITWISE_NOT",
	Shl:         "LEFT_SHIFT",
	Shr:         "RIGHT_SHIFT",
	AddrOf:      "ADDRESS_OF",
	Deref:       "DEREFERENCE",
	Arrow:       "ARROW",
	Dot:         "DOT",
	Semicolon:   "SEMICOLON",
	Colon:       "COLON",
	Comma:       "COMMA",
	LParen:      "LEFT_PAREN",
	RParen:      "RIGHT_PAREN",
	LBrace:      "LEFT_BRACE",
	RBrace:      "RIGHT_BRACE",
	LBracket:    "LEFT_BRACKET",
	RBracket:    "RIGHT_BRACKET",
	Question:    "QUESTION",
	EOF:         "EOF",
	Invalid:     "INVALID",
	Newline:     "NEWLINE",
}

var keywords = map[string]Kind{
	"i8":       I8,
	"i16":      I16,
	"i32":      I32,
	"i64":      I64,
	"u8":       U8,
	"u16":      U16,
	"u32":      U32,
	"u64":      U64,
	"f32":      F32,
	"f64":      F64,
	"bool":     BoolType,
	"void":     Void,
	"struct":   Struct,
	"enum":     Enum,
	"union":    Union,
	"return":   Return,
	"if":       If,
	"else":     Else,
	"while":    While,
	"for":      For,
	"do":       Do,
	"switch":   Switch,
	"case":     Case,
	"default":  Default,
	"break":    Break,
	"continue": Continue,
	"const":    Const,
	"static":   Static,
	"extern":   Extern,
	"sizeof":   Sizeof,
	"true":     True,
	"false":    False,
	"null":     Null,
	"import":   Import,
	"export":   Export,
	"module":   Module,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "UNKNOWN"
}

// KeywordKind maps reserved words to their kind, Ident otherwise.
func KeywordKind(word string) Kind {
	if k, ok := keywords[word]; ok {
		return k
	}

	return Ident
}

func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

func IsPrimitiveType(k Kind) bool {
	return k >= I8 && k <= Void
}

// IsTypeToken reports whether k can start a type specifier.
func IsTypeToken(k Kind) bool {
	return IsPrimitiveType(k) || k == Struct || k == Enum || k == Union
}

func IsOperator(k Kind) bool {
	return k >= Plus && k <= Dot
}

func IsLiteral(k Kind) bool {
	switch k {
	case Number, Float, String, Char, True, False, Null:
		return true
	}

	return false
}

func IsAssignOp(k Kind) bool {
	switch k {
	case Assign, PlusAssign, MinusAssign, MulAssign, DivAssign, ModAssign:
		return true
	}

	return false
}
