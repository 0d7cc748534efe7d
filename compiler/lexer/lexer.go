// Package lexer turns a source buffer into tokens on demand.
// It never aborts: unknown bytes come back as token.Invalid and EOF is
// sticky. Lexemes are interned in the string pool, not sliced from the
// source, so the source buffer can be dropped after scanning.
package lexer

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cruxlang/crux/compiler/memory"
	"github.com/cruxlang/crux/compiler/token"
)

type (
	// Lexer is a value over a shared source buffer. Copying it
	// checkpoints the scan position; assigning the copy back restores it.
	Lexer struct {
		src []byte

		pos  int
		line int
		col  int

		// TrackNewlines makes '\n' significant: it is returned as a
		// token.Newline instead of being skipped.
		TrackNewlines bool

		pool *memory.Pool
		errw io.Writer
	}
)

func New(src []byte, pool *memory.Pool) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
		col:  1,
		pool: pool,
		errw: os.Stderr,
	}
}

// SetErrorWriter redirects diagnostics (stderr by default).
func (l *Lexer) SetErrorWriter(w io.Writer) { l.errw = w }

// Checkpoint returns a copy of the scan state.
func (l *Lexer) Checkpoint() Lexer { return *l }

// Restore rewinds the scan state to a previous checkpoint.
func (l *Lexer) Restore(cp Lexer) { *l = cp }

func (l *Lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}

	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	l.pos++
}

func (l *Lexer) peek(off int) byte {
	p := l.pos + off
	if p >= len(l.src) {
		return 0
	}

	return l.src[p]
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r':
			l.advance()
		case '\n':
			if l.TrackNewlines {
				return
			}

			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	l.advance()
	l.advance()

	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() {
	l.advance()
	l.advance()

	for l.pos < len(l.src)-1 {
		if l.src[l.pos] == '*' && l.src[l.pos+1] == '/' {
			l.advance()
			l.advance()
			return
		}

		l.advance()
	}
}

// Next returns the next token and advances. After the end of input it
// keeps returning token.EOF.
func (l *Lexer) Next() token.Token {
	l.skipSpace()

	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Line: l.line, Col: l.col}
	}

	col := l.col
	c := l.src[l.pos]
	next := l.peek(1)

	if c == '/' && next == '/' {
		l.skipLineComment()
		return l.Next()
	}

	if c == '/' && next == '*' {
		l.skipBlockComment()
		return l.Next()
	}

	if k, ok := twoCharOps[[2]byte{c, next}]; ok {
		l.advance()
		l.advance()

		return token.Token{
			Kind: k,
			Text: l.pool.Intern([]byte{c, next}),
			Line: l.line,
			Col:  col,
		}
	}

	switch c {
	case '"':
		return l.readString(col)
	case '\'':
		return l.readChar(col)
	case '\n':
		// only reachable with TrackNewlines set
		l.advance()

		return token.Token{
			Kind: token.Newline,
			Text: l.pool.InternString("\n"),
			Line: l.line - 1,
			Col:  col,
		}
	}

	if k, ok := oneCharOps[c]; ok {
		l.advance()

		return token.Token{
			Kind: k,
			Text: l.pool.Intern([]byte{c}),
			Line: l.line,
			Col:  col,
		}
	}

	if isDigit(c) {
		return l.readNumber(col)
	}

	if isIdentStart(c) {
		return l.readIdentifier(col)
	}

	l.advance()

	return token.Token{
		Kind: token.Invalid,
		Text: l.pool.Intern([]byte{c}),
		Line: l.line,
		Col:  col,
	}
}

func (l *Lexer) readNumber(col int) token.Token {
	start := l.pos
	isFloat := false

	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.advance()
	}

	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isFloat = true
		l.advance()

		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance()
		}
	}

	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		isFloat = true
		l.advance()

		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.advance()
		}

		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance()
		}
	}

	text := l.pool.Intern(l.src[start:l.pos])

	tk := token.Token{
		Text: text,
		Line: l.line,
		Col:  col,
	}

	if isFloat {
		tk.Kind = token.Float
		tk.Lit.Float, _ = strconv.ParseFloat(text, 64)
	} else {
		tk.Kind = token.Number
		tk.Lit.Int, _ = strconv.ParseInt(text, 10, 64)
	}

	return tk
}

// readString scans a double-quoted literal. Escapes are passed through
// into the lexeme verbatim; an unterminated string stops at EOF.
func (l *Lexer) readString(col int) token.Token {
	l.advance() // opening quote
	start := l.pos

	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		if l.src[l.pos] == '\\' {
			l.advance()
			if l.pos < len(l.src) {
				l.advance()
			}
		} else {
			l.advance()
		}
	}

	text := l.pool.Intern(l.src[start:l.pos])

	if l.pos < len(l.src) {
		l.advance() // closing quote
	}

	return token.Token{
		Kind: token.String,
		Text: text,
		Line: l.line,
		Col:  col,
	}
}

func (l *Lexer) readChar(col int) token.Token {
	l.advance() // opening quote

	var value byte

	if l.pos < len(l.src) && l.src[l.pos] != '\'' {
		if l.src[l.pos] == '\\' {
			l.advance()
			if l.pos < len(l.src) {
				switch l.src[l.pos] {
				case 'n':
					value = '\n'
				case 't':
					value = '\t'
				case 'r':
					value = '\r'
				case '\\':
					value = '\\'
				case '\'':
					value = '\''
				case '0':
					value = 0
				default:
					value = l.src[l.pos]
				}
				l.advance()
			}
		} else {
			value = l.src[l.pos]
			l.advance()
		}
	}

	if l.pos < len(l.src) && l.src[l.pos] == '\'' {
		l.advance() // closing quote
	}

	return token.Token{
		Kind: token.Char,
		Text: l.pool.Intern([]byte{value}),
		Line: l.line,
		Col:  col,
		Lit:  token.Literal{Int: int64(value)},
	}
}

func (l *Lexer) readIdentifier(col int) token.Token {
	start := l.pos

	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.advance()
	}

	text := l.pool.Intern(l.src[start:l.pos])
	kind := token.KeywordKind(text)

	tk := token.Token{
		Kind: kind,
		Text: text,
		Line: l.line,
		Col:  col,
	}

	switch kind {
	case token.True:
		tk.Lit.Bool = true
	case token.False:
		tk.Lit.Bool = false
	}

	return tk
}

// Error reports a free-form scan diagnostic at the current position.
func (l *Lexer) Error(msg string) {
	fmt.Fprintf(l.errw, "Lexer error at line %d, column %d: %s\n", l.line, l.col, msg)
}

var twoCharOps = map[[2]byte]token.Kind{
	{'+', '+'}: token.Inc,
	{'-', '-'}: token.Dec,
	{'+', '='}: token.PlusAssign,
	{'-', '='}: token.MinusAssign,
	{'*', '='}: token.MulAssign,
	{'/', '='}: token.DivAssign,
	{'%', '='}: token.ModAssign,
	{'=', '='}: token.Eq,
	{'!', '='}: token.NotEq,
	{'<', '='}: token.LessEq,
	{'>', '='}: token.GreaterEq,
	{'&', '&'}: token.AndAnd,
	{'|', '|'}: token.OrOr,
	{'<', '<'}: token.Shl,
	{'>', '>'}: token.Shr,
	{'-', '>'}: token.Arrow,
}

var oneCharOps = map[byte]token.Kind{
	'+': token.Plus,
	'-': token.Minus,
	'*': token.Mul,
	'/': token.Div,
	'%': token.Mod,
	'=': token.Assign,
	'<': token.Less,
	'>': token.Greater,
	'!': token.Not,
	'&': token.And,
	'|': token.Or,
	'^': token.Xor,
	'~': token.Tilde,
	'.': token.Dot,
	';': token.Semicolon,
	':': token.Colon,
	',': token.Comma,
	'(': token.LParen,
	')': token.RParen,
	'{': token.LBrace,
	'}': token.RBrace,
	'[': token.LBracket,
	']': token.RBracket,
	'?': token.Question,
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }
