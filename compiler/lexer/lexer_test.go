package lexer

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruxlang/crux/compiler/memory"
	"github.com/cruxlang/crux/compiler/token"
)

func lex(src string) []token.Token {
	l := New([]byte(src), memory.NewPool(0))
	l.SetErrorWriter(io.Discard)

	var toks []token.Token

	for {
		tk := l.Next()
		if tk.Kind == token.EOF {
			return toks
		}

		toks = append(toks, tk)
	}
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, tk := range toks {
		ks[i] = tk.Kind
	}

	return ks
}

func TestKeywordsAndTypes(t *testing.T) {
	toks := lex("i8 i16 i32 i64 u8 u16 u32 u64 f32 f64 bool void struct enum union return if else while for do switch case default break continue const static extern sizeof true false null import export module")

	assert.Equal(t, []token.Kind{
		token.I8, token.I16, token.I32, token.I64,
		token.U8, token.U16, token.U32, token.U64,
		token.F32, token.F64, token.BoolType, token.Void,
		token.Struct, token.Enum, token.Union, token.Return,
		token.If, token.Else, token.While, token.For, token.Do,
		token.Switch, token.Case, token.Default, token.Break, token.Continue,
		token.Const, token.Static, token.Extern, token.Sizeof,
		token.True, token.False, token.Null,
		token.Import, token.Export, token.Module,
	}, kinds(toks))
}

func TestOperators(t *testing.T) {
	toks := lex("++ -- += -= *= /= %= == != <= >= && || << >> -> + - * / % = < > ! & | ^ ~ . ; : , ( ) { } [ ] ?")

	assert.Equal(t, []token.Kind{
		token.Inc, token.Dec, token.PlusAssign, token.MinusAssign,
		token.MulAssign, token.DivAssign, token.ModAssign,
		token.Eq, token.NotEq, token.LessEq, token.GreaterEq,
		token.AndAnd, token.OrOr, token.Shl, token.Shr, token.Arrow,
		token.Plus, token.Minus, token.Mul, token.Div, token.Mod,
		token.Assign, token.Less, token.Greater, token.Not,
		token.And, token.Or, token.Xor, token.Tilde, token.Dot,
		token.Semicolon, token.Colon, token.Comma,
		token.LParen, token.RParen, token.LBrace, token.RBrace,
		token.LBracket, token.RBracket, token.Question,
	}, kinds(toks))
}

func TestNumbers(t *testing.T) {
	toks := lex("42 3.14 1e9 2.5E-3 0")
	require.Len(t, toks, 5)

	assert.Equal(t, token.Number, toks[0].Kind)
	assert.Equal(t, int64(42), toks[0].Lit.Int)

	assert.Equal(t, token.Float, toks[1].Kind)
	assert.InDelta(t, 3.14, toks[1].Lit.Float, 1e-9)

	assert.Equal(t, token.Float, toks[2].Kind)
	assert.InDelta(t, 1e9, toks[2].Lit.Float, 1)

	assert.Equal(t, token.Float, toks[3].Kind)
	assert.InDelta(t, 2.5e-3, toks[3].Lit.Float, 1e-12)

	assert.Equal(t, token.Number, toks[4].Kind)
	assert.Equal(t, int64(0), toks[4].Lit.Int)
}

func TestStrings(t *testing.T) {
	toks := lex(`"hello" "a\nb" ""`)
	require.Len(t, toks, 3)

	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, "hello", toks[0].Text)

	// escapes pass through verbatim
	assert.Equal(t, `a\nb`, toks[1].Text)

	assert.Equal(t, token.String, toks[2].Kind)
	assert.Equal(t, "", toks[2].Text)
}

func TestUnterminatedString(t *testing.T) {
	toks := lex(`"abc`)
	require.Len(t, toks, 1)
	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, "abc", toks[0].Text)
}

func TestChars(t *testing.T) {
	toks := lex(`'a' '\n' '\t' '\\' '\'' '\0' '\q'`)
	require.Len(t, toks, 7)

	want := []int64{'a', '\n', '\t', '\\', '\'', 0, 'q'}

	for i, tk := range toks {
		assert.Equal(t, token.Char, tk.Kind)
		assert.Equal(t, want[i], tk.Lit.Int, "char %d", i)
	}
}

func TestBooleans(t *testing.T) {
	toks := lex("true false")
	require.Len(t, toks, 2)

	assert.True(t, toks[0].Lit.Bool)
	assert.False(t, toks[1].Lit.Bool)
}

func TestComments(t *testing.T) {
	toks := lex("a // line comment\nb /* block\ncomment */ c")

	require.Len(t, toks, 3)
	assert.Equal(t, "a", toks[0].Text)
	assert.Equal(t, "b", toks[1].Text)
	assert.Equal(t, "c", toks[2].Text)
}

func TestInvalid(t *testing.T) {
	toks := lex("a @ b")
	require.Len(t, toks, 3)

	assert.Equal(t, token.Invalid, toks[1].Kind)
	assert.Equal(t, "@", toks[1].Text)
}

func TestLineColumn(t *testing.T) {
	toks := lex("a\n  b")
	require.Len(t, toks, 2)

	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 1, toks[0].Col)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 3, toks[1].Col)
}

func TestEOFSticky(t *testing.T) {
	l := New([]byte("x"), memory.NewPool(0))

	tk := l.Next()
	require.Equal(t, token.Ident, tk.Kind)

	for i := 0; i < 5; i++ {
		assert.Equal(t, token.EOF, l.Next().Kind)
	}
}

func TestNewlineTracking(t *testing.T) {
	l := New([]byte("a\nb"), memory.NewPool(0))
	l.TrackNewlines = true

	assert.Equal(t, token.Ident, l.Next().Kind)
	assert.Equal(t, token.Newline, l.Next().Kind)
	assert.Equal(t, token.Ident, l.Next().Kind)
	assert.Equal(t, token.EOF, l.Next().Kind)
}

// TestRoundTrip checks that lexemes reproduce the input once
// whitespace is dropped, for inputs whose lexemes are verbatim source
// slices (no strings, no chars, no comments).
func TestRoundTrip(t *testing.T) {
	for _, src := range []string{
		"i32 main() { return 2 + 3; }",
		"x += y * 3 << 2;",
		"for (i32 i = 0; i < 10; i++) { a[i] = i; }",
		"p->next.value ? 1 : 0",
	} {
		var b strings.Builder
		for _, tk := range lex(src) {
			b.WriteString(tk.Text)
		}

		assert.Equal(t,
			strings.Join(strings.Fields(src), ""),
			b.String(),
			"input %q", src)
	}
}

func TestCheckpointRestore(t *testing.T) {
	l := New([]byte("a b c"), memory.NewPool(0))

	require.Equal(t, "a", l.Next().Text)

	cp := l.Checkpoint()

	require.Equal(t, "b", l.Next().Text)
	require.Equal(t, "c", l.Next().Text)

	l.Restore(cp)

	assert.Equal(t, "b", l.Next().Text)
}
