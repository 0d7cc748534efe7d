package compiler

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruxlang/crux/compiler/back"
)

func newQuiet() *Compiler {
	c := New()
	c.SetOutput(io.Discard, io.Discard)

	return c
}

func TestCompile(t *testing.T) {
	c := newQuiet()

	obj, err := c.Compile(context.Background(), "main.x",
		[]byte("i32 main() { return 0; }"), Options{})
	require.NoError(t, err)

	out := string(obj)

	assert.Contains(t, out, ".global _start")
	assert.Contains(t, out, ".section .data")
	assert.Contains(t, out, ".section .text")
	assert.Contains(t, out, "main:")

	t.Logf("result:\n%s", obj)
}

func TestCompileParseError(t *testing.T) {
	c := newQuiet()

	_, err := c.Compile(context.Background(), "bad.x",
		[]byte("i32 main() { i32 x = ; return 0; }"), Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse error")
}

func TestCompileResetsBetweenFiles(t *testing.T) {
	c := newQuiet()

	first, err := c.Compile(context.Background(), "a.x",
		[]byte(`i32 main() { printf("aaa"); return 0; }`), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(first), `str0: .ascii "aaa"`)

	second, err := c.Compile(context.Background(), "b.x",
		[]byte(`i32 main() { printf("bbb"); return 0; }`), Options{})
	require.NoError(t, err)

	// fresh per-file state: string table restarts at str0
	assert.Contains(t, string(second), `str0: .ascii "bbb"`)
	assert.NotContains(t, string(second), "aaa")
}

func TestPrintDiagnostics(t *testing.T) {
	c := New()

	var stdout strings.Builder
	c.SetOutput(&stdout, io.Discard)

	_, err := c.Compile(context.Background(), "main.x",
		[]byte("i32 main() { return 1 + 2; }"),
		Options{PrintTokens: true, PrintAST: true})
	require.NoError(t, err)

	out := stdout.String()

	assert.Contains(t, out, "Tokens for main.x:")
	assert.Contains(t, out, "I32: 'i32'")
	assert.Contains(t, out, "IDENTIFIER: 'main'")

	assert.Contains(t, out, "AST for main.x:")
	assert.Contains(t, out, "FUNCTION: 'main'")
	assert.Contains(t, out, "BINARY_OP: '+'")
}

func TestArchTag(t *testing.T) {
	c := newQuiet()

	// arm64 and riscv64 are tags only; emission stays x86_64
	obj, err := c.Compile(context.Background(), "main.x",
		[]byte("i32 main() { return 0; }"),
		Options{Arch: back.ARM64})
	require.NoError(t, err)

	assert.Contains(t, string(obj), "call main")
}

func TestChangeExt(t *testing.T) {
	assert.Equal(t, "foo.s", changeExt("foo.x", ".s"))
	assert.Equal(t, "dir/foo.o", changeExt("dir/foo.x", ".o"))
	assert.Equal(t, "noext.s", changeExt("noext", ".s"))
}
