// Package compiler wires the pipeline: bytes in, tokens, tree,
// x86_64 assembly out, with the external toolchain turning that into
// objects, executables or archives. All per-file state lives in the
// shared memory pools and is reset between files.
package compiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/cruxlang/crux/compiler/ast"
	"github.com/cruxlang/crux/compiler/back"
	"github.com/cruxlang/crux/compiler/lexer"
	"github.com/cruxlang/crux/compiler/memory"
	"github.com/cruxlang/crux/compiler/parser"
	"github.com/cruxlang/crux/compiler/token"
	"github.com/cruxlang/crux/compiler/toolchain"
)

type (
	Options struct {
		Arch back.Arch
		Opt  back.OptLevel

		Debug   bool
		Verbose bool

		CompileOnly   bool
		CreateLibrary bool
		KeepAsm       bool

		PrintAST    bool
		PrintTokens bool

		Output string

		LibPaths  []string
		Libraries []string
	}

	Compiler struct {
		pool  *memory.Pool
		arena *memory.Arena[ast.Node]

		stdout io.Writer
		errw   io.Writer
	}
)

const (
	DefaultOutput  = "a.out"
	DefaultArchive = "liboutput.a"
)

func New() *Compiler {
	return &Compiler{
		pool:   memory.NewPool(0),
		arena:  memory.NewArena[ast.Node](0),
		stdout: os.Stdout,
		errw:   os.Stderr,
	}
}

// SetOutput redirects progress and diagnostic writers.
func (c *Compiler) SetOutput(stdout, errw io.Writer) {
	c.stdout = stdout
	c.errw = errw
}

// Compile runs lexer, parser and emitter over one source buffer and
// returns the assembly text.
func (c *Compiler) Compile(ctx context.Context, name string, text []byte, opts Options) (obj []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	// previous file's tree and lexemes die here
	c.arena.Reset()
	c.pool.Reset()

	if opts.PrintTokens {
		c.printTokens(name, text)
	}

	lex := lexer.New(text, c.pool)
	lex.SetErrorWriter(c.errw)

	b := ast.NewBuilder(c.arena, c.pool)

	p := parser.New(lex, b)
	p.SetErrorWriter(c.errw)

	root := p.Parse(ctx)

	if root == nil || p.ErrorCount > 0 {
		return nil, errors.New("parse error (%d errors)", p.ErrorCount)
	}

	if opts.PrintAST {
		fmt.Fprintf(c.stdout, "AST for %s:\n", name)
		ast.Print(c.stdout, root, 0)
		fmt.Fprintln(c.stdout)
	}

	gen := back.New(opts.Arch, opts.Opt)
	gen.SetErrorWriter(c.errw)

	if opts.Debug {
		gen.SetDebug(true)
	}

	obj, err = gen.Generate(ctx, root)
	if err != nil {
		return nil, errors.Wrap(err, "generate")
	}

	if n := len(gen.Errors()); n > 0 {
		return nil, errors.New("code generation error (%d errors)", n)
	}

	return obj, nil
}

// CompileFile is Compile over a file's contents.
func (c *Compiler) CompileFile(ctx context.Context, name string, opts Options) ([]byte, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return c.Compile(ctx, name, text, opts)
}

// Build compiles every input file to an object and links or archives
// the results. Intermediate files are removed unless kept by options.
func (c *Compiler) Build(ctx context.Context, files []string, opts Options) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "build", "files", files)
	defer tr.Finish("err", &err)

	var objs, temps []string

	defer func() {
		if !opts.CompileOnly && !opts.KeepAsm {
			cleanup(temps)
		}
	}()

	for _, name := range files {
		if opts.Verbose {
			fmt.Fprintf(c.stdout, "compiling %s\n", name)
		}

		asm, err := c.CompileFile(ctx, name, opts)
		if err != nil {
			return errors.Wrap(err, "compile %v", name)
		}

		asmFile := changeExt(name, ".s")
		objFile := changeExt(name, ".o")

		err = os.WriteFile(asmFile, asm, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", asmFile)
		}

		if opts.Verbose {
			fmt.Fprintf(c.stdout, "generated assembly: %s\n", asmFile)
		}

		err = toolchain.Assemble(ctx, asmFile, objFile)
		if err != nil {
			return errors.Wrap(err, "assemble %v", asmFile)
		}

		objs = append(objs, objFile)
		temps = append(temps, objFile)

		if !opts.KeepAsm {
			temps = append(temps, asmFile)
		}

		if opts.Verbose {
			fmt.Fprintf(c.stdout, "generated object: %s\n", objFile)
		}
	}

	if opts.CompileOnly {
		return nil
	}

	if opts.CreateLibrary {
		lib := opts.Output
		if lib == "" {
			lib = DefaultArchive
		}

		if opts.Verbose {
			fmt.Fprintf(c.stdout, "creating library %s\n", lib)
		}

		return errors.Wrap(toolchain.Archive(ctx, lib, objs), "archive")
	}

	exe := opts.Output
	if exe == "" {
		exe = DefaultOutput
	}

	if opts.Verbose {
		fmt.Fprintf(c.stdout, "linking %s\n", exe)
	}

	return errors.Wrap(toolchain.Link(ctx, objs, opts.LibPaths, opts.Libraries, exe), "link")
}

func (c *Compiler) printTokens(name string, text []byte) {
	fmt.Fprintf(c.stdout, "Tokens for %s:\n", name)

	lex := lexer.New(text, c.pool)
	lex.SetErrorWriter(c.errw)

	for {
		tk := lex.Next()
		if tk.Kind == token.EOF {
			break
		}

		fmt.Fprintf(c.stdout, "  %v: '%s'\n", tk.Kind, tk.Text)
	}

	fmt.Fprintln(c.stdout)
}

func changeExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

func cleanup(files []string) {
	for _, f := range files {
		_ = os.Remove(f)
	}
}
