// Package back lowers the syntax tree to GNU-syntax x86_64 assembly.
// It is a stack machine over the native stack: expression results land
// in %rax, binary operators push-left / evaluate-right / pop / op.
package back

import (
	"fmt"
	"io"
	"os"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/loc"

	"github.com/cruxlang/crux/compiler/ast"
	"github.com/cruxlang/crux/compiler/memory"
)

type (
	Arch int

	OptLevel int

	variable struct {
		name   string
		typ    string
		offset int
		size   int
		scope  int
		param  bool
		global bool
	}

	function struct {
		name      string
		ret       string
		stackSize int
		params    int
		main      bool
	}

	symtab struct {
		vars  []variable
		funcs []function

		offset int // running local offset, negative
		scope  int
	}

	// loop is a break/continue destination pair. A switch frame has no
	// continue destination and is skipped when resolving one.
	loop struct {
		brk  string
		cont string

		from loc.PC
	}

	Generator struct {
		b []byte // function code

		data *memory.Buffer
		text *memory.Buffer
		bss  *memory.Buffer

		labels map[string]int
		temps  int

		inFunc bool
		fn     string

		arch  Arch
		opt   OptLevel
		debug bool

		strs []string

		syms  symtab
		loops []loop

		errs []string
		errw io.Writer
	}
)

const (
	X86_64 Arch = iota
	ARM64
	RISCV64
)

const (
	OptNone OptLevel = iota
	OptSpeed
	OptSize
	OptDebug
)

// stackFrame is the fixed per-function stack slot budget.
const stackFrame = 64

const maxErrors = 16

func (a Arch) String() string {
	switch a {
	case X86_64:
		return "x86_64"
	case ARM64:
		return "arm64"
	case RISCV64:
		return "riscv64"
	}

	return "unknown"
}

func ParseArch(s string) (Arch, bool) {
	switch s {
	case "x86_64":
		return X86_64, true
	case "arm64":
		return ARM64, true
	case "riscv64":
		return RISCV64, true
	}

	return X86_64, false
}

func (o OptLevel) String() string {
	switch o {
	case OptNone:
		return "none"
	case OptSpeed:
		return "speed"
	case OptSize:
		return "size"
	case OptDebug:
		return "debug"
	}

	return "unknown"
}

func New(arch Arch, opt OptLevel) *Generator {
	return &Generator{
		b:      make([]byte, 0, 64*1024),
		data:   memory.NewBuffer(16 * 1024),
		text:   memory.NewBuffer(32 * 1024),
		bss:    memory.NewBuffer(8 * 1024),
		labels: make(map[string]int),
		arch:   arch,
		opt:    opt,
		debug:  opt == OptDebug,
		errw:   os.Stderr,
	}
}

// SetErrorWriter redirects diagnostics (stderr by default).
func (g *Generator) SetErrorWriter(w io.Writer) { g.errw = w }

// SetDebug toggles assembly comments.
func (g *Generator) SetDebug(on bool) { g.debug = on }

// Errors returns recorded code generation errors.
func (g *Generator) Errors() []string { return g.errs }

// ins appends one indented instruction.
func (g *Generator) ins(mnemonic, operands string) {
	if operands != "" {
		g.b = hfmt.Appendf(g.b, "    %s %s\n", mnemonic, operands)
	} else {
		g.b = hfmt.Appendf(g.b, "    %s\n", mnemonic)
	}
}

func (g *Generator) insf(mnemonic, format string, args ...any) {
	g.b = hfmt.Appendf(g.b, "    %s ", mnemonic)
	g.b = hfmt.Appendf(g.b, format, args...)
	g.b = append(g.b, '\n')
}

func (g *Generator) label(name string) {
	g.b = hfmt.Appendf(g.b, "%s:\n", name)
}

func (g *Generator) comment(format string, args ...any) {
	if !g.debug {
		return
	}

	g.b = append(g.b, "    # "...)
	g.b = hfmt.Appendf(g.b, format, args...)
	g.b = append(g.b, '\n')
}

// newLabel returns prefix + the next number of that prefix's counter.
func (g *Generator) newLabel(prefix string) string {
	n := g.labels[prefix]
	g.labels[prefix] = n + 1

	return fmt.Sprintf("%s%d", prefix, n)
}

func (g *Generator) newTemp() string {
	t := fmt.Sprintf("tmp%d", g.temps)
	g.temps++

	return t
}

// internString deduplicates a string literal and returns its index.
func (g *Generator) internString(s string) int {
	for i, have := range g.strs {
		if have == s {
			return i
		}
	}

	g.strs = append(g.strs, s)

	return len(g.strs) - 1
}

// Symbol table. Flat: no scope hierarchy, lookups walk backwards, so the
// latest live declaration of a name wins.

func (g *Generator) enterScope() {
	g.syms.scope++
}

// exitScope pops every variable declared at the closing scope level.
func (g *Generator) exitScope() {
	vars := g.syms.vars

	for len(vars) > 0 && vars[len(vars)-1].scope == g.syms.scope {
		vars = vars[:len(vars)-1]
	}

	g.syms.vars = vars
	g.syms.scope--
}

func (g *Generator) addVariable(name, typ string, size int, param bool) *variable {
	v := variable{
		name:   name,
		typ:    typ,
		size:   size,
		scope:  g.syms.scope,
		param:  param,
		global: g.syms.scope == 0,
	}

	if param {
		// parameters sit above the saved frame pointer
		params := 0
		for _, have := range g.syms.vars {
			if have.param && have.scope == g.syms.scope {
				params++
			}
		}

		v.offset = 16 + params*8
	} else {
		g.syms.offset -= size
		v.offset = g.syms.offset
	}

	g.syms.vars = append(g.syms.vars, v)

	return &g.syms.vars[len(g.syms.vars)-1]
}

func (g *Generator) addFunction(name, ret string, params int) {
	g.syms.funcs = append(g.syms.funcs, function{
		name:   name,
		ret:    ret,
		params: params,
		main:   name == "main",
	})
}

func (g *Generator) findVariable(name string) *variable {
	for i := len(g.syms.vars) - 1; i >= 0; i-- {
		if g.syms.vars[i].name == name {
			return &g.syms.vars[i]
		}
	}

	return nil
}

func (g *Generator) findFunction(name string) *function {
	for i := range g.syms.funcs {
		if g.syms.funcs[i].name == name {
			return &g.syms.funcs[i]
		}
	}

	return nil
}

// typeSize maps a type name to its stack slot size.
func typeSize(typ string) int {
	switch typ {
	case "i8", "u8", "bool":
		return 1
	case "i16", "u16":
		return 2
	case "i32", "u32", "f32":
		return 4
	case "i64", "u64", "f64":
		return 8
	}

	for i := 0; i < len(typ); i++ {
		if typ[i] == '*' {
			return 8
		}
	}

	return 8
}

func typeSuffix(typ string) string {
	switch typeSize(typ) {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	}

	return "q"
}

func isFloatType(typ string) bool {
	return typ == "f32" || typ == "f64"
}

func isSignedType(typ string) bool {
	return len(typ) > 0 && typ[0] == 'i' || isFloatType(typ)
}

// typeName flattens a type subtree to its name, appending one '*' per
// pointer wrapper.
func typeName(n *ast.Node) string {
	if n == nil {
		return ""
	}

	if n.Kind == ast.PointerType {
		return typeName(n.Child(0)) + "*"
	}

	return n.Value
}

func (g *Generator) pushLoop(brk, cont string) {
	g.loops = append(g.loops, loop{
		brk:  brk,
		cont: cont,
		from: loc.Caller(1),
	})
}

func (g *Generator) popLoop() {
	g.loops = g.loops[:len(g.loops)-1]
}

func (g *Generator) breakLabel() string {
	if len(g.loops) == 0 {
		return ""
	}

	return g.loops[len(g.loops)-1].brk
}

// continueLabel skips switch frames, which have no continue target.
func (g *Generator) continueLabel() string {
	for i := len(g.loops) - 1; i >= 0; i-- {
		if g.loops[i].cont != "" {
			return g.loops[i].cont
		}
	}

	return ""
}

func (g *Generator) errorf(format string, args ...any) {
	if len(g.errs) >= maxErrors {
		return
	}

	msg := fmt.Sprintf(format, args...)
	g.errs = append(g.errs, msg)

	fmt.Fprintf(g.errw, "Code generation error: %s\n", msg)
}
