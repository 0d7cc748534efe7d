package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/cruxlang/crux/compiler"
	"github.com/cruxlang/crux/compiler/back"
)

const version = "0.1.0"

const maxLinkArgs = 16

func main() {
	app := &cli.Command{
		Name:        "crux",
		Description: "crux is a whole-program compiler for the Crux language",
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file name (executable or archive)"),
			cli.NewFlag("c", false, "compile only, do not link"),
			cli.NewFlag("lib", false, "create a static library (.a)"),
			cli.NewFlag("O0", false, "no optimization"),
			cli.NewFlag("O1", false, "optimize for speed"),
			cli.NewFlag("O2", false, "optimize for more speed"),
			cli.NewFlag("Os", false, "optimize for size"),
			cli.NewFlag("g", false, "include debug information"),
			cli.NewFlag("verbose,v", false, "verbose output"),
			cli.NewFlag("S", false, "keep assembly files"),
			cli.NewFlag("print-ast", false, "print the syntax tree"),
			cli.NewFlag("print-tokens", false, "print the token stream"),
			cli.NewFlag("target", env.Str("CRUX_TARGET", "x86_64"), "target architecture (x86_64, arm64, riscv64)"),
			cli.NewFlag("L", "", "library search paths, comma separated"),
			cli.NewFlag("l", "", "libraries to link, comma separated"),
			cli.NewFlag("version", false, "show version information"),
			cli.NewFlag("help,h", false, "show usage"),
		},
		Action: compileAct,
		Args:   cli.Args{},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func compileAct(c *cli.Command) (err error) {
	if c.Bool("version") {
		fmt.Printf("crux %s\n", version)
		fmt.Printf("types: i8 i16 i32 i64 u8 u16 u32 u64 f32 f64 bool void\n")
		fmt.Printf("targets: x86_64 (arm64 and riscv64 reserved)\n")

		return nil
	}

	if c.Bool("help") {
		printUsage()
		return nil
	}

	if len(c.Args) == 0 {
		return errors.New("no input files")
	}

	arch, ok := back.ParseArch(c.String("target"))
	if !ok {
		return errors.New("unknown target architecture: %v", c.String("target"))
	}

	opts := compiler.Options{
		Arch:          arch,
		Opt:           optLevel(c),
		Debug:         c.Bool("g"),
		Verbose:       c.Bool("verbose"),
		CompileOnly:   c.Bool("c"),
		CreateLibrary: c.Bool("lib"),
		KeepAsm:       c.Bool("S"),
		PrintAST:      c.Bool("print-ast"),
		PrintTokens:   c.Bool("print-tokens"),
		Output:        c.String("output"),
		LibPaths:      splitList(c.String("L")),
		Libraries:     splitList(c.String("l")),
	}

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return compiler.New().Build(ctx, c.Args, opts)
}

func printUsage() {
	fmt.Print(`usage: crux [options] <input-files>

options:
  -o <file>          output file name
  -c                 compile only, do not link
  -lib               create a static library (.a)
  -O0 -O1 -O2 -Os    optimization level
  -g                 include debug information
  -v, --verbose      verbose output
  -S                 keep assembly files
  --print-ast        print the syntax tree
  --print-tokens     print the token stream
  --target <arch>    target architecture (x86_64, arm64, riscv64)
  -L <paths>         library search paths, comma separated
  -l <names>         libraries to link, comma separated
  -h, --help         show this help
  --version          show version information
`)
}

func optLevel(c *cli.Command) back.OptLevel {
	switch {
	case c.Bool("g"):
		return back.OptDebug
	case c.Bool("Os"):
		return back.OptSize
	case c.Bool("O1"), c.Bool("O2"):
		return back.OptSpeed
	}

	return back.OptNone
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	l := strings.Split(s, ",")
	if len(l) > maxLinkArgs {
		l = l[:maxLinkArgs]
	}

	return l
}
