// Package toolchain shells out to the system assembler, linker and
// archiver. Tool names can be overridden through the environment:
// CRUX_AS, CRUX_LD, CRUX_AR.
package toolchain

import (
	"context"
	"os"
	"os/exec"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Assemble runs "as -64 asmFile -o objFile".
func Assemble(ctx context.Context, asmFile, objFile string) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "assemble", "asm", asmFile, "obj", objFile)
	defer tr.Finish("err", &err)

	as := tool("CRUX_AS", "as")

	return run(ctx, as, "-64", asmFile, "-o", objFile)
}

// Link runs "ld objs... -Lpath... -lname... -o output".
func Link(ctx context.Context, objs, libPaths, libs []string, output string) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "link", "objs", objs, "output", output)
	defer tr.Finish("err", &err)

	if len(objs) == 0 {
		return errors.New("no object files to link")
	}

	ld := tool("CRUX_LD", "ld")

	args := make([]string, 0, len(objs)+len(libPaths)+len(libs)+2)
	args = append(args, objs...)

	for _, p := range libPaths {
		args = append(args, "-L"+p)
	}

	for _, l := range libs {
		args = append(args, "-l"+l)
	}

	args = append(args, "-o", output)

	return run(ctx, ld, args...)
}

// Archive runs "ar rcs archive objs...".
func Archive(ctx context.Context, archive string, objs []string) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "archive", "archive", archive, "objs", objs)
	defer tr.Finish("err", &err)

	if len(objs) == 0 {
		return errors.New("no object files for library")
	}

	ar := tool("CRUX_AR", "ar")

	args := append([]string{"rcs", archive}, objs...)

	return run(ctx, ar, args...)
}

func tool(envKey, def string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}

	return def
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if len(out) != 0 {
			return errors.Wrap(err, "%v: %s", name, out)
		}

		return errors.Wrap(err, "%v", name)
	}

	return nil
}
