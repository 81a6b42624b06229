// Command tinyld links ELF64 little-endian x86-64 relocatable objects (and
// `.rlib` archives of such objects) into a single static ELF64 executable.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinyld/tinyld/internal/cliargs"
	"github.com/tinyld/tinyld/internal/disasm"
	"github.com/tinyld/tinyld/internal/elfwriter"
	"github.com/tinyld/tinyld/internal/link"
	"github.com/tinyld/tinyld/internal/linkerr"
	"github.com/tinyld/tinyld/internal/obj"
)

func main() {
	args, err := cliargs.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "tinyld: %v\n", err)
		os.Exit(exitCode(err))
	}

	logger := newLogger(args)
	if err := run(logger, args); err != nil {
		logger.Error(err.Error())
		os.Exit(exitCode(err))
	}
}

func newLogger(args *cliargs.Args) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case args.Quiet:
		level = slog.LevelError
	case args.Verbosity >= 1:
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func run(logger *slog.Logger, args *cliargs.Args) error {
	for _, p := range args.LibraryPaths {
		logger.Debug("library search path", "path", p)
	}

	set := &obj.InputSet{}
	for _, path := range args.Inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return linkerr.NewIO(path, err)
		}

		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".o":
			if _, err := set.AddObject(path, data); err != nil {
				return err
			}
		case ".rlib":
			if _, err := set.AddArchive(path, data); err != nil {
				return err
			}
		default:
			return linkerr.NewUsage("input %q has unsupported extension %q", path, ext)
		}
	}
	logger.Info("loaded inputs", "count", len(set.Inputs()))

	cfg := link.DefaultConfig()
	result, err := link.Build(set, cfg)
	if err != nil {
		return err
	}
	logger.Info("link resolved", "entry", fmt.Sprintf("%#x", result.Entry), "segments", len(result.Program.Segments))
	for _, name := range result.WeakOnly {
		logger.Debug("weak-only symbol with no global definition", "symbol", name)
	}

	if args.Verbosity >= 2 {
		dumpDisassembly(logger, set, result.Program)
	}

	out, err := os.Create(args.Output)
	if err != nil {
		return linkerr.NewIO(args.Output, err)
	}
	defer out.Close()

	if err := elfwriter.Write(out, result.Program, cfg, result.Entry); err != nil {
		return linkerr.NewIO(args.Output, err)
	}
	if err := out.Chmod(0o755); err != nil {
		return linkerr.NewIO(args.Output, err)
	}

	if args.MapPath != "" {
		entries := link.BuildMap(result.Program, cfg, set, result.Globals)
		if err := os.WriteFile(args.MapPath, []byte(link.Format(entries)), 0o644); err != nil {
			return linkerr.NewIO(args.MapPath, err)
		}
	}

	return nil
}

// dumpDisassembly logs every executable chunk's instructions at -v -v,
// annotating call/jump/ret instructions via internal/disasm
// (golang.org/x/arch/x86/x86asm).
func dumpDisassembly(logger *slog.Logger, set *obj.InputSet, prog *link.LinkedProgram) {
	cfg := link.DefaultConfig()
	positions := link.Layout(prog, cfg)
	for _, pos := range positions {
		if !pos.Chunk.Permissions.Execute {
			continue
		}
		in := set.Get(pos.Chunk.Input)
		insts := disasm.Disassemble(pos.Chunk.Bytes(), cfg.BaseAddr+pos.ChunkStart)
		logger.Debug("disassembly",
			"input", in.Name(),
			"section", pos.Section.Name,
			"dump", disasm.Dump(insts))
	}
}

func exitCode(err error) int {
	var usage *linkerr.UsageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}
