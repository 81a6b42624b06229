// Package cliargs parses tinyld's command line. The grammar — single-dash
// multi-character flags interleaved with positional input paths, several
// of them ignored outright — is the linker-driver convention `args.rs`
// implements by hand rather than through a flag library, and no flag
// package in the example corpus (pflag/cobra in Manu343726-cucaracha)
// tolerates tokens like "-Wl,--as-needed" or "-z...=..." without fighting
// its own option-definition model, so this package keeps the original's
// hand-rolled approach, adapted to return errors instead of panicking.
package cliargs

import (
	"os"
	"strings"

	"github.com/tinyld/tinyld/internal/linkerr"
)

// noValueFlags are accepted and ignored outright.
var noValueFlags = map[string]bool{
	"-nmagic": true, "-Bstatic": true, "-Bdynamic": true,
	"-Wl,--as-needed": true, "--as-needed": true, "--eh-frame-hdr": true,
	"-znoexecstack": true, "--gc-sections": true, "-O1": true, "-pie": true,
}

// Args is the parsed command line.
type Args struct {
	LibraryPaths []string
	Inputs       []string
	Output       string

	// Verbosity is the repeat count of -v (ambient logging control, not
	// part of the linker's compatibility flag surface).
	Verbosity int
	// Quiet suppresses all but fatal diagnostics.
	Quiet bool
	// MapPath is the -M linker-map output path, or "" if not requested.
	MapPath string
}

// Parse parses argv (excluding the program name, i.e. os.Args[1:]).
func Parse(argv []string) (*Args, error) {
	a := &Args{}
	var output *string

	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(argv) {
			return "", linkerr.NewUsage("%s value missing", flag)
		}
		return argv[i], nil
	}

	for ; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-L":
			path, err := next("-L")
			if err != nil {
				return nil, err
			}
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				a.LibraryPaths = append(a.LibraryPaths, path)
			}

		case arg == "-o":
			path, err := next("-o")
			if err != nil {
				return nil, err
			}
			output = &path

		case arg == "-M":
			path, err := next("-M")
			if err != nil {
				return nil, err
			}
			a.MapPath = path

		case arg == "-flavor":
			if _, err := next("-flavor"); err != nil {
				return nil, err
			}

		case arg == "-v":
			a.Verbosity++

		case arg == "-q":
			a.Quiet = true

		case noValueFlags[arg]:
			// accepted, ignored

		case strings.HasPrefix(arg, "--script="):
			// accepted, ignored

		case strings.HasPrefix(arg, "-z") && strings.Contains(arg, "="):
			// accepted, ignored

		case strings.HasPrefix(arg, "-"):
			return nil, linkerr.NewUsage("unknown option %q", arg)

		default:
			if info, err := os.Stat(arg); err != nil || !info.Mode().IsRegular() {
				return nil, linkerr.NewUsage("input path must be a file (%q)", arg)
			}
			a.Inputs = append(a.Inputs, arg)
		}
	}

	if output == nil {
		return nil, linkerr.NewUsage("output path missing (-o)")
	}
	a.Output = *output

	return a, nil
}
