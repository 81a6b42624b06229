package cliargs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("obj"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseCollectsInputsLibsAndOutput(t *testing.T) {
	dir := t.TempDir()
	objPath := writeFile(t, dir, "a.o")

	args, err := Parse([]string{"-L", dir, objPath, "-o", filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(args.LibraryPaths) != 1 || args.LibraryPaths[0] != dir {
		t.Errorf("LibraryPaths = %v, want [%s]", args.LibraryPaths, dir)
	}
	if len(args.Inputs) != 1 || args.Inputs[0] != objPath {
		t.Errorf("Inputs = %v, want [%s]", args.Inputs, objPath)
	}
	if args.Output != filepath.Join(dir, "out") {
		t.Errorf("Output = %q, want %q", args.Output, filepath.Join(dir, "out"))
	}
}

func TestParseIgnoresNoValueAndScriptFlags(t *testing.T) {
	dir := t.TempDir()
	objPath := writeFile(t, dir, "a.o")

	args, err := Parse([]string{
		"-nmagic", "--as-needed", "--script=link.ld", "-znoexecstack=foo",
		objPath, "-o", filepath.Join(dir, "out"),
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(args.Inputs) != 1 {
		t.Errorf("Inputs = %v, want exactly the one object", args.Inputs)
	}
}

func TestParseRejectsUnknownOption(t *testing.T) {
	if _, err := Parse([]string{"--totally-made-up-flag", "-o", "out"}); err == nil {
		t.Fatal("want fatal usage error for an unrecognized option")
	}
}

func TestParseRequiresOutput(t *testing.T) {
	dir := t.TempDir()
	objPath := writeFile(t, dir, "a.o")
	if _, err := Parse([]string{objPath}); err == nil {
		t.Fatal("want fatal usage error when -o is missing")
	}
}

func TestParseRejectsMissingInputPath(t *testing.T) {
	if _, err := Parse([]string{"/no/such/file.o", "-o", "out"}); err == nil {
		t.Fatal("want fatal usage error for a nonexistent input path")
	}
}

func TestParseTracksVerbosityAndQuiet(t *testing.T) {
	dir := t.TempDir()
	objPath := writeFile(t, dir, "a.o")
	args, err := Parse([]string{"-v", "-v", "-q", objPath, "-o", filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if args.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", args.Verbosity)
	}
	if !args.Quiet {
		t.Error("Quiet = false, want true")
	}
}

func TestParseAcceptsMapFlag(t *testing.T) {
	dir := t.TempDir()
	objPath := writeFile(t, dir, "a.o")
	mapPath := filepath.Join(dir, "out.map")
	args, err := Parse([]string{objPath, "-o", filepath.Join(dir, "out"), "-M", mapPath})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if args.MapPath != mapPath {
		t.Errorf("MapPath = %q, want %q", args.MapPath, mapPath)
	}
}
