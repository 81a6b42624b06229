// Package obj wraps debug/elf into the narrow view tinyld's linker core
// needs: a set of 64-bit little-endian ET_REL inputs, each exposing its
// section headers, symbol table, and per-section relocations.
//
// tinyld leans on the standard library's own ELF decoder rather than
// parsing ELF byte layouts by hand, and adds only what debug/elf doesn't
// already expose — RELA decoding for ET_REL objects and `ar` archive
// flattening.
package obj

import (
	"bytes"
	"debug/elf"
	"fmt"

	"github.com/tinyld/tinyld/internal/linkerr"
)

// InputID identifies one relocatable object view within an InputSet. IDs
// are assigned in the order inputs are added and are stable for the
// lifetime of the set.
type InputID int

// Input is one ELF64 relocatable object: either a standalone `.o` file, or
// one `.o` member extracted from an `.rlib` archive.
type Input struct {
	id   InputID
	name string // diagnostic name, e.g. "a.o" or "lib.o in libfoo.rlib"
	elf  *elf.File

	syms []elf.Symbol
}

// ID returns the input's stable identity within its InputSet.
func (in *Input) ID() InputID { return in.id }

// Name returns a diagnostic name for error messages: the file path, or
// "member in archive" for archive members.
func (in *Input) Name() string { return in.name }

// ELF returns the underlying decoded ELF view.
func (in *Input) ELF() *elf.File { return in.elf }

// Symbols returns the input's symbol table, in file order. Index i
// corresponds to raw ELF symbol table index i+1 (index 0, the reserved
// null symbol, is never present in this slice — this matches the
// convention of debug/elf.File.Symbols).
func (in *Input) Symbols() []elf.Symbol { return in.syms }

// InputSet is an ordered collection of relocatable object views, built
// once at startup and treated as immutable by the rest of the pipeline.
type InputSet struct {
	inputs []*Input
}

// Inputs returns all inputs in the order they were added.
func (s *InputSet) Inputs() []*Input { return s.inputs }

// Get returns the input with the given ID. It panics if id is out of range.
func (s *InputSet) Get(id InputID) *Input { return s.inputs[id] }

// AddObject parses r as a standalone ELF64 relocatable object and appends
// it to the set.
func (s *InputSet) AddObject(name string, r []byte) (*Input, error) {
	f, err := elf.NewFile(bytes.NewReader(r))
	if err != nil {
		return nil, &linkerr.InputFormatError{Input: name, Msg: "not a valid ELF file", Err: err}
	}
	if err := validateObject(f); err != nil {
		return nil, &linkerr.InputFormatError{Input: name, Msg: err.Error()}
	}

	syms, err := f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, &linkerr.InputFormatError{Input: name, Msg: "reading symbol table", Err: err}
	}

	in := &Input{id: InputID(len(s.inputs)), name: name, elf: f, syms: syms}
	s.inputs = append(s.inputs, in)
	return in, nil
}

// AddArchive flattens an `.rlib`-style `ar` archive: every member whose
// name ends in ".o" becomes one independent Input, in archive order.
// Members not ending in ".o" (symbol tables, long-name tables, README
// files, etc.) are ignored.
func (s *InputSet) AddArchive(name string, data []byte) ([]*Input, error) {
	members, err := ParseArchive(data)
	if err != nil {
		return nil, &linkerr.InputFormatError{Input: name, Msg: "parsing archive", Err: err}
	}

	var added []*Input
	for _, m := range members {
		if !hasSuffix(m.Name, ".o") {
			continue
		}
		in, err := s.AddObject(fmt.Sprintf("%s in %s", m.Name, name), m.Data)
		if err != nil {
			return nil, err
		}
		added = append(added, in)
	}
	return added, nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func validateObject(f *elf.File) error {
	if f.Class != elf.ELFCLASS64 {
		return fmt.Errorf("only 64-bit objects are supported, got %s", f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		return fmt.Errorf("only little-endian objects are supported, got %s", f.Data)
	}
	if f.Type != elf.ET_REL {
		return fmt.Errorf("only relocatable (ET_REL) objects are supported, got %s", f.Type)
	}
	return nil
}
