package link

import (
	"debug/elf"

	"github.com/tinyld/tinyld/internal/linkerr"
	"github.com/tinyld/tinyld/internal/obj"
)

// GlobalLocation names where a global symbol is defined: a specific symbol
// table entry within a specific input.
type GlobalLocation struct {
	Input    obj.InputID
	SymIndex int // index into Input.Symbols()
}

// GlobalSymbolTable maps a defined global's name to where it lives. Each
// name appears at most once; see BuildGlobalSymbolTable for the
// weak/global duplicate rule.
type GlobalSymbolTable struct {
	locations map[string]GlobalLocation
	// WeakOnly lists names that were defined only weakly, never globally
	// — present for diagnostics (cmd/tinyld's verbose log), not consulted
	// by relocation resolution.
	WeakOnly []string
}

// Lookup returns the location of name's global definition, if any.
func (t *GlobalSymbolTable) Lookup(name string) (GlobalLocation, bool) {
	loc, ok := t.locations[name]
	return loc, ok
}

// isDefinition reports whether sym is a global definition: STB_GLOBAL
// binding, non-hidden visibility, and a non-zero section index (defined,
// not undefined).
func isDefinition(sym elf.Symbol) bool {
	bind := elf.ST_BIND(sym.Info)
	vis := elf.ST_VISIBILITY(sym.Other)
	return bind == elf.STB_GLOBAL && vis != elf.STV_HIDDEN && sym.Section != elf.SHN_UNDEF
}

// isWeakDefinition reports whether sym is a weakly-bound, otherwise
// defined symbol — eligible for the "global wins, no duplicate error"
// exception below, but never itself entered into the table.
func isWeakDefinition(sym elf.Symbol) bool {
	bind := elf.ST_BIND(sym.Info)
	vis := elf.ST_VISIBILITY(sym.Other)
	return bind == elf.STB_WEAK && vis != elf.STV_HIDDEN && sym.Section != elf.SHN_UNDEF
}

// BuildGlobalSymbolTable scans every input's symbol table in order and
// collects global definitions.
//
// The weak/global interaction is formalized as: STB_WEAK definitions never
// enter this table at all (they're invisible to cross-unit resolution —
// this linker has no fallback-to-zero or weak-preference machinery to
// make a weak definition useful as an import target anyway), so a name
// defined weakly in one input and globally in another resolves to the
// global definition with no error. Two STB_GLOBAL definitions of the same
// name remain a hard error.
func BuildGlobalSymbolTable(set *obj.InputSet) (*GlobalSymbolTable, error) {
	t := &GlobalSymbolTable{locations: make(map[string]GlobalLocation)}

	// First pass: globals only, so that global-vs-weak ordering across
	// inputs never affects the outcome.
	for _, in := range set.Inputs() {
		for i, sym := range in.Symbols() {
			if !isDefinition(sym) {
				continue
			}
			if existing, dup := t.locations[sym.Name]; dup {
				return nil, linkerr.NewSymbol(sym.Name,
					"duplicate definition in %s and %s",
					set.Get(existing.Input).Name(), in.Name())
			}
			t.locations[sym.Name] = GlobalLocation{Input: in.ID(), SymIndex: i}
		}
	}

	// Second pass: record names that were only ever defined weakly, for
	// diagnostics. A name defined both weakly and globally is not
	// reported here (it resolved successfully above).
	weakSeen := make(map[string]bool)
	for _, in := range set.Inputs() {
		for _, sym := range in.Symbols() {
			if !isWeakDefinition(sym) || weakSeen[sym.Name] {
				continue
			}
			weakSeen[sym.Name] = true
			if _, isGlobal := t.locations[sym.Name]; !isGlobal {
				t.WeakOnly = append(t.WeakOnly, sym.Name)
			}
		}
	}

	return t, nil
}
