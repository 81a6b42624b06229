package link

import "github.com/tinyld/tinyld/internal/obj"

// Result is everything a caller needs after a successful link: the laid-out
// program, its entry address, and (for diagnostics) the weak-only symbol
// names collected along the way.
type Result struct {
	Program  *LinkedProgram
	Config   Config
	Entry    uint64
	Globals  *GlobalSymbolTable
	WeakOnly []string
}

// Build runs the full link pipeline in order: collect section names →
// collect globals → assemble sections → pack segments → apply relocations →
// resolve the entry point. It returns the first fatal error encountered;
// every fatal condition aborts the whole link, no partial outputs are
// flushed.
func Build(set *obj.InputSet, cfg Config) (*Result, error) {
	names := BuildSectionNameIndex(set)

	globals, err := BuildGlobalSymbolTable(set)
	if err != nil {
		return nil, err
	}

	sections, err := AssembleSections(set, names)
	if err != nil {
		return nil, err
	}

	segments, err := PackSegments(sections)
	if err != nil {
		return nil, err
	}

	prog := &LinkedProgram{Segments: segments}

	if err := ApplyRelocations(prog, cfg, set, globals); err != nil {
		return nil, err
	}

	entry, err := ResolveEntry(prog, cfg, set, globals)
	if err != nil {
		return nil, err
	}

	return &Result{
		Program:  prog,
		Config:   cfg,
		Entry:    entry,
		Globals:  globals,
		WeakOnly: globals.WeakOnly,
	}, nil
}
