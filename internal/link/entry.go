package link

import (
	"github.com/tinyld/tinyld/internal/linkerr"
	"github.com/tinyld/tinyld/internal/obj"
)

// entrySymbol is the well-known name the loader jumps to on process start.
const entrySymbol = "_start"

// ResolveEntry returns the final virtual address of the _start global
// symbol by resolving it through the global symbol table and the computed
// layout, rather than assuming the entry point sits at the base address.
// A link with no _start global is a fatal SymbolError.
func ResolveEntry(prog *LinkedProgram, cfg Config, set *obj.InputSet, globals *GlobalSymbolTable) (uint64, error) {
	loc, ok := globals.Lookup(entrySymbol)
	if !ok {
		return 0, linkerr.NewSymbol(entrySymbol, "entry point not found")
	}

	defInput := set.Get(loc.Input)
	defSym := defInput.Symbols()[loc.SymIndex]

	for _, pos := range Layout(prog, cfg) {
		if pos.Chunk.Input == loc.Input && pos.Chunk.SectionIndex == uint32(defSym.Section) {
			return cfg.BaseAddr + pos.ChunkStart + defSym.Value, nil
		}
	}

	return 0, linkerr.NewSymbol(entrySymbol, "defining section was not included in any output segment")
}
