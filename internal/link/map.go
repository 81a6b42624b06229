package link

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tinyld/tinyld/internal/obj"
)

// MapEntry is one resolved global symbol's final, linked virtual address —
// one line of a linker map.
type MapEntry struct {
	Name string
	Addr uint64
}

// BuildMap resolves every name in globals to its final virtual address,
// adapted from a name→address symtab lookup structure (symtab/symtab.go)
// and narrowed for this linker's needs: tinyld's globals are the complete
// set of definitions (not an arbitrary debug-info symbol stream that can
// contain duplicate addresses or overlapping ranges), so a flat sorted
// slice replaces an interval-aware lookup structure.
func BuildMap(prog *LinkedProgram, cfg Config, set *obj.InputSet, globals *GlobalSymbolTable) []MapEntry {
	chunkStart := make(map[chunkKey]uint64)
	for _, pos := range Layout(prog, cfg) {
		chunkStart[chunkKey{pos.Chunk.Input, pos.Chunk.SectionIndex}] = pos.ChunkStart
	}

	var entries []MapEntry
	for name, loc := range globals.locations {
		defInput := set.Get(loc.Input)
		defSym := defInput.Symbols()[loc.SymIndex]
		start, ok := chunkStart[chunkKey{loc.Input, uint32(defSym.Section)}]
		if !ok {
			continue // defining section wasn't included in the output; ApplyRelocations will have already failed on any use
		}
		entries = append(entries, MapEntry{Name: name, Addr: cfg.BaseAddr + start + defSym.Value})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Addr < entries[j].Addr })
	return entries
}

// Format renders a linker map as sorted "<address> <name>" lines,
// hex-formatted to match the convention of tools like `nm`/`ld -M`.
func Format(entries []MapEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%016x %s\n", e.Addr, e.Name)
	}
	return b.String()
}
