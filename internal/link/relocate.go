package link

import (
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/tinyld/tinyld/arch"
	"github.com/tinyld/tinyld/internal/linkerr"
	"github.com/tinyld/tinyld/internal/obj"
)

// modePC32 and modeAbs64 are the only relocation modes this linker honors;
// the numbers are the ELF x86-64 r_type values.
const (
	modeAbs64 = 1 // R_X86_64_64
	modePC32  = 2 // R_X86_64_PC32
)

// le is the little-endian byte layout every relocation patch is written
// in, regardless of the host's own byte order — adapted from the
// teacher's arch.Layout, which exists precisely to keep byte-order
// decisions in one place instead of scattered binary.LittleEndian calls.
var le = arch.NewLayout(binary.LittleEndian, 8)

type chunkKey struct {
	input        obj.InputID
	sectionIndex uint32
}

// ApplyRelocations applies every chunk's relocations in program order. It
// mutates each SectionChunk's patches; it never mutates Orig.
func ApplyRelocations(prog *LinkedProgram, cfg Config, set *obj.InputSet, globals *GlobalSymbolTable) error {
	positions := Layout(prog, cfg)

	chunkStart := make(map[chunkKey]uint64, len(positions))
	for _, pos := range positions {
		chunkStart[chunkKey{pos.Chunk.Input, pos.Chunk.SectionIndex}] = pos.ChunkStart
	}

	for _, pos := range positions {
		chunk := pos.Chunk
		in := set.Get(chunk.Input)

		for _, r := range chunk.Relocations {
			if r.Mode != modeAbs64 && r.Mode != modePC32 {
				return &linkerr.UnsupportedFeatureError{
					Input:   in.Name(),
					Feature: "relocation mode other than R_X86_64_PC32/R_X86_64_64",
				}
			}

			a, s, err := resolveAnchor(set, in, globals, chunkStart, r.RelativeTo)
			if err != nil {
				return err
			}

			width := 4
			var value uint64
			switch r.Mode {
			case modeAbs64:
				width = 8
				value = uint64(cfg.BaseAddr + a + s + uint64(r.RelativeOffset))
			case modePC32:
				signed := int64(a) + r.RelativeOffset + int64(s) - int64(pos.ChunkStart) - int64(r.PatchOffset)
				if signed > (1<<31)-1 || signed < -(1<<31) {
					return linkerr.NewRelocation(in.Name(), "PC-relative value %d at offset %d exceeds signed 32-bit range", signed, r.PatchOffset)
				}
				value = uint64(uint32(signed))
			}

			if err := checkZero(chunk, int(r.PatchOffset), width); err != nil {
				return linkerr.NewRelocation(in.Name(), "%v", err)
			}

			buf := make([]byte, width)
			switch width {
			case 8:
				le.Order().PutUint64(buf, value)
			case 4:
				le.Order().PutUint32(buf, uint32(value))
			}
			if err := chunk.Patch(int(r.PatchOffset), buf); err != nil {
				return linkerr.NewRelocation(in.Name(), "%v at offset %d", err, r.PatchOffset)
			}
		}
	}

	return nil
}

// resolveAnchor resolves a Relocate's Anchor to a base-relative address A
// and symbol offset S.
func resolveAnchor(set *obj.InputSet, in *obj.Input, globals *GlobalSymbolTable, chunkStart map[chunkKey]uint64, anc Anchor) (a, s uint64, err error) {
	if anc.IsSection {
		start, ok := chunkStart[chunkKey{in.ID(), uint32(anc.SectionIndex)}]
		if !ok {
			return 0, 0, linkerr.NewSymbol(in.Name(), "section %d was not included in any output segment", anc.SectionIndex)
		}
		return start, 0, nil
	}

	// Local-symbol path: resolved exactly like an import, but looked up
	// in the referencing chunk's own input instead of the
	// global table. Eligible regardless of binding — unlike
	// GlobalSymbolTable, which only accepts STB_GLOBAL — since a symbol
	// local to its own input never needs cross-unit visibility to serve
	// as a same-input relocation target.
	for _, sym := range in.Symbols() {
		if sym.Name != anc.Symbol || sym.Name == "" {
			continue
		}
		if sym.Section == elf.SHN_UNDEF {
			continue
		}
		start, ok := chunkStart[chunkKey{in.ID(), uint32(sym.Section)}]
		if !ok {
			return 0, 0, linkerr.NewSymbol(anc.Symbol, "defining section of local symbol was not included in any output segment")
		}
		return start, sym.Value, nil
	}

	loc, ok := globals.Lookup(anc.Symbol)
	if !ok {
		return 0, 0, linkerr.NewSymbol(anc.Symbol, "unresolved symbol referenced by %s", in.Name())
	}
	defInput := set.Get(loc.Input)
	defSym := defInput.Symbols()[loc.SymIndex]

	start, ok := chunkStart[chunkKey{loc.Input, uint32(defSym.Section)}]
	if !ok {
		return 0, 0, linkerr.NewSymbol(anc.Symbol, "defining section was not included in any output segment")
	}
	return start, defSym.Value, nil
}

func checkZero(chunk *SectionChunk, offset, width int) error {
	orig := chunk.Orig
	if offset < 0 || offset+width > len(orig) {
		return fmt.Errorf("patch at offset %d width %d out of range", offset, width)
	}
	for _, b := range orig[offset : offset+width] {
		if b != 0 {
			return fmt.Errorf("target bytes at offset %d are non-zero", offset)
		}
	}
	return nil
}
