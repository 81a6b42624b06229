package link

import (
	"debug/elf"

	"github.com/tinyld/tinyld/internal/linkerr"
	"github.com/tinyld/tinyld/internal/obj"
)

// AssembleSections groups every input's matching section headers by output
// section name, in the order SectionNameIndex.AssemblyOrder prescribes,
// preserving input order within each name.
func AssembleSections(set *obj.InputSet, idx *SectionNameIndex) ([]*Section, error) {
	var sections []*Section
	for _, name := range idx.AssemblyOrder() {
		sec, err := assembleOne(set, name)
		if err != nil {
			return nil, err
		}
		if sec != nil {
			sections = append(sections, sec)
		}
	}
	return sections, nil
}

// assembleOne builds the output section named name, or returns nil if no
// input contributes a SHT_PROGBITS section by that name (an all-NOBITS or
// otherwise-typed match contributes nothing — BSS is out of scope).
func assembleOne(set *obj.InputSet, name string) (*Section, error) {
	sec := &Section{Name: name}

	for _, in := range set.Inputs() {
		f := in.ELF()
		for shIdx, sh := range f.Sections {
			if sh.Type != elf.SHT_PROGBITS || sh.Name != name {
				continue
			}
			if sh.Addr != 0 {
				return nil, &linkerr.UnsupportedFeatureError{
					Input:   in.Name(),
					Feature: "fixed-address input section " + name,
				}
			}

			data, err := sh.Data()
			if err != nil {
				return nil, &linkerr.InputFormatError{Input: in.Name(), Msg: "reading section " + name, Err: err}
			}

			relocs, err := obj.Relocations(f, elf.SectionIndex(shIdx))
			if err != nil {
				return nil, &linkerr.InputFormatError{Input: in.Name(), Msg: "reading relocations for " + name, Err: err}
			}

			chunk := &SectionChunk{
				Input:        in.ID(),
				SectionIndex: uint32(shIdx),
				Orig:         data,
				Alignment:    sh.Addralign,
				Permissions: Permissions{
					Read:    true,
					Write:   sh.Flags&elf.SHF_WRITE != 0,
					Execute: sh.Flags&elf.SHF_EXECINSTR != 0,
				},
			}
			chunk.Relocations = translateRelocs(f, in, relocs)
			sec.Chunks = append(sec.Chunks, chunk)
		}
	}

	if len(sec.Chunks) == 0 {
		return nil, nil
	}
	return sec, nil
}

// translateRelocs converts decoded obj.Reloc records into link.Relocate
// records, resolving each one's symbol reference to an Anchor: a reference
// to a STT_SECTION symbol becomes a Section{index} anchor; any other
// reference becomes a Symbol{name} anchor.
func translateRelocs(f *elf.File, in *obj.Input, relocs []obj.Reloc) []Relocate {
	syms := in.Symbols()
	out := make([]Relocate, 0, len(relocs))
	for _, r := range relocs {
		rel := Relocate{
			PatchOffset:    r.Offset,
			Mode:           uint32(r.Type),
			RelativeOffset: r.Addend,
		}
		if r.Sym >= 0 && r.Sym < len(syms) {
			sym := syms[r.Sym]
			if elf.ST_TYPE(sym.Info) == elf.STT_SECTION {
				rel.RelativeTo = Anchor{IsSection: true, SectionIndex: int(sym.Section)}
			} else {
				rel.RelativeTo = Anchor{IsSection: false, Symbol: sym.Name}
			}
		}
		out = append(out, rel)
	}
	return out
}
