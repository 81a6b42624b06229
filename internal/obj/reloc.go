package obj

import (
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/tinyld/tinyld/arch"
)

var le64 = arch.NewLayout(binary.LittleEndian, 8)

// Reloc is one decoded relocation record, adjacent to a target section.
type Reloc struct {
	// Offset is the byte offset within the target section to patch.
	Offset uint64
	// Type is the ELF x86-64 relocation type number (r_type).
	Type elf.R_X86_64
	// Sym indexes Input.Symbols() (i.e. it is the raw symtab index minus
	// one), or -1 if the relocation has no associated symbol.
	Sym int
	// Addend is the explicit addend carried by the RELA record.
	Addend int64
}

// Relocations returns the relocations whose target section index (the
// relocation section's sh_info) equals target, across every SHT_RELA
// section in f. Only RELA is handled: the x86-64 psABI always emits
// explicit-addend relocations for ET_REL objects, so SHT_REL is not
// expected and is ignored.
func Relocations(f *elf.File, target elf.SectionIndex) ([]Reloc, error) {
	var out []Reloc
	for _, sh := range f.Sections {
		if sh.Type != elf.SHT_RELA {
			continue
		}
		if elf.SectionIndex(sh.Info) != target {
			continue
		}

		data, err := sh.Data()
		if err != nil {
			return nil, fmt.Errorf("reading relocation section %s: %w", sh.Name, err)
		}
		if len(data)%24 != 0 {
			return nil, fmt.Errorf("relocation section %s has unaligned size %d", sh.Name, len(data))
		}

		for off := 0; off < len(data); off += 24 {
			rec := data[off : off+24]
			r_offset := le64.Uint64(rec[0:8])
			r_info := le64.Uint64(rec[8:16])
			r_addend := le64.Int64(rec[16:24])

			symIdx := int32(r_info >> 32)
			typ := elf.R_X86_64(uint32(r_info))

			sym := int(symIdx) - 1 // debug/elf.Symbols() omits the null entry
			out = append(out, Reloc{
				Offset: r_offset,
				Type:   typ,
				Sym:    sym,
				Addend: r_addend,
			})
		}
	}
	return out, nil
}
