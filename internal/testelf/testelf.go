// Package testelf builds minimal, valid ELF64 little-endian ET_REL object
// byte images in memory, for exercising internal/obj and internal/link
// against debug/elf without checked-in binary fixtures.
package testelf

import (
	"encoding/binary"
)

// Section describes one PROGBITS section to include in the built object.
type Section struct {
	Name  string
	Data  []byte
	Write bool
	Exec  bool
	Align uint64 // 0 means 1
	Addr  uint64 // non-zero simulates a fixed-address section
}

// Sym describes one symbol table entry.
type Sym struct {
	Name    string
	Section string // name of a Section this symbol is defined in; "" = undefined
	Value   uint64
	Size    uint64
	Bind    uint8 // elf.STB_* value
	Vis     uint8 // elf.STV_* value
	Type    uint8 // elf.STT_* value
}

// RelocTarget selects what a Reloc's anchor resolves to.
type RelocTarget struct {
	// Section, if non-empty, makes this a Section{index} anchor pointing
	// at the named section's synthetic STT_SECTION symbol.
	Section string
	// Sym, if non-empty, makes this a Symbol{name} anchor naming one of
	// the Syms passed to Build.
	Sym string
}

// Reloc describes one RELA record patching Section at Offset.
type Reloc struct {
	Section string
	Offset  uint64
	Type    uint32
	Addend  int64
	Target  RelocTarget
}

const (
	shtNull    = 0
	shtProgbits = 1
	shtSymtab  = 2
	shtStrtab  = 3
	shtRela    = 4

	stbLocal = 0

	sttSection = 3

	shfWrite     = 0x1
	shfAlloc     = 0x2
	shfExecinstr = 0x4

	shnUndef = 0
)

// Build assembles a complete ELF64 LE ET_REL object file containing the
// given sections, symbols, and relocations.
func Build(sections []Section, syms []Sym, relocs []Reloc) []byte {
	b := &builder{}
	b.build(sections, syms, relocs)
	return b.out
}

type shdr struct {
	name                                        uint32 // offset into shstrtab, patched in later
	nameStr                                      string
	typ                                          uint32
	flags, addr, offset, size                    uint64
	link, info                                   uint32
	addralign, entsize                           uint64
}

type builder struct {
	out []byte
}

func (b *builder) build(sections []Section, syms []Sym, relocs []Reloc) {
	// Section index 0 is the reserved NULL section.
	shdrs := []shdr{{nameStr: "", typ: shtNull}}
	secIndex := map[string]int{} // section name -> shdr index

	// Lay out section content starting at contentBase, past the file
	// header and section header table; exact offsets don't matter to
	// debug/elf beyond internal consistency, so sections are packed
	// back-to-back with only the zero padding each one's Align needs.
	content := []byte{}
	const contentBase = 0x1000 // arbitrary; keeps offsets away from header/shdr region

	for _, s := range sections {
		align := s.Align
		if align == 0 {
			align = 1
		}
		for uint64(len(content))%align != 0 {
			content = append(content, 0)
		}
		off := contentBase + uint64(len(content))
		content = append(content, s.Data...)

		// Every section built here represents loadable content (.text,
		// .rodata, .data and friends), so SHF_ALLOC is set unconditionally;
		// nothing currently needs a deliberately non-loadable section like
		// .comment.
		var flags uint64 = shfAlloc
		if s.Write {
			flags |= shfWrite
		}
		if s.Exec {
			flags |= shfExecinstr
		}

		secIndex[s.Name] = len(shdrs)
		shdrs = append(shdrs, shdr{
			nameStr:   s.Name,
			typ:       shtProgbits,
			flags:     flags,
			addr:      s.Addr,
			offset:    off,
			size:      uint64(len(s.Data)),
			addralign: align,
		})
	}

	// Symbol table: null entry, then one auto STT_SECTION local per
	// section (in section order), then the caller's symbols.
	type rawSym struct {
		name          string
		info, other   uint8
		shndx         uint16
		value, size   uint64
	}
	rawSyms := []rawSym{{}}
	sectionSymIndex := map[string]int{}
	for _, s := range sections {
		sectionSymIndex[s.Name] = len(rawSyms)
		rawSyms = append(rawSyms, rawSym{
			name:  "",
			info:  (stbLocal << 4) | sttSection,
			other: 0,
			shndx: uint16(secIndex[s.Name]),
		})
	}
	userSymIndex := map[string]int{}
	for _, sym := range syms {
		shndx := uint16(shnUndef)
		if sym.Section != "" {
			shndx = uint16(secIndex[sym.Section])
		}
		userSymIndex[sym.Name] = len(rawSyms)
		rawSyms = append(rawSyms, rawSym{
			name:  sym.Name,
			info:  (sym.Bind << 4) | sym.Type,
			other: sym.Vis,
			shndx: shndx,
			value: sym.Value,
			size:  sym.Size,
		})
	}

	// String tables.
	strtab := []byte{0}
	strtabOff := map[string]uint32{"": 0}
	intern := func(tab *[]byte, offs map[string]uint32, s string) uint32 {
		if s == "" {
			return 0
		}
		if off, ok := offs[s]; ok {
			return off
		}
		off := uint32(len(*tab))
		*tab = append(*tab, []byte(s)...)
		*tab = append(*tab, 0)
		offs[s] = off
		return off
	}
	symNameOff := make([]uint32, len(rawSyms))
	for i, rs := range rawSyms {
		symNameOff[i] = intern(&strtab, strtabOff, rs.name)
	}

	shstrtab := []byte{0}
	shstrtabOff := map[string]uint32{"": 0}

	symtabIndex := len(shdrs)
	shdrs = append(shdrs, shdr{nameStr: ".symtab", typ: shtSymtab, entsize: 24})
	strtabIndex := len(shdrs)
	shdrs = append(shdrs, shdr{nameStr: ".strtab", typ: shtStrtab})

	// One SHT_RELA section per distinct target section, in first-use order.
	var relaOrder []string
	relaBySection := map[string][]Reloc{}
	for _, r := range relocs {
		if _, ok := relaBySection[r.Section]; !ok {
			relaOrder = append(relaOrder, r.Section)
		}
		relaBySection[r.Section] = append(relaBySection[r.Section], r)
	}
	relaShdrIndex := map[string]int{}
	for _, secName := range relaOrder {
		relaShdrIndex[secName] = len(shdrs)
		shdrs = append(shdrs, shdr{
			nameStr: ".rela" + secName,
			typ:     shtRela,
			link:    uint32(symtabIndex),
			info:    uint32(secIndex[secName]),
			entsize: 24,
		})
	}

	shstrtabIndex := len(shdrs)
	shdrs = append(shdrs, shdr{nameStr: ".shstrtab", typ: shtStrtab})

	for i := range shdrs {
		shdrs[i].name = intern(&shstrtab, shstrtabOff, shdrs[i].nameStr)
	}

	// Serialize symtab.
	symtabBytes := make([]byte, 24*len(rawSyms))
	for i, rs := range rawSyms {
		rec := symtabBytes[i*24 : i*24+24]
		binary.LittleEndian.PutUint32(rec[0:4], symNameOff[i])
		rec[4] = rs.info
		rec[5] = rs.other
		binary.LittleEndian.PutUint16(rec[6:8], rs.shndx)
		binary.LittleEndian.PutUint64(rec[8:16], rs.value)
		binary.LittleEndian.PutUint64(rec[16:24], rs.size)
	}
	shdrs[symtabIndex].size = uint64(len(symtabBytes))
	shdrs[symtabIndex].link = uint32(strtabIndex)

	shdrs[strtabIndex].size = uint64(len(strtab))

	relaBytes := map[string][]byte{}
	for _, secName := range relaOrder {
		rs := relaBySection[secName]
		buf := make([]byte, 24*len(rs))
		for i, r := range rs {
			var symIdx int
			if r.Target.Section != "" {
				symIdx = sectionSymIndex[r.Target.Section]
			} else {
				symIdx = userSymIndex[r.Target.Sym]
			}
			rec := buf[i*24 : i*24+24]
			binary.LittleEndian.PutUint64(rec[0:8], r.Offset)
			info := (uint64(symIdx) << 32) | uint64(r.Type)
			binary.LittleEndian.PutUint64(rec[8:16], info)
			binary.LittleEndian.PutUint64(rec[16:24], uint64(r.Addend))
		}
		relaBytes[secName] = buf
		shdrs[relaShdrIndex[secName]].size = uint64(len(buf))
	}

	shdrs[shstrtabIndex].size = uint64(len(shstrtab))

	// Now place the remaining (non-content) sections' file offsets,
	// immediately after the section content region.
	cursor := contentBase + uint64(len(content))
	place := func(idx int, data []byte) []byte {
		shdrs[idx].offset = cursor
		cursor += uint64(len(data))
		return data
	}
	symtabData := place(symtabIndex, symtabBytes)
	strtabData := place(strtabIndex, strtab)
	relaData := make(map[string][]byte, len(relaOrder))
	for _, secName := range relaOrder {
		relaData[secName] = place(relaShdrIndex[secName], relaBytes[secName])
	}
	shstrtabData := place(shstrtabIndex, shstrtab)

	// File header (64 bytes) + section header table, with e_shoff pointing
	// just past the header.
	const ehsize = 64
	const shentsize = 64
	shoff := uint64(ehsize)
	// The file is laid out as [header][shdr table][zero padding][content
	// at contentBase][symtab][strtab][rela sections][shstrtab]; every
	// sh_offset recorded above already assumes content starts at
	// contentBase, so the header+shdr table just needs to fit before it.
	headerAndShdrSize := ehsize + uint64(len(shdrs))*shentsize
	if headerAndShdrSize > contentBase {
		panic("testelf: too many sections for fixed contentBase padding")
	}

	b.out = make([]byte, ehsize)
	copy(b.out[0:4], []byte{0x7f, 'E', 'L', 'F'})
	b.out[4] = 2 // ELFCLASS64
	b.out[5] = 1 // ELFDATA2LSB
	b.out[6] = 1 // EI_VERSION
	binary.LittleEndian.PutUint16(b.out[16:18], 1) // e_type = ET_REL
	binary.LittleEndian.PutUint16(b.out[18:20], 0x3e)
	binary.LittleEndian.PutUint32(b.out[20:24], 1)
	binary.LittleEndian.PutUint64(b.out[24:32], 0) // e_entry
	binary.LittleEndian.PutUint64(b.out[32:40], 0) // e_phoff
	binary.LittleEndian.PutUint64(b.out[40:48], shoff)
	binary.LittleEndian.PutUint32(b.out[48:52], 0)
	binary.LittleEndian.PutUint16(b.out[52:54], ehsize)
	binary.LittleEndian.PutUint16(b.out[54:56], 0) // e_phentsize
	binary.LittleEndian.PutUint16(b.out[56:58], 0) // e_phnum
	binary.LittleEndian.PutUint16(b.out[58:60], shentsize)
	binary.LittleEndian.PutUint16(b.out[60:62], uint16(len(shdrs)))
	binary.LittleEndian.PutUint16(b.out[62:64], uint16(shstrtabIndex))

	for _, s := range shdrs {
		var rec [shentsize]byte
		binary.LittleEndian.PutUint32(rec[0:4], s.name)
		binary.LittleEndian.PutUint32(rec[4:8], s.typ)
		binary.LittleEndian.PutUint64(rec[8:16], s.flags)
		binary.LittleEndian.PutUint64(rec[16:24], s.addr)
		binary.LittleEndian.PutUint64(rec[24:32], s.offset)
		binary.LittleEndian.PutUint64(rec[32:40], s.size)
		binary.LittleEndian.PutUint32(rec[40:44], s.link)
		binary.LittleEndian.PutUint32(rec[44:48], s.info)
		binary.LittleEndian.PutUint64(rec[48:56], s.addralign)
		binary.LittleEndian.PutUint64(rec[56:64], s.entsize)
		b.out = append(b.out, rec[:]...)
	}

	for uint64(len(b.out)) < contentBase {
		b.out = append(b.out, 0)
	}
	b.out = append(b.out, content...)
	b.out = append(b.out, symtabData...)
	b.out = append(b.out, strtabData...)
	for _, secName := range relaOrder {
		b.out = append(b.out, relaData[secName]...)
	}
	b.out = append(b.out, shstrtabData...)
}
