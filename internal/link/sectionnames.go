package link

import (
	"debug/elf"
	"sort"

	"github.com/tinyld/tinyld/internal/obj"
)

// groupOrder is the fixed output-section name-group order sections are
// assembled in: exact match first, then every prefix match within the
// same group, before moving to the next group.
var groupOrder = []string{".entry", ".text", ".rodata"}

// SectionNameIndex is the set of distinct section names observed across an
// InputSet's inputs, restricted to SHT_PROGBITS/SHT_NOBITS sections
// (unnamed sections and any other type are never collected). Iteration
// order is sorted, not hash-map order, so assembly is reproducible.
type SectionNameIndex struct {
	names []string
	seen  map[string]bool
	alloc map[string]bool // name -> at least one occurrence has SHF_ALLOC
}

// BuildSectionNameIndex scans every input's section headers and records
// every distinct non-empty name of a SHT_PROGBITS or SHT_NOBITS section.
func BuildSectionNameIndex(set *obj.InputSet) *SectionNameIndex {
	idx := &SectionNameIndex{seen: make(map[string]bool), alloc: make(map[string]bool)}
	for _, in := range set.Inputs() {
		for _, sh := range in.ELF().Sections {
			if sh.Name == "" {
				continue
			}
			if sh.Type != elf.SHT_PROGBITS && sh.Type != elf.SHT_NOBITS {
				continue
			}
			if !idx.seen[sh.Name] {
				idx.seen[sh.Name] = true
				idx.names = append(idx.names, sh.Name)
			}
			if sh.Flags&elf.SHF_ALLOC != 0 {
				idx.alloc[sh.Name] = true
			}
		}
	}
	sort.Strings(idx.names)
	return idx
}

// Names returns the distinct section names, in sorted order.
func (idx *SectionNameIndex) Names() []string { return idx.names }

// AssemblyOrder returns the output section names in the order
// SectionAssembler processes them: for each fixed group ".entry", ".text",
// ".rodata" in turn, the exact name if observed, then every observed name
// with that group as a "G." prefix, in Names() order. Any remaining,
// loadable (SHF_ALLOC) section name matching no group is appended
// afterward, in Names() order — the three fixed groups are meant to cover
// the sections a real object emits, not to silently drop others. Non-ALLOC
// sections (".comment" and the like) never occupy output segment space and
// are excluded from this leftover pass.
func (idx *SectionNameIndex) AssemblyOrder() []string {
	var order []string
	used := make(map[string]bool)

	for _, g := range groupOrder {
		if idx.seen[g] {
			order = append(order, g)
			used[g] = true
		}
		prefix := g + "."
		for _, n := range idx.names {
			if used[n] {
				continue
			}
			if len(n) > len(prefix) && n[:len(prefix)] == prefix {
				order = append(order, n)
				used[n] = true
			}
		}
	}

	for _, n := range idx.names {
		if !used[n] && idx.alloc[n] {
			order = append(order, n)
		}
	}
	return order
}
