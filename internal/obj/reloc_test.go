package obj

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/tinyld/tinyld/internal/testelf"
)

func TestRelocationsDecodesRelaRecords(t *testing.T) {
	data := testelf.Build(
		[]testelf.Section{
			{Name: ".text", Data: make([]byte, 16), Exec: true, Align: 1},
			{Name: ".rodata", Data: make([]byte, 16), Align: 1},
		},
		[]testelf.Sym{
			{Name: "K", Section: ".rodata", Value: 8, Bind: 1},
		},
		[]testelf.Reloc{
			{Section: ".text", Offset: 4, Type: 1, Addend: 0, Target: testelf.RelocTarget{Sym: "K"}},
		},
	)

	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("elf.NewFile: %v", err)
	}

	var textIdx elf.SectionIndex
	for i, sh := range f.Sections {
		if sh.Name == ".text" {
			textIdx = elf.SectionIndex(i)
		}
	}

	relocs, err := Relocations(f, textIdx)
	if err != nil {
		t.Fatalf("Relocations: %v", err)
	}
	if len(relocs) != 1 {
		t.Fatalf("want 1 relocation, got %d", len(relocs))
	}
	r := relocs[0]
	if r.Offset != 4 || r.Type != elf.R_X86_64_64 || r.Addend != 0 {
		t.Errorf("reloc = %+v", r)
	}

	syms, err := f.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if r.Sym < 0 || r.Sym >= len(syms) || syms[r.Sym].Name != "K" {
		t.Errorf("reloc.Sym = %d, want index of K", r.Sym)
	}
}
