package link

import (
	"strings"
	"testing"

	"github.com/tinyld/tinyld/internal/obj"
	"github.com/tinyld/tinyld/internal/testelf"
)

func TestBuildMapSortsByAddress(t *testing.T) {
	set := &obj.InputSet{}
	addTestObject(t, set, "a.o", []testelf.Section{
		{Name: ".text", Data: make([]byte, 16), Exec: true},
	}, []testelf.Sym{
		{Name: "_start", Section: ".text", Value: 0, Bind: 1},
		{Name: "late", Section: ".text", Value: 12, Bind: 1},
		{Name: "early", Section: ".text", Value: 4, Bind: 1},
	}, nil)

	globals, err := BuildGlobalSymbolTable(set)
	if err != nil {
		t.Fatalf("BuildGlobalSymbolTable: %v", err)
	}
	idx := BuildSectionNameIndex(set)
	sections, err := AssembleSections(set, idx)
	if err != nil {
		t.Fatalf("AssembleSections: %v", err)
	}
	segments, err := PackSegments(sections)
	if err != nil {
		t.Fatalf("PackSegments: %v", err)
	}
	prog := &LinkedProgram{Segments: segments}
	cfg := DefaultConfig()

	entries := BuildMap(prog, cfg, set, globals)
	if len(entries) != 3 {
		t.Fatalf("want 3 map entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Addr > entries[i].Addr {
			t.Fatalf("entries not sorted by address: %v", entries)
		}
	}

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	for _, want := range []string{"_start", "late", "early"} {
		if !names[want] {
			t.Errorf("missing map entry for %q", want)
		}
	}
}

func TestFormatRendersHexAddressAndName(t *testing.T) {
	out := Format([]MapEntry{{Name: "_start", Addr: 0x401000}})
	if !strings.Contains(out, "0000000000401000 _start\n") {
		t.Errorf("Format output = %q, missing expected line", out)
	}
}
