package link

import (
	"testing"

	"github.com/tinyld/tinyld/internal/obj"
	"github.com/tinyld/tinyld/internal/testelf"
)

func TestGlobalSymbolTableCollectsDefinitions(t *testing.T) {
	set := &obj.InputSet{}
	addTestObject(t, set, "a.o", []testelf.Section{
		{Name: ".text", Data: make([]byte, 8), Exec: true},
	}, []testelf.Sym{
		{Name: "_start", Section: ".text", Value: 0, Bind: 1},
	}, nil)

	table, err := BuildGlobalSymbolTable(set)
	if err != nil {
		t.Fatalf("BuildGlobalSymbolTable: %v", err)
	}
	if _, ok := table.Lookup("_start"); !ok {
		t.Error("expected _start in global table")
	}
}

func TestGlobalSymbolTableRejectsDuplicateGlobals(t *testing.T) {
	set := &obj.InputSet{}
	addTestObject(t, set, "a.o", []testelf.Section{{Name: ".text", Data: make([]byte, 8)}},
		[]testelf.Sym{{Name: "dup", Section: ".text", Bind: 1}}, nil)
	addTestObject(t, set, "b.o", []testelf.Section{{Name: ".text", Data: make([]byte, 8)}},
		[]testelf.Sym{{Name: "dup", Section: ".text", Bind: 1}}, nil)

	if _, err := BuildGlobalSymbolTable(set); err == nil {
		t.Fatal("want duplicate definition error")
	}
}

func TestWeakNeverShadowsOrConflictsWithGlobal(t *testing.T) {
	set := &obj.InputSet{}
	addTestObject(t, set, "a.o", []testelf.Section{{Name: ".text", Data: make([]byte, 8)}},
		[]testelf.Sym{{Name: "sym", Section: ".text", Bind: 2 /* STB_WEAK */}}, nil)
	addTestObject(t, set, "b.o", []testelf.Section{{Name: ".text", Data: make([]byte, 8)}},
		[]testelf.Sym{{Name: "sym", Section: ".text", Bind: 1 /* STB_GLOBAL */}}, nil)

	table, err := BuildGlobalSymbolTable(set)
	if err != nil {
		t.Fatalf("want no error when a weak def and a global def share a name, got: %v", err)
	}
	loc, ok := table.Lookup("sym")
	if !ok {
		t.Fatal("expected sym resolved to the global definition")
	}
	if set.Get(loc.Input).Name() != "b.o" {
		t.Errorf("sym resolved to %s, want b.o (the global definition)", set.Get(loc.Input).Name())
	}
}

func TestWeakOnlyNeverEntersTable(t *testing.T) {
	set := &obj.InputSet{}
	addTestObject(t, set, "a.o", []testelf.Section{{Name: ".text", Data: make([]byte, 8)}},
		[]testelf.Sym{{Name: "onlyweak", Section: ".text", Bind: 2}}, nil)

	table, err := BuildGlobalSymbolTable(set)
	if err != nil {
		t.Fatalf("BuildGlobalSymbolTable: %v", err)
	}
	if _, ok := table.Lookup("onlyweak"); ok {
		t.Error("weak-only symbol must not be resolvable through GlobalSymbolTable")
	}
	if len(table.WeakOnly) != 1 || table.WeakOnly[0] != "onlyweak" {
		t.Errorf("WeakOnly = %v, want [onlyweak]", table.WeakOnly)
	}
}
