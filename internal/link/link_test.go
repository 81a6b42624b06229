package link

import (
	"testing"

	"github.com/tinyld/tinyld/internal/obj"
	"github.com/tinyld/tinyld/internal/testelf"
)

func TestBuildRejectsFixedAddressSection(t *testing.T) {
	set := &obj.InputSet{}
	addTestObject(t, set, "a.o", []testelf.Section{
		{Name: ".text", Data: make([]byte, 8), Exec: true, Addr: 0x1000},
	}, []testelf.Sym{
		{Name: "_start", Section: ".text", Bind: 1},
	}, nil)

	if _, err := Build(set, DefaultConfig()); err == nil {
		t.Fatal("want fatal UnsupportedFeatureError for a section with a fixed sh_addr")
	}
}

func TestBuildGroupsSegmentsByPermission(t *testing.T) {
	set := &obj.InputSet{}
	addTestObject(t, set, "a.o", []testelf.Section{
		{Name: ".text", Data: make([]byte, 8), Exec: true},
		{Name: ".rodata", Data: make([]byte, 8)},
		{Name: ".data", Data: make([]byte, 8), Write: true},
	}, []testelf.Sym{
		{Name: "_start", Section: ".text", Bind: 1},
	}, nil)

	result, err := Build(set, DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Program.Segments) != 3 {
		t.Fatalf("want 3 segments (r-x, r--, rw-), got %d", len(result.Program.Segments))
	}
	perms := []Permissions{
		result.Program.Segments[0].Permissions(),
		result.Program.Segments[1].Permissions(),
		result.Program.Segments[2].Permissions(),
	}
	want := []Permissions{
		{Read: true, Execute: true},
		{Read: true},
		{Read: true, Write: true},
	}
	for i, p := range perms {
		if p != want[i] {
			t.Errorf("segment %d permissions = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestBuildFlattensArchiveMembers(t *testing.T) {
	set := &obj.InputSet{}
	objA := testelf.Build([]testelf.Section{{Name: ".text", Data: make([]byte, 8), Exec: true}},
		[]testelf.Sym{{Name: "_start", Section: ".text", Bind: 1}}, nil)
	objB := testelf.Build([]testelf.Section{{Name: ".text", Data: make([]byte, 8), Exec: true}},
		[]testelf.Sym{{Name: "helper", Section: ".text", Bind: 1}}, nil)

	archive := buildTestArchive(t, map[string][]byte{
		"a.o":    objA,
		"NOTES":  []byte("ignored, not an object member"),
		"b.o":    objB,
	}, []string{"a.o", "NOTES", "b.o"})

	inputs, err := set.AddArchive("libfoo.rlib", archive)
	if err != nil {
		t.Fatalf("AddArchive: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("want 2 flattened .o members, got %d", len(inputs))
	}

	result, err := Build(set, DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := result.Globals.Lookup("helper"); !ok {
		t.Error("expected 'helper' from the second archive member to be globally visible")
	}
}

// buildTestArchive hand-builds a minimal GNU ar byte buffer, mirroring the
// helper used by internal/obj's own archive tests.
func buildTestArchive(t *testing.T, members map[string][]byte, order []string) []byte {
	t.Helper()
	pad := func(s string, n int) string {
		if len(s) > n {
			t.Fatalf("field %q exceeds %d bytes", s, n)
		}
		for len(s) < n {
			s += " "
		}
		return s
	}
	buf := []byte("!<arch>\n")
	for _, name := range order {
		data := members[name]
		header := pad(name+"/", 16) + pad("0", 12) + pad("0", 6) + pad("0", 6) + pad("100644", 8) + pad(itoa(len(data)), 10) + "`\n"
		buf = append(buf, []byte(header)...)
		buf = append(buf, data...)
		if len(data)%2 != 0 {
			buf = append(buf, '\n')
		}
	}
	return buf
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
