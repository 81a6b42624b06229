package elfwriter

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/tinyld/tinyld/internal/link"
)

func segment(perm link.Permissions, size int, align uint64) *link.Segment {
	chunk := &link.SectionChunk{Orig: make([]byte, size), Alignment: align, Permissions: perm}
	return &link.Segment{Sections: []*link.Section{{Name: "s", Chunks: []*link.SectionChunk{chunk}}}}
}

func TestWriteProducesValidExecutable(t *testing.T) {
	prog := &link.LinkedProgram{Segments: []*link.Segment{
		segment(link.Permissions{Read: true, Execute: true}, 16, 1),
		segment(link.Permissions{Read: true, Write: true}, 8, 1),
	}}
	cfg := link.Config{BaseAddr: 0x400000, PageSize: 0x1000, SegmentFileAlign: 0x1000}

	var buf bytes.Buffer
	if err := Write(&buf, prog, cfg, 0x400000); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("elf.NewFile on written output: %v", err)
	}
	if f.Type != elf.ET_EXEC {
		t.Errorf("e_type = %v, want ET_EXEC", f.Type)
	}
	if f.Machine != elf.EM_X86_64 {
		t.Errorf("e_machine = %v, want EM_X86_64", f.Machine)
	}
	if f.Entry != 0x400000 {
		t.Errorf("e_entry = %#x, want %#x", f.Entry, 0x400000)
	}
	if len(f.Progs) != 2 {
		t.Fatalf("want 2 PT_LOAD program headers, got %d", len(f.Progs))
	}
	for i, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			t.Errorf("segment %d type = %v, want PT_LOAD", i, p.Type)
		}
		if p.Filesz != p.Memsz {
			t.Errorf("segment %d Filesz=%d Memsz=%d, want equal", i, p.Filesz, p.Memsz)
		}
		if p.Vaddr%cfg.PageSize != 0 {
			t.Errorf("segment %d Vaddr=%#x not page-aligned", i, p.Vaddr)
		}
	}
	if f.Progs[0].Flags != elf.PF_R|elf.PF_X {
		t.Errorf("segment 0 flags = %v, want PF_R|PF_X", f.Progs[0].Flags)
	}
	if f.Progs[1].Flags != elf.PF_R|elf.PF_W {
		t.Errorf("segment 1 flags = %v, want PF_R|PF_W", f.Progs[1].Flags)
	}
}

func TestWriteSeparatesSegmentsByPage(t *testing.T) {
	prog := &link.LinkedProgram{Segments: []*link.Segment{
		segment(link.Permissions{Read: true, Execute: true}, 4, 1),
		segment(link.Permissions{Read: true}, 4, 1),
	}}
	cfg := link.Config{BaseAddr: 0x400000, PageSize: 0x1000, SegmentFileAlign: 0x1000}

	var buf bytes.Buffer
	if err := Write(&buf, prog, cfg, 0x400000); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("elf.NewFile: %v", err)
	}
	if f.Progs[1].Vaddr-f.Progs[0].Vaddr != cfg.PageSize {
		t.Errorf("second segment vaddr = %#x, first = %#x, want exactly one page apart", f.Progs[1].Vaddr, f.Progs[0].Vaddr)
	}
}
