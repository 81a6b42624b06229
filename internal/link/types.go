// Package link implements the core of the static linker: section assembly,
// segment packing, address layout, and relocation resolution. It turns a
// obj.InputSet into a LinkedProgram ready for internal/elfwriter.
package link

import (
	"github.com/tinyld/tinyld/internal/obj"
)

// Permissions is the access-permission triple a section or segment carries.
// Permissions of a Section are the union (bitwise OR) of its chunks';
// permissions of a Segment are shared by every Section within it.
type Permissions struct {
	Read, Write, Execute bool
}

// Relax ORs other's bits into p.
func (p *Permissions) Relax(other Permissions) {
	p.Read = p.Read || other.Read
	p.Write = p.Write || other.Write
	p.Execute = p.Execute || other.Execute
}

// Flags encodes p as an ELF PT_LOAD p_flags value: (R<<2)|(W<<1)|X.
func (p Permissions) Flags() uint32 {
	var f uint32
	if p.Read {
		f |= 1 << 2
	}
	if p.Write {
		f |= 1 << 1
	}
	if p.Execute {
		f |= 1
	}
	return f
}

// Anchor is what a relocation's value is computed relative to: either the
// start of a section local to the referring input, or a named symbol
// resolved through the global symbol table (or, for local relocations
// handled outside §4.3's import path, through the referring input's own
// symbol table).
type Anchor struct {
	// IsSection is true for a Section{index} anchor; false for a
	// Symbol{name} anchor.
	IsSection bool

	// SectionIndex is the source-section-local index, valid when
	// IsSection is true.
	SectionIndex int

	// Symbol is the referenced name, valid when IsSection is false.
	Symbol string
}

// Relocate is one relocation to apply against a chunk's bytes.
type Relocate struct {
	PatchOffset    uint64
	Mode           uint32 // ELF x86-64 relocation type number
	RelativeTo     Anchor
	RelativeOffset int64 // r_addend
}

// patch is one applied, non-overlapping byte range over a chunk's original
// bytes.
type patch struct {
	offset int
	bytes  []byte
}

// SectionChunk is one input section's contribution to an output section.
type SectionChunk struct {
	Input        obj.InputID
	SectionIndex uint32 // source section index within Input
	Orig         []byte // borrowed bytes from the source input, never mutated
	Alignment    uint64
	Permissions  Permissions
	Relocations  []Relocate

	// patches are sorted by offset, non-overlapping, and each entirely
	// within len(Orig). The chunk's final content is Orig with every
	// patch overlaid at its offset.
	patches []patch
}

// Size is the chunk's size in bytes, fixed at construction.
func (c *SectionChunk) Size() uint64 { return uint64(len(c.Orig)) }

// ErrOverlappingPatch is returned by Patch when the new patch would overlap
// an existing one.
var ErrOverlappingPatch = patchError("overlapping patch")

// ErrPatchOutOfRange is returned by Patch when the new patch would extend
// past the end of the chunk.
var ErrPatchOutOfRange = patchError("patch out of range")

type patchError string

func (e patchError) Error() string { return string(e) }

// Patch installs bytes at offset at, rejecting overlapping or out-of-range
// patches. A patch may occupy the chunk's final byte: the bound is
// `at+len(bytes) > size`, not `>=`, which would wrongly reject a patch
// ending exactly at the chunk's last byte.
func (c *SectionChunk) Patch(at int, bytes []byte) error {
	if at < 0 || at+len(bytes) > len(c.Orig) {
		return ErrPatchOutOfRange
	}

	i := 0
	for i < len(c.patches) && c.patches[i].offset < at {
		i++
	}
	if i > 0 {
		prev := c.patches[i-1]
		if prev.offset+len(prev.bytes) > at {
			return ErrOverlappingPatch
		}
	}
	if i < len(c.patches) {
		next := c.patches[i]
		if at+len(bytes) > next.offset {
			return ErrOverlappingPatch
		}
	}

	c.patches = append(c.patches, patch{})
	copy(c.patches[i+1:], c.patches[i:])
	c.patches[i] = patch{at, bytes}
	return nil
}

// Bytes returns the chunk's final, patched content as a freshly composed
// slice: Orig with every patch overlaid at its offset.
func (c *SectionChunk) Bytes() []byte {
	out := make([]byte, len(c.Orig))
	copy(out, c.Orig)
	for _, p := range c.patches {
		copy(out[p.offset:], p.bytes)
	}
	return out
}

// Section groups every chunk contributed to one output section name,
// preserving input order.
type Section struct {
	Name   string
	Chunks []*SectionChunk
}

// Permissions is the union of the section's chunks' permissions.
func (s *Section) Permissions() Permissions {
	var p Permissions
	for _, c := range s.Chunks {
		p.Relax(c.Permissions)
	}
	return p
}

// Alignment is the maximum of the section's chunks' alignments.
func (s *Section) Alignment() uint64 {
	var a uint64
	for _, c := range s.Chunks {
		if c.Alignment > a {
			a = c.Alignment
		}
	}
	return a
}

// Size walks the chunks, aligning the running cursor up to each chunk's
// alignment before adding its size.
func (s *Section) Size() uint64 {
	var size uint64
	for _, c := range s.Chunks {
		size = alignUp(size, orOne(c.Alignment))
		size += c.Size()
	}
	return size
}

// Segment is a run of sections sharing one permission triple: the unit
// emitted as a single PT_LOAD program header.
type Segment struct {
	Sections []*Section
}

// Alignment is the maximum of the segment's sections' alignments.
func (g *Segment) Alignment() uint64 {
	var a uint64
	for _, s := range g.Sections {
		if al := s.Alignment(); al > a {
			a = al
		}
	}
	return a
}

// Size walks the sections the same way Section.Size walks chunks.
func (g *Segment) Size() uint64 {
	var size uint64
	for _, s := range g.Sections {
		size = alignUp(size, orOne(s.Alignment()))
		size += s.Size()
	}
	return size
}

// Permissions returns the permission triple shared by every section in the
// segment (all sections in a segment are grouped by matching permissions;
// an empty segment reports the zero value).
func (g *Segment) Permissions() Permissions {
	if len(g.Sections) == 0 {
		return Permissions{}
	}
	return g.Sections[0].Permissions()
}

// LinkedProgram is the fully laid-out, relocated program, ready to be
// written as an ELF64 executable.
type LinkedProgram struct {
	Segments []*Segment
}

// alignUp rounds n up to a multiple of alignment, which must be a power
// of two.
func alignUp(n, alignment uint64) uint64 {
	if over := n % alignment; over != 0 {
		return n - over + alignment
	}
	return n
}

// orOne treats a zero alignment as 1.
func orOne(alignment uint64) uint64 {
	if alignment == 0 {
		return 1
	}
	return alignment
}
