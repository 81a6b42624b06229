// Package elfwriter emits the final ELF64 little-endian executable image
// for a linked program. It is grounded on the original linker's
// write_elf64.rs: the same three-part layout (file header,
// program header table, padded segment contents) and the same running
// position/vaddr bookkeeping, re-expressed with Go's standard io.Writer
// and encoding/binary instead of byte-literal writes.
package elfwriter

import (
	"encoding/binary"
	"io"

	"github.com/tinyld/tinyld/internal/link"
)

const (
	ehsize     = 0x40
	phentsize  = 0x38
	elfMachine = 0x3e // EM_X86_64
	elfType    = 2    // ET_EXEC
	ptLoad     = 1
)

// Write emits prog as a complete ELF64 executable to w, with e_entry set
// to entry.
func Write(w io.Writer, prog *link.LinkedProgram, cfg link.Config, entry uint64) error {
	cw := &countingWriter{w: w}

	if err := writeFileHeader(cw, entry, uint16(len(prog.Segments))); err != nil {
		return err
	}

	posAfterHeaders := uint64(ehsize) + uint64(len(prog.Segments))*phentsize
	posFirstContent := alignUp(posAfterHeaders, cfg.SegmentFileAlign)

	segmentOffsets := make([]uint64, len(prog.Segments))
	offset := posFirstContent
	for i, seg := range prog.Segments {
		segmentOffsets[i] = offset
		offset += alignUp(seg.Size(), cfg.SegmentFileAlign)
	}

	segVAddr := cfg.BaseAddr
	for i, seg := range prog.Segments {
		segVAddr = alignUp(segVAddr, cfg.PageSize)
		perm := seg.Permissions()
		size := alignUp(seg.Size(), cfg.SegmentFileAlign)

		if err := writeProgramHeader(cw, programHeader{
			Type:   ptLoad,
			Flags:  perm.Flags(),
			Offset: segmentOffsets[i],
			VAddr:  segVAddr,
			PAddr:  segVAddr,
			FileSz: size,
			MemSz:  size,
			Align:  cfg.PageSize,
		}); err != nil {
			return err
		}

		segAlign := seg.Alignment()
		if segAlign < cfg.PageSize {
			segAlign = cfg.PageSize
		}
		segVAddr += alignUp(seg.Size(), segAlign)
	}

	if err := writeZeros(cw, int(posFirstContent-cw.n)); err != nil {
		return err
	}

	for _, seg := range prog.Segments {
		for _, sec := range seg.Sections {
			if err := writeZeros(cw, int(alignUp(cw.n, orOne(sec.Alignment()))-cw.n)); err != nil {
				return err
			}
			for _, chunk := range sec.Chunks {
				if err := writeZeros(cw, int(alignUp(cw.n, orOne(chunk.Alignment))-cw.n)); err != nil {
					return err
				}
				if _, err := cw.Write(chunk.Bytes()); err != nil {
					return err
				}
			}
		}

		segAlign := seg.Alignment()
		if segAlign < cfg.PageSize {
			segAlign = cfg.PageSize
		}
		if err := writeZeros(cw, int(alignUp(cw.n, segAlign)-cw.n)); err != nil {
			return err
		}
	}

	return nil
}

func writeFileHeader(w io.Writer, entry uint64, phnum uint16) error {
	var hdr [ehsize]byte
	copy(hdr[0:4], []byte{0x7f, 'E', 'L', 'F'})
	hdr[4] = 2 // ELFCLASS64
	hdr[5] = 1 // ELFDATA2LSB
	hdr[6] = 1 // EI_VERSION
	// hdr[7] OSABI=0 (SysV), hdr[8:16] padding stay zero
	binary.LittleEndian.PutUint16(hdr[16:18], elfType)
	binary.LittleEndian.PutUint16(hdr[18:20], elfMachine)
	binary.LittleEndian.PutUint32(hdr[20:24], 1) // e_version
	binary.LittleEndian.PutUint64(hdr[24:32], entry)
	binary.LittleEndian.PutUint64(hdr[32:40], 0x40) // e_phoff
	binary.LittleEndian.PutUint64(hdr[40:48], 0)    // e_shoff
	binary.LittleEndian.PutUint32(hdr[48:52], 0)    // e_flags
	binary.LittleEndian.PutUint16(hdr[52:54], ehsize)
	binary.LittleEndian.PutUint16(hdr[54:56], phentsize)
	binary.LittleEndian.PutUint16(hdr[56:58], phnum)
	binary.LittleEndian.PutUint16(hdr[58:60], 0) // e_shentsize
	binary.LittleEndian.PutUint16(hdr[60:62], 0) // e_shnum
	binary.LittleEndian.PutUint16(hdr[62:64], 0) // e_shstrndx
	_, err := w.Write(hdr[:])
	return err
}

type programHeader struct {
	Type, Flags          uint32
	Offset, VAddr, PAddr uint64
	FileSz, MemSz, Align uint64
}

func writeProgramHeader(w io.Writer, ph programHeader) error {
	var buf [phentsize]byte
	binary.LittleEndian.PutUint32(buf[0:4], ph.Type)
	binary.LittleEndian.PutUint32(buf[4:8], ph.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], ph.Offset)
	binary.LittleEndian.PutUint64(buf[16:24], ph.VAddr)
	binary.LittleEndian.PutUint64(buf[24:32], ph.PAddr)
	binary.LittleEndian.PutUint64(buf[32:40], ph.FileSz)
	binary.LittleEndian.PutUint64(buf[40:48], ph.MemSz)
	binary.LittleEndian.PutUint64(buf[48:56], ph.Align)
	_, err := w.Write(buf[:])
	return err
}

func writeZeros(w io.Writer, n int) error {
	if n <= 0 {
		return nil
	}
	zeros := make([]byte, n)
	_, err := w.Write(zeros)
	return err
}

// countingWriter tracks the number of bytes written so far, letting the
// writer compute alignment padding against its own running file position
// instead of threading a separate counter through every call.
type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}

func alignUp(n, alignment uint64) uint64 {
	if alignment == 0 {
		return n
	}
	if over := n % alignment; over != 0 {
		return n - over + alignment
	}
	return n
}

func orOne(alignment uint64) uint64 {
	if alignment == 0 {
		return 1
	}
	return alignment
}
