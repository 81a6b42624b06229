package link

// ChunkPos is one chunk's base-relative position, as produced by Layout.
// segment/section/chunk starts are all relative to Config.BaseAddr; the
// same values serve as both virtual-address offsets and file-content
// offsets within the loaded image, since segment file and memory layout
// move in lockstep.
type ChunkPos struct {
	Chunk        *SectionChunk
	Segment      *Segment
	Section      *Section
	SegmentStart uint64
	SectionStart uint64
	ChunkStart   uint64
}

// Layout walks a LinkedProgram's segments/sections/chunks exactly once,
// computing each chunk's base-relative start offset by a fixed alignment
// rule. ApplyRelocations, ResolveEntry, BuildMap and cmd/tinyld's
// disassembly dump all consume it. internal/elfwriter does not: Write walks
// the segment/section/chunk tree itself and pads file offsets with its own
// alignment arithmetic.
func Layout(prog *LinkedProgram, cfg Config) []ChunkPos {
	var out []ChunkPos

	var segmentCursor uint64
	for si, seg := range prog.Segments {
		if si > 0 {
			segAlign := seg.Alignment()
			if cfg.PageSize > segAlign {
				segAlign = cfg.PageSize
			}
			segmentCursor = alignUp(segmentCursor, orOne(segAlign))
		}
		segmentStart := segmentCursor

		var sectionCursor uint64
		for _, sec := range seg.Sections {
			sectionCursor = alignUp(sectionCursor, orOne(sec.Alignment()))
			sectionStart := sectionCursor

			var chunkCursor uint64
			for _, chunk := range sec.Chunks {
				chunkCursor = alignUp(chunkCursor, orOne(chunk.Alignment))
				out = append(out, ChunkPos{
					Chunk:        chunk,
					Segment:      seg,
					Section:      sec,
					SegmentStart: segmentStart,
					SectionStart: segmentStart + sectionStart,
					ChunkStart:   segmentStart + sectionStart + chunkCursor,
				})
				chunkCursor += chunk.Size()
			}
			sectionCursor += chunkCursor
		}
		segmentCursor = segmentStart + sectionCursor
	}

	return out
}
