package link

import "github.com/tinyld/tinyld/internal/linkerr"

// palette is the fixed permission order segments are packed in.
var palette = []Permissions{
	{Read: true, Write: false, Execute: true},  // r-x
	{Read: true, Write: false, Execute: false}, // r--
	{Read: true, Write: true, Execute: false},  // rw-
	{Read: true, Write: true, Execute: true},   // rwx
}

// PackSegments partitions sections into segments by permission class, in
// palette order, dropping empty segments. A section matching no palette
// entry is a fatal error.
func PackSegments(sections []*Section) ([]*Segment, error) {
	buckets := make([][]*Section, len(palette))

	for _, sec := range sections {
		perm := sec.Permissions()
		idx := paletteIndex(perm)
		if idx < 0 {
			return nil, &linkerr.UnsupportedFeatureError{
				Input:   sec.Name,
				Feature: "uncollected section: permissions match no supported segment class",
			}
		}
		buckets[idx] = append(buckets[idx], sec)
	}

	var segments []*Segment
	for _, secs := range buckets {
		if len(secs) == 0 {
			continue
		}
		segments = append(segments, &Segment{Sections: secs})
	}
	return segments, nil
}

func paletteIndex(p Permissions) int {
	for i, entry := range palette {
		if entry == p {
			return i
		}
	}
	return -1
}
