package obj

import (
	"fmt"
	"strconv"
	"strings"
)

const arMagic = "!<arch>\n"

// ArchiveMember is one entry extracted from a System-V/GNU `ar` archive, as
// produced by `ar` (and by rustc for `.rlib` bundles).
type ArchiveMember struct {
	Name string
	Data []byte
}

// ParseArchive splits an `ar` archive into its members, in archive order.
//
// Only the common GNU layout is handled: the 8-byte global magic, 60-byte
// member headers, and the "//" extended-filename table GNU ar uses for
// names longer than 15 bytes. The "/" symbol-table member and the "//"
// name table are consumed here and not returned; callers filter the
// remaining members by name themselves (tinyld keeps only members ending
// in ".o" when flattening an archive into inputs).
func ParseArchive(data []byte) ([]ArchiveMember, error) {
	if len(data) < len(arMagic) || string(data[:len(arMagic)]) != arMagic {
		return nil, fmt.Errorf("not an ar archive (bad magic)")
	}
	pos := len(arMagic)

	var longNames string
	var members []ArchiveMember

	for pos < len(data) {
		if pos+60 > len(data) {
			return nil, fmt.Errorf("truncated archive member header at offset %d", pos)
		}
		hdr := data[pos : pos+60]
		pos += 60

		rawName := strings.TrimRight(string(hdr[0:16]), " ")
		sizeStr := strings.TrimSpace(string(hdr[48:58]))
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad member size %q: %w", sizeStr, err)
		}
		if hdr[58] != 0x60 || hdr[59] != 0x0a {
			return nil, fmt.Errorf("bad archive member terminator at offset %d", pos-2)
		}

		if pos+int(size) > len(data) {
			return nil, fmt.Errorf("member %q overruns archive (size %d at offset %d)", rawName, size, pos)
		}
		body := data[pos : pos+int(size)]
		pos += int(size)
		if size%2 != 0 {
			pos++ // padding byte
		}

		switch {
		case rawName == "/":
			// GNU symbol table; not needed for member flattening.
			continue
		case rawName == "//":
			longNames = string(body)
			continue
		case strings.HasPrefix(rawName, "/"):
			// GNU long name: "/<offset>" into the longNames table, entries
			// terminated by "/\n".
			offStr := rawName[1:]
			off, err := strconv.Atoi(offStr)
			if err != nil || off < 0 || off >= len(longNames) {
				return nil, fmt.Errorf("bad long name reference %q", rawName)
			}
			name := longNames[off:]
			if i := strings.IndexAny(name, "/\n"); i >= 0 {
				name = name[:i]
			}
			members = append(members, ArchiveMember{name, body})
		case strings.HasSuffix(rawName, "/"):
			members = append(members, ArchiveMember{rawName[:len(rawName)-1], body})
		default:
			members = append(members, ArchiveMember{rawName, body})
		}
	}

	return members, nil
}
