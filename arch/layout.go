// Package arch provides byte-order decoding helpers shared by the object
// reader (RELA decoding) and the relocation layer (patch encoding). tinyld
// only targets 64-bit little-endian x86; those two layers take the byte
// order from here, while internal/elfwriter writes its header fields with
// binary.LittleEndian directly.
package arch

import (
	"encoding/binary"
	"fmt"
)

// Layout describes the data layout (byte order and word size) of an
// architecture.
type Layout struct {
	// order is 0 for little endian and 1 for big endian. We don't use
	// binary.ByteOrder directly for this because the interface call (and
	// inlining prevention) is costly.
	order    uint8
	wordSize uint8
}

// NewLayout returns a new Layout with the given byte order and word size.
//
// wordSize must be 1, 2, 4, or 8.
func NewLayout(order binary.ByteOrder, wordSize int) Layout {
	var l Layout
	switch order {
	case binary.LittleEndian:
		l.order = 0
	case binary.BigEndian:
		l.order = 1
	default:
		panic(fmt.Errorf("unknown byte order %v", order))
	}
	if wordSize < 1 || wordSize > 8 || (wordSize&(wordSize-1) != 0) {
		panic("word size must be 1, 2, 4, or 8")
	}
	l.wordSize = uint8(wordSize)
	return l
}

// Order returns the byte order of l.
func (l Layout) Order() binary.ByteOrder {
	if l.order == 0 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// WordSize returns the word size of l.
func (l Layout) WordSize() int {
	return int(l.wordSize)
}

func (l Layout) Uint64(b []byte) uint64 {
	_ = b[7]
	if l.order == 0 {
		return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
			uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
	} else {
		return uint64(b[7]) | uint64(b[6])<<8 | uint64(b[5])<<16 | uint64(b[4])<<24 |
			uint64(b[3])<<32 | uint64(b[2])<<40 | uint64(b[1])<<48 | uint64(b[0])<<56
	}
}

func (l Layout) Int64(b []byte) int64 {
	return int64(l.Uint64(b))
}
