// Package fixedtext bounds variable-length OS strings into the fixed-capacity
// text fields of sensing records.
//
// A capacity counts text units including the terminator slot of the original
// fixed-size field, so the longest value a field holds is capacity-1 units.
// Values end at the first NUL in the source buffer and are never cut inside a
// multi-unit character.
package fixedtext

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Capacities of the record fields downstream consumers were built against.
const (
	NameCapacity  = 260
	PathCapacity  = 260
	TitleCapacity = 256
)

// Bytes converts a raw byte buffer into a string of at most capacity-1 bytes.
func Bytes(raw []byte, capacity int) string {
	if capacity <= 1 {
		return ""
	}
	if i := indexNUL(raw); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) <= capacity-1 {
		return string(raw)
	}
	return string(trimPartialRune(raw[:capacity-1]))
}

// String applies Bytes to a value that is already a Go string.
func String(s string, capacity int) string {
	if len(s) < capacity && indexNUL([]byte(s)) < 0 {
		return s
	}
	return Bytes([]byte(s), capacity)
}

// UTF16 decodes a UTF-16 buffer of at most capacity-1 code units.
// A surrogate pair split by the bound is dropped whole.
func UTF16(units []uint16, capacity int) string {
	if capacity <= 1 {
		return ""
	}
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	if len(units) > capacity-1 {
		units = units[:capacity-1]
		if last := rune(units[len(units)-1]); last >= 0xd800 && last < 0xdc00 {
			units = units[:len(units)-1]
		}
	}
	return string(utf16.Decode(units))
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// trimPartialRune drops an incomplete UTF-8 sequence left at the end of b.
func trimPartialRune(b []byte) []byte {
	start := len(b) - 1
	for start > 0 && len(b)-start < utf8.UTFMax && !utf8.RuneStart(b[start]) {
		start--
	}
	if start < 0 || !utf8.RuneStart(b[start]) {
		return b
	}
	if !utf8.FullRune(b[start:]) {
		return b[:start]
	}
	return b
}
