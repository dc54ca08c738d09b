package fixedtext

import (
	"strings"
	"testing"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		capacity int
		want     string
	}{
		{"fits", []byte("notepad.exe"), NameCapacity, "notepad.exe"},
		{"stops at NUL", []byte("bash\x00garbage"), NameCapacity, "bash"},
		{"truncated to capacity-1", []byte("abcdefgh"), 5, "abcd"},
		{"exactly capacity-1", []byte("abcd"), 5, "abcd"},
		{"capacity one", []byte("abc"), 1, ""},
		{"zero capacity", []byte("abc"), 0, ""},
		{"empty", nil, NameCapacity, ""},
		{"cut inside multibyte rune", []byte("ab€"), 5, "ab"},
		{"cut after multibyte rune", []byte("ab€cd"), 6, "ab€"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bytes(tt.raw, tt.capacity)
			assert.Equal(t, tt.want, got)
			if tt.capacity > 0 {
				assert.LessOrEqual(t, len(got), tt.capacity-1)
			}
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestString(t *testing.T) {
	long := strings.Repeat("x", 1000)
	assert.Len(t, String(long, PathCapacity), PathCapacity-1)
	assert.Equal(t, "short", String("short", PathCapacity))
	assert.Equal(t, "a", String("a\x00b", PathCapacity))
}

func TestUTF16(t *testing.T) {
	encode := func(s string) []uint16 { return utf16.Encode([]rune(s)) }

	tests := []struct {
		name     string
		units    []uint16
		capacity int
		want     string
	}{
		{"fits", encode("Document - Editor"), TitleCapacity, "Document - Editor"},
		{"stops at NUL", append(encode("Inbox"), 0, 'x'), TitleCapacity, "Inbox"},
		{"non-BMP preserved", encode("notes 😀"), TitleCapacity, "notes 😀"},
		{"surrogate pair dropped whole", encode("ab😀"), 4, "ab"},
		{"pair fits exactly", encode("a😀"), 4, "a😀"},
		{"zero capacity", encode("abc"), 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UTF16(tt.units, tt.capacity))
		})
	}
}

func TestUTF16OverlongTitle(t *testing.T) {
	units := encodeRepeat('T', 1000)

	got := UTF16(units, TitleCapacity)

	assert.Len(t, utf16.Encode([]rune(got)), TitleCapacity-1)
	assert.Equal(t, strings.Repeat("T", TitleCapacity-1), got)
}

func encodeRepeat(r rune, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = uint16(r)
	}
	return out
}
