package shaderlang

import (
	"fmt"
	"strings"
)

// Buffer accumulates indented source lines.
type Buffer struct {
	out    strings.Builder
	indent int
}

// NewBuffer returns a buffer whose lines start at the given indent level.
func NewBuffer(indent int) *Buffer {
	return &Buffer{indent: indent}
}

// Line writes one indented line.
func (b *Buffer) Line(format string, args ...any) {
	for i := 0; i < b.indent; i++ {
		b.out.WriteString("    ")
	}
	if len(args) == 0 {
		b.out.WriteString(format)
	} else {
		fmt.Fprintf(&b.out, format, args...)
	}
	b.out.WriteByte('\n')
}

// Blank writes an empty line.
func (b *Buffer) Blank() {
	b.out.WriteByte('\n')
}

// Raw appends pre-formatted text unchanged.
func (b *Buffer) Raw(s string) {
	b.out.WriteString(s)
}

// Indent increases the indent level.
func (b *Buffer) Indent() { b.indent++ }

// Dedent decreases the indent level.
func (b *Buffer) Dedent() {
	if b.indent > 0 {
		b.indent--
	}
}

// String returns the accumulated text.
func (b *Buffer) String() string { return b.out.String() }

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return b.out.Len() }

// IsIdentifier reports whether s is a C-style identifier, the shape every
// high-level dialect accepts for function names.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
