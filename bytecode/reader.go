package bytecode

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when a read would pass the end of the buffer.
var ErrTruncated = errors.New("unexpected end of bytecode")

// Reader is a bounds-checked cursor over little-endian 32-bit tokens.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current byte offset.
func (r *Reader) Offset() int { return r.pos }

// Len returns the size of the underlying buffer in bytes.
func (r *Reader) Len() int { return len(r.buf) }

// Remaining returns the number of whole tokens left.
func (r *Reader) Remaining() int { return (len(r.buf) - r.pos) / 4 }

// AtEnd reports whether no whole token is left.
func (r *Reader) AtEnd() bool { return r.Remaining() == 0 }

// Next reads one token. On failure the cursor does not move.
func (r *Reader) Next() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, ErrTruncated
	}
	tok := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return tok, nil
}

// Peek returns the next token without consuming it.
func (r *Reader) Peek() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, ErrTruncated
	}
	return binary.LittleEndian.Uint32(r.buf[r.pos:]), nil
}

// Tokens reads n tokens as raw bytes. The returned slice aliases the buffer.
func (r *Reader) Tokens(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n*4]
	r.pos += n * 4
	return b, nil
}

// Skip advances n tokens.
func (r *Reader) Skip(n int) error {
	_, err := r.Tokens(n)
	return err
}

// Seek moves the cursor to byte offset off, clamped to the buffer.
func (r *Reader) Seek(off int) {
	switch {
	case off < 0:
		r.pos = 0
	case off > len(r.buf):
		r.pos = len(r.buf)
	default:
		r.pos = off
	}
}

// u32 reads a little-endian word at byte offset off of b.
func u32(b []byte, off uint32) (uint32, bool) {
	if uint64(off)+4 > uint64(len(b)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[off:]), true
}

// u16 reads a little-endian half-word at byte offset off of b.
func u16(b []byte, off uint32) (uint16, bool) {
	if uint64(off)+2 > uint64(len(b)) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[off:]), true
}
