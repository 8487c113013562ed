package wire

import (
	"encoding/binary"

	"github.com/haukened/rr-nbt/internal/nbt/domain"
)

// cursor walks a received datagram field by field. The first read that does
// not fit records a *domain.TruncatedError; every later read is a no-op, so a
// failed field and everything after it keep their zero values.
type cursor struct {
	data []byte
	off  int
	err  error
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// take returns the next n bytes, or nil once the cursor has failed.
func (c *cursor) take(field string, n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || len(c.data)-c.off < n {
		c.err = &domain.TruncatedError{
			Field:  field,
			Offset: c.off,
			Need:   n,
			Have:   len(c.data) - c.off,
		}
		return nil
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) u8(field string, dst *uint8) {
	if b := c.take(field, 1); b != nil {
		*dst = b[0]
	}
}

func (c *cursor) u16(field string, dst *uint16) {
	if b := c.take(field, 2); b != nil {
		*dst = binary.BigEndian.Uint16(b)
	}
}

func (c *cursor) u32(field string, dst *uint32) {
	if b := c.take(field, 4); b != nil {
		*dst = binary.BigEndian.Uint32(b)
	}
}

// block copies exactly len(dst) bytes into dst.
func (c *cursor) block(field string, dst []byte) {
	if b := c.take(field, len(dst)); b != nil {
		copy(dst, b)
	}
}
