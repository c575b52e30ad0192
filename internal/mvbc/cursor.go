package mvbc

import (
	"encoding/binary"
	"fmt"
)

// cursor reads a module's ULEB128-framed table format sequentially.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, fmt.Errorf("unexpected end of bytecode at offset %d (need %d bytes)", c.pos, n)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) byte() (byte, error) {
	b, err := c.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) u128() ([]byte, error) { return c.bytes(16) }
func (c *cursor) u256() ([]byte, error) { return c.bytes(32) }

// uleb128 decodes an unsigned LEB128 varint, the encoding used
// throughout the wire format for table sizes and counts.
func (c *cursor) uleb128() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := c.byte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 {
			return 0, fmt.Errorf("uleb128 overflow at offset %d", c.pos)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func (c *cursor) uleb128Int() (int, error) {
	v, err := c.uleb128()
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint(0)>>1) {
		return 0, fmt.Errorf("uleb128 value %d too large", v)
	}
	return int(v), nil
}

func (c *cursor) str() (string, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
