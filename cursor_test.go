// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package imageparser

import (
	"encoding/binary"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestByteCursor(t *testing.T) {
	c := qt.New(t)

	c.Run("Read with explicit byte order", func(c *qt.C) {
		cur := newByteCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}, 0, "test")

		v1, err := cur.read1()
		c.Assert(err, qt.IsNil)
		c.Assert(v1, qt.Equals, uint8(0x01))

		v2, err := cur.read2(binary.BigEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(v2, qt.Equals, uint16(0x0203))

		v4, err := cur.read4(binary.LittleEndian)
		c.Assert(err, qt.IsNil)
		c.Assert(v4, qt.Equals, uint32(0x07060504))

		c.Assert(cur.remaining(), qt.Equals, 0)
		c.Assert(cur.pos(), qt.Equals, 7)
	})

	c.Run("Read past end", func(c *qt.C) {
		cur := newByteCursor([]byte{0x01, 0x02, 0x03}, 100, "test")
		c.Assert(cur.skip(2), qt.IsNil)

		_, err := cur.read2(binary.BigEndian)
		c.Assert(errors.Is(err, ErrTruncated), qt.IsTrue)
		c.Assert(IsKind(err, KindTruncated), qt.IsTrue)

		var pe *ParseError
		c.Assert(errors.As(err, &pe), qt.IsTrue)
		c.Assert(pe.Offset, qt.Equals, int64(102))
		c.Assert(pe.Stage, qt.Equals, "test")

		// A failed read does not move the cursor.
		c.Assert(cur.pos(), qt.Equals, 2)
		v, err := cur.read1()
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.Equals, uint8(0x03))

		_, err = cur.read1()
		c.Assert(err, qt.ErrorMatches, `imageparser: truncated data: read needs 1 bytes, 0 available \(offset 103\)`)
	})

	c.Run("Negative and oversized lengths", func(c *qt.C) {
		cur := newByteCursor(make([]byte, 8), 0, "test")
		_, err := cur.readBytes(-1)
		c.Assert(IsKind(err, KindTruncated), qt.IsTrue)
		c.Assert(IsKind(cur.skip(-1), KindTruncated), qt.IsTrue)
		c.Assert(IsKind(cur.skip(9), KindTruncated), qt.IsTrue)
		c.Assert(cur.pos(), qt.Equals, 0)
	})

	c.Run("Seek", func(c *qt.C) {
		cur := newByteCursor([]byte{0xaa, 0xbb, 0xcc}, 0, "test")
		c.Assert(cur.seek(2), qt.IsNil)
		v, err := cur.read1()
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.Equals, uint8(0xcc))

		c.Assert(cur.seek(3), qt.IsNil)
		c.Assert(cur.remaining(), qt.Equals, 0)

		c.Assert(IsKind(cur.seek(4), KindTruncated), qt.IsTrue)
		c.Assert(IsKind(cur.seek(-1), KindTruncated), qt.IsTrue)
	})

	c.Run("readBytes is a view", func(c *qt.C) {
		buf := []byte("abcdef")
		cur := newByteCursor(buf, 0, "test")
		b, err := cur.readBytes(3)
		c.Assert(err, qt.IsNil)
		c.Assert(string(b), qt.Equals, "abc")
		c.Assert(cap(b), qt.Equals, 3)
		buf[0] = 'x'
		c.Assert(string(b), qt.Equals, "xbc")
	})

	c.Run("Copies are independent", func(c *qt.C) {
		cur := newByteCursor([]byte{1, 2, 3, 4}, 0, "test")
		cp := cur
		c.Assert(cp.skip(3), qt.IsNil)
		c.Assert(cur.pos(), qt.Equals, 0)
		c.Assert(cp.pos(), qt.Equals, 3)
	})
}
