// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package imageparser

import (
	"encoding/binary"
	"fmt"
)

// byteCursor reads binary values from a fixed buffer.
// All reads are bounds checked and report ErrTruncated instead of
// reading out of range.
//
// byteCursor is a small value type; a copy has its own position.
type byteCursor struct {
	b []byte

	// The current position in b.
	off int

	// The absolute offset of b[0] in the file, used in errors only.
	base int

	stage string
}

func newByteCursor(b []byte, base int, stage string) byteCursor {
	return byteCursor{
		b:     b,
		base:  base,
		stage: stage,
	}
}

func (c *byteCursor) pos() int {
	return c.off
}

func (c *byteCursor) remaining() int {
	return len(c.b) - c.off
}

func (c *byteCursor) read1() (uint8, error) {
	b, err := c.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *byteCursor) read2(order binary.ByteOrder) (uint16, error) {
	b, err := c.readBytes(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

func (c *byteCursor) read4(order binary.ByteOrder) (uint32, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// readBytes returns the next n bytes as a view into the underlying buffer.
func (c *byteCursor) readBytes(n int) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, c.truncated(n)
	}
	b := c.b[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

func (c *byteCursor) skip(n int) error {
	if n < 0 || n > c.remaining() {
		return c.truncated(n)
	}
	c.off += n
	return nil
}

// seek moves to the absolute position off in the buffer.
// Seeking to the end of the buffer is allowed.
func (c *byteCursor) seek(off int) error {
	if off < 0 || off > len(c.b) {
		return newParseError(KindTruncated, c.stage, int64(c.base+c.off),
			fmt.Errorf("%w: seek to %d past end of %d bytes", ErrTruncated, off, len(c.b)))
	}
	c.off = off
	return nil
}

func (c *byteCursor) truncated(n int) error {
	return c.truncatedf(int64(n), "read")
}

func (c *byteCursor) truncatedf(n int64, what string, args ...any) error {
	return newParseError(KindTruncated, c.stage, int64(c.base+c.off),
		fmt.Errorf("%w: %s needs %d bytes, %d available", ErrTruncated, fmt.Sprintf(what, args...), n, c.remaining()))
}
