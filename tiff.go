// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package imageparser

import (
	"encoding/binary"
	"fmt"
)

const (
	byteOrderBigEndian    = 0x4d4d
	byteOrderLittleEndian = 0x4949

	meaningOfLife = 42
	tiffHeaderLen = 8
)

type tiffHeader struct {
	byteOrder ByteOrder

	// Relative to the start of the TIFF header.
	ifd0Offset uint32
}

// readTIFFHeader reads the 8 byte TIFF header at the start of b.
// base is the absolute offset of b in the file.
func readTIFFHeader(b []byte, base int) (tiffHeader, error) {
	var h tiffHeader
	c := newByteCursor(b, base, stageTIFFHeader)

	// "II" and "MM" read the same in either order.
	byteOrderTag, err := c.read2(binary.BigEndian)
	if err != nil {
		return h, err
	}

	switch byteOrderTag {
	case byteOrderBigEndian:
		h.byteOrder = BigEndian
	case byteOrderLittleEndian:
		h.byteOrder = LittleEndian
	default:
		return h, newParseError(KindInvalidTIFFMagic, stageTIFFHeader, int64(base),
			fmt.Errorf("%w: unknown byte order mark 0x%04x", ErrInvalidTIFFMagic, byteOrderTag))
	}

	order := h.byteOrder.Binary()

	magic, err := c.read2(order)
	if err != nil {
		return h, err
	}
	if magic != meaningOfLife {
		return h, newParseError(KindInvalidTIFFMagic, stageTIFFHeader, int64(base+2),
			fmt.Errorf("%w: magic number %d, expected %d", ErrInvalidTIFFMagic, magic, meaningOfLife))
	}

	if h.ifd0Offset, err = c.read4(order); err != nil {
		return h, err
	}
	if h.ifd0Offset < tiffHeaderLen {
		return h, newParseError(KindInvalidTIFFMagic, stageTIFFHeader, int64(base+4),
			fmt.Errorf("%w: IFD0 offset %d points into the header", ErrInvalidTIFFMagic, h.ifd0Offset))
	}

	return h, nil
}
