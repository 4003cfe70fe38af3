// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package exiftest builds synthetic JPEG images with an EXIF block for tests.
package exiftest

import (
	"encoding/binary"
)

// IFD0 tag IDs.
const (
	TagMake        uint16 = 0x010f
	TagModel       uint16 = 0x0110
	TagOrientation uint16 = 0x0112
	TagSoftware    uint16 = 0x0131
)

// TIFF field types.
const (
	TypeByte      uint16 = 1
	TypeASCII     uint16 = 2
	TypeShort     uint16 = 3
	TypeUndefined uint16 = 7
)

// Entry is an IFD entry.
// Value is stored inline when it fits in 4 bytes, out of line otherwise.
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Value []byte
}

// ASCII returns a NUL terminated ASCII entry.
func ASCII(tag uint16, s string) Entry {
	b := append([]byte(s), 0)
	return Entry{Tag: tag, Type: TypeASCII, Count: uint32(len(b)), Value: b}
}

// Short returns a SHORT entry encoded in order.
func Short(tag uint16, order binary.ByteOrder, v uint16) Entry {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return Entry{Tag: tag, Type: TypeShort, Count: 1, Value: b}
}

// TIFF describes a TIFF structure with a single IFD.
// Zero values select valid defaults.
type TIFF struct {
	// Defaults to binary.LittleEndian.
	Order binary.ByteOrder

	// Mark overrides the byte order mark derived from Order.
	Mark string

	// Magic overrides the TIFF magic number 42.
	Magic uint16

	// IFD0Offset overrides the IFD0 offset written to the header.
	// IFD0 is always stored right after the header.
	IFD0Offset uint32

	// NumEntries overrides the entry count written to IFD0.
	NumEntries int

	Entries []Entry
}

// Bytes encodes t.
func (t TIFF) Bytes() []byte {
	order := t.Order
	if order == nil {
		order = binary.LittleEndian
	}
	mark := t.Mark
	if mark == "" {
		mark = "II"
		if order == binary.BigEndian {
			mark = "MM"
		}
	}
	magic := t.Magic
	if magic == 0 {
		magic = 42
	}
	ifd0Offset := t.IFD0Offset
	if ifd0Offset == 0 {
		ifd0Offset = 8
	}
	numEntries := len(t.Entries)
	if t.NumEntries > 0 {
		numEntries = t.NumEntries
	}

	b := make([]byte, 8)
	copy(b, mark)
	order.PutUint16(b[2:], magic)
	order.PutUint32(b[4:], ifd0Offset)

	dataStart := 8 + 2 + len(t.Entries)*12 + 4

	var data []byte
	b = appendUint16(b, order, uint16(numEntries))
	for _, e := range t.Entries {
		b = appendUint16(b, order, e.Tag)
		b = appendUint16(b, order, e.Type)
		b = appendUint32(b, order, e.Count)
		if len(e.Value) <= 4 {
			var v [4]byte
			copy(v[:], e.Value)
			b = append(b, v[:]...)
			continue
		}
		b = appendUint32(b, order, uint32(dataStart+len(data)))
		data = append(data, e.Value...)
		if len(data)%2 == 1 {
			// Values start on a word boundary.
			data = append(data, 0)
		}
	}
	// No next IFD.
	b = appendUint32(b, order, 0)

	return append(b, data...)
}

// Segment encodes a JPEG marker segment.
func Segment(marker uint16, payload []byte) []byte {
	b := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint16(b, marker)
	binary.BigEndian.PutUint16(b[2:], uint16(len(payload)+2))
	return append(b, payload...)
}

// APP1EXIF returns an APP1 segment carrying tiff.
func APP1EXIF(tiff []byte) []byte {
	return Segment(0xffe1, append([]byte("Exif\x00\x00"), tiff...))
}

// APP1XMP returns an APP1 segment carrying an XMP packet.
func APP1XMP(packet string) []byte {
	return Segment(0xffe1, append([]byte("http://ns.adobe.com/xap/1.0/\x00"), packet...))
}

// APP0JFIF returns a JFIF APP0 segment.
func APP0JFIF() []byte {
	return Segment(0xffe0, []byte{'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1, 0, 1, 0, 0})
}

// JPEG returns SOI, the given segments, a minimal SOS with scan data, and EOI.
func JPEG(segments ...[]byte) []byte {
	b := []byte{0xff, 0xd8}
	for _, s := range segments {
		b = append(b, s...)
	}
	b = append(b, SOS()...)
	// Entropy-coded data, including a stuffed 0xff00.
	b = append(b, 0x12, 0xff, 0x00, 0x34)
	return append(b, 0xff, 0xd9)
}

// SOS returns a start of scan segment for one component.
func SOS() []byte {
	return Segment(0xffda, []byte{0x01, 0x01, 0x00, 0x00, 0x3f, 0x00})
}

// Camera returns a JPEG with Make and Model in an EXIF block encoded in order.
func Camera(order binary.ByteOrder, cameraMake, cameraModel string) []byte {
	tiff := TIFF{
		Order: order,
		Entries: []Entry{
			ASCII(TagMake, cameraMake),
			ASCII(TagModel, cameraModel),
			Short(TagOrientation, order, 1),
		},
	}
	return JPEG(APP0JFIF(), APP1EXIF(tiff.Bytes()))
}

func appendUint16(b []byte, order binary.ByteOrder, v uint16) []byte {
	var x [2]byte
	order.PutUint16(x[:], v)
	return append(b, x[:]...)
}

func appendUint32(b []byte, order binary.ByteOrder, v uint32) []byte {
	var x [4]byte
	order.PutUint32(x[:], v)
	return append(b, x[:]...)
}
