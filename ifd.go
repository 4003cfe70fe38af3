// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package imageparser

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	tagMake  uint16 = 0x010f
	tagModel uint16 = 0x0110

	ifdEntryLen = 12
)

// exifType represents the basic TIFF tag data types.
type exifType uint16

const (
	exifTypeUnsignedByte  exifType = 1
	exifTypeASCII         exifType = 2
	exifTypeUnsignedShort exifType = 3
	exifTypeUnsignedLong  exifType = 4
	exifTypeUnsignedRat   exifType = 5
	exifTypeSignedByte    exifType = 6
	exifTypeUndef         exifType = 7
	exifTypeSignedShort   exifType = 8
	exifTypeSignedLong    exifType = 9
	exifTypeSignedRat     exifType = 10
	exifTypeSignedFloat   exifType = 11
	exifTypeSignedDouble  exifType = 12
)

// Size in bytes of each type.
var exifTypeSize = map[exifType]uint32{
	exifTypeUnsignedByte:  1,
	exifTypeASCII:         1,
	exifTypeUnsignedShort: 2,
	exifTypeUnsignedLong:  4,
	exifTypeUnsignedRat:   8,
	exifTypeSignedByte:    1,
	exifTypeUndef:         1,
	exifTypeSignedShort:   2,
	exifTypeSignedLong:    4,
	exifTypeSignedRat:     8,
	exifTypeSignedFloat:   4,
	exifTypeSignedDouble:  8,
}

var cameraTagNames = map[uint16]string{
	tagMake:  "Make",
	tagModel: "Model",
}

// An IFD entry is represented in 12 bytes:
//   - 2 bytes for the tag ID
//   - 2 bytes for the data type
//   - 4 bytes for the number of data values of the specified type
//   - 4 bytes for the value itself, if it fits, otherwise for an offset
//     relative to the TIFF header to where the value is stored.
type ifdEntry struct {
	tag           uint16
	typ           exifType
	count         uint32
	valueOrOffset uint32

	// The position of the entry relative to the TIFF header.
	pos int
}

func readIFDEntry(c *byteCursor, order binary.ByteOrder) (ifdEntry, error) {
	var (
		e   ifdEntry
		err error
	)
	e.pos = c.pos()
	if e.tag, err = c.read2(order); err != nil {
		return e, err
	}
	typ, err := c.read2(order)
	if err != nil {
		return e, err
	}
	e.typ = exifType(typ)
	if e.count, err = c.read4(order); err != nil {
		return e, err
	}
	if e.valueOrOffset, err = c.read4(order); err != nil {
		return e, err
	}
	return e, nil
}

// valueLen returns the total byte length of the entry's value.
func (e ifdEntry) valueLen() (uint64, bool) {
	size, ok := exifTypeSize[e.typ]
	if !ok {
		return 0, false
	}
	return uint64(size) * uint64(e.count), true
}

// valueRef returns where the entry's value is stored.
func (e ifdEntry) valueRef(order binary.ByteOrder) (valueRef, error) {
	n, ok := e.valueLen()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTagType, e.typ)
	}
	if n <= 4 {
		// Writing the field back in the same byte order restores the
		// bytes as they appear in the file.
		var v inlineValue
		order.PutUint32(v.b[:], e.valueOrOffset)
		v.n = int(n)
		return v, nil
	}
	return offsetValue{offset: e.valueOrOffset, length: n}, nil
}

// valueRef is either an inlineValue or an offsetValue.
type valueRef interface {
	// resolve returns the value bytes from the TIFF structure the entry
	// was read from. The position of tiff is ignored.
	resolve(tiff byteCursor) ([]byte, error)
}

// inlineValue is a value of at most 4 bytes stored in the entry itself.
type inlineValue struct {
	b [4]byte
	n int
}

func (v inlineValue) resolve(byteCursor) ([]byte, error) {
	return v.b[:v.n], nil
}

// offsetValue is a value stored elsewhere in the TIFF structure.
type offsetValue struct {
	// Relative to the start of the TIFF header.
	offset uint32
	length uint64
}

func (v offsetValue) resolve(tiff byteCursor) ([]byte, error) {
	if err := tiff.seek(int(v.offset)); err != nil {
		return nil, err
	}
	if v.length > uint64(tiff.remaining()) {
		return nil, tiff.truncatedf(int64(v.length), "value")
	}
	return tiff.readBytes(int(v.length))
}

type optionalString struct {
	value string
	ok    bool
}

type cameraFields struct {
	make  optionalString
	model optionalString
}

type ifdDecoder struct {
	tiff   byteCursor
	header tiffHeader
	opts   Options

	latin1 *encoding.Decoder
}

func newIFDDecoder(tiff []byte, base int, header tiffHeader, opts Options) *ifdDecoder {
	return &ifdDecoder{
		tiff:   newByteCursor(tiff, base, stageIFD0),
		header: header,
		opts:   opts,
		latin1: charmap.ISO8859_1.NewDecoder(),
	}
}

// decode reads IFD0 and returns the Make and Model values.
// If a tag occurs more than once, the last occurrence wins.
func (d *ifdDecoder) decode() (cameraFields, error) {
	var fields cameraFields
	order := d.header.byteOrder.Binary()

	c := d.tiff
	if err := c.seek(int(d.header.ifd0Offset)); err != nil {
		return fields, err
	}

	numEntries, err := c.read2(order)
	if err != nil {
		return fields, err
	}

	// Validate the declared count against the buffer before reading any entry.
	if need := int64(numEntries) * ifdEntryLen; need > int64(c.remaining()) {
		return fields, c.truncatedf(need, "IFD0 with %d entries", numEntries)
	}

	for i := 0; i < int(numEntries); i++ {
		e, err := readIFDEntry(&c, order)
		if err != nil {
			return fields, err
		}

		var dst *optionalString
		switch e.tag {
		case tagMake:
			dst = &fields.make
		case tagModel:
			dst = &fields.model
		default:
			// Other tags are not dereferenced.
			continue
		}

		s, ok, err := d.decodeString(e, order)
		if err != nil {
			return cameraFields{}, err
		}
		*dst = optionalString{value: s, ok: ok}
	}

	return fields, nil
}

// decodeString decodes an ASCII entry.
// Unsupported types and oversized values are reported through Warnf
// and returned as absent.
func (d *ifdDecoder) decodeString(e ifdEntry, order binary.ByteOrder) (string, bool, error) {
	name := cameraTagNames[e.tag]
	offset := int64(d.tiff.base + e.pos)

	if e.typ != exifTypeASCII {
		d.opts.Warnf("%v", newParseError(KindUnsupportedTagType, stageIFD0, offset,
			fmt.Errorf("%w: %s has type %d, expected ASCII", ErrUnsupportedTagType, name, e.typ)))
		return "", false, nil
	}

	if e.count == 0 {
		return "", false, nil
	}

	if e.count > d.opts.LimitTagSize {
		d.opts.Warnf("imageparser: skipping %s at offset %d: %d bytes exceeds limit %d", name, offset, e.count, d.opts.LimitTagSize)
		return "", false, nil
	}

	ref, err := e.valueRef(order)
	if err != nil {
		return "", false, err
	}

	b, err := ref.resolve(d.tiff)
	if err != nil {
		return "", false, err
	}

	s := d.decodeLatin1(b)
	return s, s != "", nil
}

// decodeLatin1 decodes b as ISO-8859-1, stopping at the first NUL,
// and trims trailing whitespace. The result never aliases b.
func (d *ifdDecoder) decodeLatin1(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	s, err := d.latin1.String(string(b))
	if err != nil {
		// ISO-8859-1 maps every byte, so this should not happen.
		s = string(b)
	}
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
