// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package imageparser

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	markerSOI  = 0xffd8
	markerEOI  = 0xffd9
	markerSOS  = 0xffda
	markerAPP1 = 0xffe1
	markerTEM  = 0xff01
	markerRST0 = 0xffd0
	markerRST7 = 0xffd7
)

var exifSignature = []byte("Exif\x00\x00")

// segment is a JPEG marker segment.
// payload is a view into the image buffer and excludes the 2 length bytes.
type segment struct {
	marker uint16

	// The offset of the marker in the image buffer.
	offset int

	payload []byte
}

func (s segment) isEXIF() bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.payload, exifSignature)
}

// segmentScanner walks the marker segments of a JPEG buffer up to the
// start of scan. Usage follows bufio.Scanner:
//
//	for s.scan() {
//		seg := s.segment()
//	}
//	if err := s.err(); err != nil {
//		...
//	}
//
// The JPEG container is always big-endian.
type segmentScanner struct {
	c   byteCursor
	seg segment

	// The marker that ended the scan, SOS or EOI.
	end uint16

	done    bool
	scanErr error
}

func newSegmentScanner(b []byte) (*segmentScanner, error) {
	c := newByteCursor(b, 0, stageSegments)
	soi, err := c.read2(binary.BigEndian)
	if err != nil || soi != markerSOI {
		return nil, newParseError(KindNotJPEG, stageSegments, 0,
			fmt.Errorf("%w: missing start of image marker", ErrNotJPEG))
	}
	return &segmentScanner{c: c}, nil
}

// scan advances to the next segment.
// It returns false when the start of scan or end of image is reached,
// or on error.
func (s *segmentScanner) scan() bool {
	if s.done {
		return false
	}

	offset := s.c.pos()
	marker, err := s.readMarker()
	if err != nil {
		return s.fail(err)
	}

	if marker == markerSOS || marker == markerEOI {
		// Entropy-coded data follows SOS; no metadata after this point.
		s.end = marker
		s.done = true
		return false
	}

	if !hasLength(marker) {
		s.seg = segment{marker: marker, offset: offset}
		return true
	}

	// The length includes the 2 bytes for the length itself.
	length, err := s.c.read2(binary.BigEndian)
	if err != nil {
		return s.fail(err)
	}
	if length < 2 {
		return s.fail(newParseError(KindNotJPEG, stageSegments, int64(offset),
			fmt.Errorf("%w: segment 0x%04x declares length %d", ErrNotJPEG, marker, length)))
	}

	payload, err := s.c.readBytes(int(length) - 2)
	if err != nil {
		return s.fail(err)
	}

	s.seg = segment{marker: marker, offset: offset, payload: payload}
	return true
}

func (s *segmentScanner) segment() segment {
	return s.seg
}

func (s *segmentScanner) err() error {
	return s.scanErr
}

func (s *segmentScanner) fail(err error) bool {
	s.scanErr = err
	s.done = true
	return false
}

// readMarker reads the next 0xFFxx marker, skipping any 0xFF fill bytes.
func (s *segmentScanner) readMarker() (uint16, error) {
	offset := s.c.pos()
	b, err := s.c.read1()
	if err != nil {
		return 0, err
	}
	if b != 0xff {
		return 0, newParseError(KindNotJPEG, stageSegments, int64(offset),
			fmt.Errorf("%w: expected marker, found 0x%02x", ErrNotJPEG, b))
	}
	for b == 0xff {
		if b, err = s.c.read1(); err != nil {
			return 0, err
		}
	}
	if b == 0 {
		// A stuffed byte is only valid inside entropy-coded data.
		return 0, newParseError(KindNotJPEG, stageSegments, int64(offset),
			fmt.Errorf("%w: unexpected 0xff00 outside scan data", ErrNotJPEG))
	}
	return 0xff00 | uint16(b), nil
}

// hasLength reports whether the marker is followed by a length field.
func hasLength(marker uint16) bool {
	switch {
	case marker == markerSOI, marker == markerEOI, marker == markerTEM:
		return false
	case marker >= markerRST0 && marker <= markerRST7:
		return false
	default:
		return true
	}
}

// findEXIF returns the TIFF structure embedded in the first EXIF APP1 segment
// of the JPEG in b, and its absolute offset in b.
// Other APP1 segments, e.g. XMP, are skipped.
func findEXIF(b []byte) ([]byte, int, error) {
	s, err := newSegmentScanner(b)
	if err != nil {
		return nil, 0, err
	}

	for s.scan() {
		seg := s.segment()
		if seg.isEXIF() {
			// marker (2) + length (2) + signature.
			return seg.payload[len(exifSignature):], seg.offset + 4 + len(exifSignature), nil
		}
	}

	if err := s.err(); err != nil {
		return nil, 0, err
	}

	return nil, 0, newParseError(KindExifNotFound, stageSegments, -1,
		fmt.Errorf("%w before marker 0x%04x", ErrExifNotFound, s.end))
}
