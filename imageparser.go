// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package imageparser reads the camera make, camera model and the EXIF
// byte order from JPEG images.
package imageparser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ByteOrder is the byte order of the TIFF structure inside the EXIF block.
type ByteOrder int

const (
	// LittleEndian is declared with "II" in the TIFF header.
	LittleEndian ByteOrder = iota + 1
	// BigEndian is declared with "MM" in the TIFF header.
	BigEndian
)

func (b ByteOrder) String() string {
	switch b {
	case LittleEndian:
		return "LittleEndian"
	case BigEndian:
		return "BigEndian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", int(b))
	}
}

// Binary returns the encoding/binary byte order for b.
func (b ByteOrder) Binary() binary.ByteOrder {
	if b == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// CameraMetadata is the result of a successful parse.
// It is immutable and safe to compare with ==.
type CameraMetadata struct {
	make      optionalString
	model     optionalString
	byteOrder ByteOrder
}

// Make returns the camera manufacturer and whether it was present.
func (m CameraMetadata) Make() (string, bool) {
	return m.make.value, m.make.ok
}

// Model returns the camera model and whether it was present.
func (m CameraMetadata) Model() (string, bool) {
	return m.model.value, m.model.ok
}

// ByteOrder returns the byte order of the EXIF block.
func (m CameraMetadata) ByteOrder() ByteOrder {
	return m.byteOrder
}

func (m CameraMetadata) String() string {
	str := func(o optionalString) string {
		if !o.ok {
			return "<none>"
		}
		return fmt.Sprintf("%q", o.value)
	}
	return fmt.Sprintf("Make: %s, Model: %s, Endian: %s", str(m.make), str(m.model), m.byteOrder)
}

// Options contains the options for the Decode function.
type Options struct {
	// The Reader to read the JPEG image from. It is read to the end.
	R io.Reader

	// Warnf will be called for each warning, e.g. a Make or Model tag
	// with an unsupported type. These never fail the parse.
	Warnf func(string, ...any)

	// LimitTagSize is the maximum size in bytes of a Make or Model value.
	// Larger values are skipped with a warning.
	// Default value is 10000.
	LimitTagSize uint32
}

const defaultLimitTagSize = 10000

func (opts Options) init() Options {
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}
	if opts.LimitTagSize == 0 {
		opts.LimitTagSize = defaultLimitTagSize
	}
	return opts
}

// ParseImage reads the JPEG file filename and returns its camera metadata.
//
// All errors are of type *ParseError.
func ParseImage(filename string) (CameraMetadata, error) {
	return DecodeFile(filename, Options{})
}

// DecodeFile is like ParseImage, but with opts applied.
// opts.R is ignored.
func DecodeFile(filename string, opts Options) (CameraMetadata, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return CameraMetadata{}, &ParseError{Kind: KindIO, Stage: stageRead, Path: filename, Offset: -1, Err: err}
	}
	m, err := parse(b, opts.init())
	return m, withPath(err, filename)
}

// Parse returns the camera metadata of the JPEG image in b.
// b is not retained.
func Parse(b []byte) (CameraMetadata, error) {
	return parse(b, Options{}.init())
}

// Decode reads a JPEG image from opts.R and returns its camera metadata.
func Decode(opts Options) (CameraMetadata, error) {
	if opts.R == nil {
		return CameraMetadata{}, &ParseError{Kind: KindIO, Stage: stageRead, Offset: -1, Err: errNoReader}
	}

	var name string
	if f, ok := opts.R.(interface{ Name() string }); ok {
		name = f.Name()
	}

	b, err := io.ReadAll(opts.R)
	if err != nil {
		return CameraMetadata{}, &ParseError{Kind: KindIO, Stage: stageRead, Path: name, Offset: -1, Err: err}
	}

	m, err := parse(b, opts.init())
	return m, withPath(err, name)
}

// parse runs the pipeline: JPEG segments, TIFF header, IFD0.
// It stops on the first error and never returns a partial result.
func parse(b []byte, opts Options) (CameraMetadata, error) {
	tiff, base, err := findEXIF(b)
	if err != nil {
		return CameraMetadata{}, err
	}

	header, err := readTIFFHeader(tiff, base)
	if err != nil {
		return CameraMetadata{}, err
	}

	fields, err := newIFDDecoder(tiff, base, header, opts).decode()
	if err != nil {
		return CameraMetadata{}, err
	}

	return CameraMetadata{
		make:      fields.make,
		model:     fields.model,
		byteOrder: header.byteOrder,
	}, nil
}

func withPath(err error, path string) error {
	if err == nil || path == "" {
		return err
	}
	var pe *ParseError
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = path
	}
	return err
}
