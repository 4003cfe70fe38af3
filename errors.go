// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package imageparser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotJPEG is returned when the buffer does not start with a JPEG SOI marker
	// or the JPEG segment framing is broken.
	ErrNotJPEG = errors.New("imageparser: not a JPEG file")

	// ErrExifNotFound is returned for a well formed JPEG without an EXIF APP1 segment.
	ErrExifNotFound = errors.New("imageparser: no EXIF segment found")

	// ErrTruncated is returned when a read would go past the end of the data.
	ErrTruncated = errors.New("imageparser: truncated data")

	// ErrInvalidTIFFMagic is returned when the EXIF payload is not a valid TIFF structure.
	ErrInvalidTIFFMagic = errors.New("imageparser: invalid TIFF header")

	// ErrUnsupportedTagType is passed to Options.Warnf when Make or Model
	// is stored with a type other than ASCII. It never fails a parse.
	ErrUnsupportedTagType = errors.New("imageparser: unsupported tag type")
)

var errNoReader = errors.New("imageparser: no reader provided")

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	// KindIO means the image could not be read.
	KindIO ErrorKind = iota + 1
	// KindNotJPEG means the data is not a JPEG file.
	KindNotJPEG
	// KindExifNotFound means the JPEG carries no EXIF block.
	// Expected for screenshots and many edited images.
	KindExifNotFound
	// KindTruncated means the data ended before a complete structure was read.
	KindTruncated
	// KindInvalidTIFFMagic means the EXIF block failed TIFF header validation.
	KindInvalidTIFFMagic
	// KindUnsupportedTagType means a Make or Model entry had an unexpected type.
	KindUnsupportedTagType
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "IoError"
	case KindNotJPEG:
		return "NotAJpegFile"
	case KindExifNotFound:
		return "ExifSegmentNotFound"
	case KindTruncated:
		return "TruncatedData"
	case KindInvalidTIFFMagic:
		return "InvalidTiffMagic"
	case KindUnsupportedTagType:
		return "UnsupportedTagType"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

const (
	stageRead       = "read"
	stageSegments   = "jpeg segments"
	stageTIFFHeader = "tiff header"
	stageIFD0       = "ifd0"
)

// ParseError is the error type returned by ParseImage, Parse, Decode and DecodeFile.
type ParseError struct {
	Kind ErrorKind

	// Stage is the part of the pipeline that failed, e.g. "jpeg segments" or "ifd0".
	Stage string

	// Path is the file name, if known.
	Path string

	// Offset is the absolute byte offset in the file where the failure was detected.
	// It is -1 when not applicable.
	Offset int64

	Err error
}

func newParseError(kind ErrorKind, stage string, offset int64, err error) *ParseError {
	return &ParseError{
		Kind:   kind,
		Stage:  stage,
		Offset: offset,
		Err:    err,
	}
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	// *fs.PathError already carries the path.
	if e.Path != "" && e.Kind != KindIO {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Err.Error())
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " (offset %d)", e.Offset)
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *ParseError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// ErrorDetail renders a multi-line description of err for troubleshooting.
// It returns an empty string for a nil error.
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		return fmt.Sprintf("kind:   unknown\ncause:  %s\n", err)
	}

	var sb strings.Builder
	field := func(name string, v any) {
		fmt.Fprintf(&sb, "%-7s %v\n", name+":", v)
	}

	field("kind", pe.Kind)
	if pe.Stage != "" {
		field("stage", pe.Stage)
	}
	if pe.Offset >= 0 {
		field("offset", fmt.Sprintf("%d (0x%x)", pe.Offset, pe.Offset))
	}
	if pe.Path != "" {
		field("path", pe.Path)
	}
	field("cause", pe.Err)
	if hint := pe.Kind.hint(); hint != "" {
		field("hint", hint)
	}

	return sb.String()
}

func (k ErrorKind) hint() string {
	switch k {
	case KindIO:
		return "check that the file exists and is readable"
	case KindNotJPEG:
		return "the file is not a JPEG image or its segment structure is damaged"
	case KindExifNotFound:
		return "the image carries no camera metadata; screenshots and re-saved images often strip it"
	case KindTruncated:
		return "the file is incomplete or corrupt; try a fresh copy from the camera"
	case KindInvalidTIFFMagic:
		return "the EXIF block is present but its TIFF header is damaged"
	case KindUnsupportedTagType:
		return "the camera stored Make or Model in an unexpected format; the field was ignored"
	default:
		return ""
	}
}
