// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/brhoades44/ImageParser/internal/exiftest"

	qt "github.com/frankban/quicktest"
)

func writePhotos(c *qt.C) string {
	dir := c.TempDir()
	files := map[string][]byte{
		"a/IMG_0001.JPG":   exiftest.Camera(binary.LittleEndian, "Canon", "Canon EOS 5D"),
		"a/b/DSC_0002.jpg": exiftest.Camera(binary.BigEndian, "NIKON CORPORATION", "NIKON D850"),
		"c/broken.jpeg":    []byte("not a jpeg"),
		"c/notes.txt":      []byte("hello"),
		".hidden.jpg":      exiftest.Camera(binary.LittleEndian, "Apple", "iPhone"),
	}
	for name, b := range files {
		filename := filepath.Join(dir, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(filename), 0o755), qt.IsNil)
		c.Assert(os.WriteFile(filename, b, 0o644), qt.IsNil)
	}
	return dir
}

func TestPhotosRoot(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	c.Run("Flag", func(c *qt.C) {
		root, err := photosRoot(dir, filepath.Join(dir, "missing.txt"))
		c.Assert(err, qt.IsNil)
		c.Assert(root, qt.Equals, dir)
	})

	c.Run("Path file", func(c *qt.C) {
		pathFile := filepath.Join(dir, folderPathFile)
		c.Assert(os.WriteFile(pathFile, []byte(dir+"\n"), 0o644), qt.IsNil)
		root, err := photosRoot("", pathFile)
		c.Assert(err, qt.IsNil)
		c.Assert(root, qt.Equals, dir)
	})

	c.Run("No path file", func(c *qt.C) {
		_, err := photosRoot("", filepath.Join(dir, "missing.txt"))
		c.Assert(err, qt.ErrorMatches, `no -root given and .*missing\.txt does not exist`)
	})

	c.Run("Empty path file", func(c *qt.C) {
		pathFile := filepath.Join(dir, "empty.txt")
		c.Assert(os.WriteFile(pathFile, []byte("  \n"), 0o644), qt.IsNil)
		_, err := photosRoot("", pathFile)
		c.Assert(err, qt.ErrorMatches, `.*empty\.txt is empty`)
	})

	c.Run("Folder does not exist", func(c *qt.C) {
		_, err := photosRoot(filepath.Join(dir, "nope"), "")
		c.Assert(err, qt.ErrorMatches, `photo folder .*nope: .*`)
	})

	c.Run("Not a directory", func(c *qt.C) {
		filename := filepath.Join(dir, "file.jpg")
		c.Assert(os.WriteFile(filename, nil, 0o644), qt.IsNil)
		_, err := photosRoot(filename, "")
		c.Assert(err, qt.ErrorMatches, `photo folder .* is not a directory`)
	})
}

func TestListPhotos(t *testing.T) {
	c := qt.New(t)
	dir := writePhotos(c)

	photos, err := listPhotos(dir)
	c.Assert(err, qt.IsNil)

	var names []string
	for _, p := range photos {
		names = append(names, p.name)
		c.Assert(strings.HasPrefix(p.path, dir), qt.IsTrue)
	}
	c.Assert(names, qt.DeepEquals, []string{"IMG_0001.JPG", "DSC_0002.jpg", "broken.jpeg"})

	_, err = listPhotos(filepath.Join(dir, "missing"))
	c.Assert(err, qt.IsNotNil)
}

func TestParseSelection(t *testing.T) {
	c := qt.New(t)

	for _, s := range []string{"0", "q", "Q", " q\r"} {
		_, err := parseSelection(s, 3)
		c.Assert(err, qt.Equals, errQuit, qt.Commentf("%q", s))
	}

	i, err := parseSelection("3", 3)
	c.Assert(err, qt.IsNil)
	c.Assert(i, qt.Equals, 2)

	for _, s := range []string{"4", "-1", "abc", ""} {
		_, err := parseSelection(s, 3)
		c.Assert(err, qt.ErrorMatches, `invalid entry .*: enter a number between 1 and 3`, qt.Commentf("%q", s))
	}
}

func TestPrompt(t *testing.T) {
	c := qt.New(t)
	dir := writePhotos(c)
	photos, err := listPhotos(dir)
	c.Assert(err, qt.IsNil)

	var out bytes.Buffer
	err = prompt(strings.NewReader("1\n7\n3\nq\n"), &out, photos, c.Logf)
	c.Assert(err, qt.IsNil)

	got := out.String()
	c.Assert(got, qt.Contains, "1 IMG_0001.JPG\n2 DSC_0002.jpg\n3 broken.jpeg\n")
	c.Assert(got, qt.Contains, "Camera Make: Canon\nCamera Model: Canon EOS 5D\nEndian: LittleEndian\n")
	c.Assert(got, qt.Contains, `invalid entry "7"`)
	c.Assert(got, qt.Contains, "Error: ")
	c.Assert(got, qt.Contains, "kind:   NotAJpegFile\n")

	c.Run("End of input", func(c *qt.C) {
		var out bytes.Buffer
		c.Assert(prompt(strings.NewReader("2\n"), &out, photos, c.Logf), qt.IsNil)
		c.Assert(out.String(), qt.Contains, "Camera Make: NIKON CORPORATION\nCamera Model: NIKON D850\nEndian: BigEndian\n")
	})
}

func TestParseAll(t *testing.T) {
	c := qt.New(t)
	dir := writePhotos(c)
	photos, err := listPhotos(dir)
	c.Assert(err, qt.IsNil)

	// Enough copies to keep several workers busy.
	var many []photo
	for i := 0; i < 20; i++ {
		many = append(many, photos...)
	}

	var (
		mu       sync.Mutex
		warnings []string
	)
	warnf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	for _, workers := range []int{0, 1, 4} {
		var out bytes.Buffer
		parseAll(&out, many, workers, warnf)
		got := out.String()
		c.Assert(strings.Count(got, "Camera Make: Canon\n"), qt.Equals, 20)
		c.Assert(strings.Count(got, "Endian: BigEndian\n"), qt.Equals, 20)
		summary := fmt.Sprintf("\nParsed %d photos, 20 failed.\n", len(many))
		c.Assert(strings.HasSuffix(got, summary), qt.IsTrue, qt.Commentf("workers %d", workers))

		// Results are printed in input order.
		first := strings.Index(got, photos[0].path)
		second := strings.Index(got, photos[1].path)
		c.Assert(first < second, qt.IsTrue)
	}
	c.Assert(warnings, qt.HasLen, 0)
}

func TestParsePhoto(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	tiff := exiftest.TIFF{
		Entries: []exiftest.Entry{
			{Tag: exiftest.TagMake, Type: exiftest.TypeUndefined, Count: 6, Value: []byte("Canon\x00")},
			exiftest.ASCII(exiftest.TagModel, "Canon EOS 5D"),
		},
	}.Bytes()
	filename := filepath.Join(dir, "odd.jpg")
	c.Assert(os.WriteFile(filename, exiftest.JPEG(exiftest.APP1EXIF(tiff)), 0o644), qt.IsNil)

	var warnings []string
	res := parsePhoto(photo{name: "odd.jpg", path: filename}, func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})
	c.Assert(res.err, qt.IsNil)
	c.Assert(warnings, qt.HasLen, 1)
	c.Assert(warnings[0], qt.Matches, `odd\.jpg: imageparser: unsupported tag type: .*`)

	var out bytes.Buffer
	printResult(&out, res)
	c.Assert(out.String(), qt.Equals, "Camera Make: <none>\nCamera Model: Canon EOS 5D\nEndian: LittleEndian\n")

	c.Run("Missing file", func(c *qt.C) {
		gone := filepath.Join(dir, "gone.jpg")
		res := parsePhoto(photo{name: "gone.jpg", path: gone}, c.Logf)
		var out bytes.Buffer
		printResult(&out, res)
		c.Assert(out.String(), qt.Contains, "kind:   IoError\n")
		c.Assert(out.String(), qt.Contains, "stage:  read\n")
		c.Assert(out.String(), qt.Contains, "path:   "+gone+"\n")
	})
}
