// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

//go:generate go run main.go
package main

import (
	"bytes"
	"encoding/binary"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/brhoades44/ImageParser/internal/exiftest"
)

// samples is the photo folder written for trying out cmd/imageparser.
var samples = []struct {
	name  string
	order binary.ByteOrder
	make  string
	model string
}{
	{"canon/IMG_0001.jpg", binary.LittleEndian, "Canon", "Canon EOS 5D"},
	{"nikon/DSC_0001.jpg", binary.BigEndian, "NIKON CORPORATION", "NIKON D850"},
	{"fujifilm/DSCF0001.jpg", binary.LittleEndian, "FUJIFILM", "X-T4"},
	{"olympus/P1010001.jpg", binary.BigEndian, "OLYMPUS IMAGING CORP.  ", "E-M5"},
}

func main() {
	outDir := "testdata_photos"
	os.RemoveAll(outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	for _, s := range samples {
		filename := filepath.Join(outDir, filepath.FromSlash(s.name))
		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(filename, exiftest.Camera(s.order, s.make, s.model), 0o644); err != nil {
			log.Fatal(err)
		}
	}

	// No EXIF at all.
	if err := os.WriteFile(filepath.Join(outDir, "screenshot.jpg"), exiftest.JPEG(exiftest.APP0JFIF()), 0o644); err != nil {
		log.Fatal(err)
	}

	abs, err := filepath.Abs(outDir)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile("PhotosFolderPath.txt", []byte(abs+"\n"), 0o644); err != nil {
		log.Fatal(err)
	}

	// Cross-check the samples with exiftool when it is installed.
	if _, err := exec.LookPath("exiftool"); err != nil {
		log.Printf("exiftool not found, skipping check")
		return
	}
	var buf bytes.Buffer
	cmd := exec.Command("exiftool", "-r", "-s", "-Make", "-Model", outDir)
	cmd.Stdout = &buf
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Fatal(err)
	}
	os.Stdout.Write(buf.Bytes())
}
