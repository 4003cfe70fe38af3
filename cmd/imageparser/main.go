// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Command imageparser lists the JPEG files below a photo folder and prints
// the camera make, camera model and EXIF byte order of the selected one.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/brhoades44/ImageParser"
)

// folderPathFile holds the photo folder when -root is not set.
const folderPathFile = "PhotosFolderPath.txt"

var errQuit = errors.New("quit")

// photo is a JPEG file found below the photo folder.
type photo struct {
	name string
	path string
}

// parseResult is the outcome of parsing one photo.
type parseResult struct {
	photo photo
	meta  imageparser.CameraMetadata
	err   error
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("imageparser: ")

	var root string
	flag.StringVar(&root, "root", "", "Photo folder to scan (default: the path in "+folderPathFile+")")
	all := flag.Bool("all", false, "Parse every photo without prompting")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of parallel workers for -all")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	root, err := photosRoot(root, folderPathFile)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Reading photos from %s\n", root)

	photos, err := listPhotos(root)
	if err != nil {
		log.Fatal(err)
	}
	if len(photos) == 0 {
		log.Fatalf("no JPEG photos found in %s", root)
	}

	if *all {
		parseAll(os.Stdout, photos, *workers, log.Printf)
		return
	}

	if err := prompt(os.Stdin, os.Stdout, photos, log.Printf); err != nil {
		log.Fatal(err)
	}
}

// photosRoot returns root if set, otherwise the folder named in the file
// at pathFile. The folder must exist.
func photosRoot(root, pathFile string) (string, error) {
	if root == "" {
		b, err := os.ReadFile(pathFile)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("no -root given and %s does not exist", pathFile)
			}
			return "", err
		}
		root = strings.TrimSpace(string(b))
		if root == "" {
			return "", fmt.Errorf("%s is empty", pathFile)
		}
	}

	fi, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("photo folder %s: %w", root, err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("photo folder %s is not a directory", root)
	}
	return root, nil
}

// listPhotos walks root and returns all .jpg and .jpeg files in lexical order.
func listPhotos(root string) ([]photo, error) {
	var photos []photo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".jpg", ".jpeg":
			photos = append(photos, photo{name: d.Name(), path: path})
		}
		return nil
	})
	return photos, err
}

// parseSelection returns the zero based index of the photo selected with s.
// It returns errQuit for "0" and "q".
func parseSelection(s string, n int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "0" || strings.EqualFold(s, "q") {
		return 0, errQuit
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("invalid entry %q: enter a number between 1 and %d", s, n)
	}
	return i - 1, nil
}

// prompt lists photos on w and parses the ones selected on r until the
// user quits or r is exhausted.
func prompt(r io.Reader, w io.Writer, photos []photo, warnf func(string, ...any)) error {
	sc := bufio.NewScanner(r)
	for {
		fmt.Fprintln(w, "\nPlease enter the number of the photo you would like to process (0 or q to quit):")
		for i, p := range photos {
			fmt.Fprintf(w, "%d %s\n", i+1, p.name)
		}
		fmt.Fprint(w, "What is your choice? ")

		if !sc.Scan() {
			fmt.Fprintln(w)
			return sc.Err()
		}

		i, err := parseSelection(sc.Text(), len(photos))
		if err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(w, err)
			continue
		}

		printResult(w, parsePhoto(photos[i], warnf))
	}
}

// parseAll parses photos with a pool of workers and prints the results
// in the order of photos.
func parseAll(w io.Writer, photos []photo, workers int, warnf func(string, ...any)) {
	if workers < 1 {
		workers = 1
	}

	type job struct {
		index int
		photo photo
	}

	jobs := make(chan job, workers)
	results := make([]parseResult, len(photos))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each worker writes to its own slots.
				results[j.index] = parsePhoto(j.photo, warnf)
			}
		}()
	}

	for i, p := range photos {
		jobs <- job{index: i, photo: p}
	}
	close(jobs)
	wg.Wait()

	var failed int
	for _, res := range results {
		fmt.Fprintf(w, "\n%s\n", res.photo.path)
		printResult(w, res)
		if res.err != nil {
			failed++
		}
	}
	fmt.Fprintf(w, "\nParsed %d photos, %d failed.\n", len(photos), failed)
}

func parsePhoto(p photo, warnf func(string, ...any)) parseResult {
	meta, err := imageparser.DecodeFile(p.path, imageparser.Options{
		Warnf: func(format string, args ...any) {
			warnf("%s: %s", p.name, fmt.Sprintf(format, args...))
		},
	})
	return parseResult{photo: p, meta: meta, err: err}
}

func printResult(w io.Writer, res parseResult) {
	if res.err != nil {
		fmt.Fprintf(w, "Error: %v\n", res.err)
		fmt.Fprint(w, imageparser.ErrorDetail(res.err))
		return
	}
	fmt.Fprintf(w, "Camera Make: %s\n", orNone(res.meta.Make()))
	fmt.Fprintf(w, "Camera Model: %s\n", orNone(res.meta.Model()))
	fmt.Fprintf(w, "Endian: %s\n", res.meta.ByteOrder())
}

func orNone(s string, ok bool) string {
	if !ok {
		return "<none>"
	}
	return s
}
