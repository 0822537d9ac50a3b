// Package source implements the Source Loader stage: turning a directory
// tree or an in-memory virtual directory into a deterministic path->text
// mapping (spec.md §2 stage 1, §6).
package source

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Extension is the fixed Shad source file extension (spec.md §6).
const Extension = ".shad"

// IOError is one file read failure, part of the Io error taxonomy
// (spec.md §7).
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// Errors collects every IOError from one load (spec.md §7: collect all of
// one taxonomy before returning).
type Errors []*IOError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no I/O errors"
	}
	return e[0].Error()
}

// File is one loaded source file.
type File struct {
	Path string
	Text string
}

// LoadDir walks root, selecting files by Extension, and returns them sorted
// by path. A symlink to a file is read through; a symlinked directory
// (root included) is not descended into. The sorted order is the
// deterministic order the id
// allocator and parser rely on (spec.md §5). Per-file reads happen
// concurrently via errgroup; only the final sort and downstream parsing are
// required to be sequential.
func LoadDir(root string) ([]File, error) {
	paths, err := discover(root)
	if err != nil {
		return nil, Errors{&IOError{Path: root, Err: err}}
	}

	texts := make([]string, len(paths))
	g, _ := errgroup.WithContext(context.Background())
	errsCh := make(chan *IOError, len(paths))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			data, err := os.ReadFile(p)
			if err != nil {
				errsCh <- &IOError{Path: p, Err: err}
				return nil
			}
			texts[i] = decodeLossy(data)
			return nil
		})
	}
	_ = g.Wait()
	close(errsCh)

	var errs Errors
	for e := range errsCh {
		errs = append(errs, e)
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })
		return nil, errs
	}

	files := make([]File, len(paths))
	for i, p := range paths {
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		files[i] = File{Path: filepath.ToSlash(rel), Text: texts[i]}
	}
	return files, nil
}

func discover(root string) ([]string, error) {
	var paths []string
	err := filepath.Walk(root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			resolved, statErr := os.Stat(p)
			if statErr != nil {
				return nil
			}
			info = resolved
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(p) == Extension {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadVirtual accepts an in-memory path->bytes mapping (spec.md §6) and
// returns it as sorted Files, applying the same lossy UTF-8 decoding as
// LoadDir.
func LoadVirtual(files map[string][]byte) []File {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make([]File, len(paths))
	for i, p := range paths {
		out[i] = File{Path: p, Text: decodeLossy(files[p])}
	}
	return out
}

// decodeLossy decodes data as UTF-8, replacing invalid sequences with U+FFFD
// (spec.md §6: "Non-UTF-8 bytes are decoded lossily").
func decodeLossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b []byte
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		b = append(b, []byte(string(r))...)
		data = data[size:]
	}
	return string(b)
}
