// Package compiler orchestrates the full pipeline -- load, parse, index,
// typecheck, validate, transform, emit -- behind the CompileDir and
// CompileVirtual entry points (spec.md §2), and defines the Error taxonomy the pipeline reports
// through (spec.md §4.8, §7).
package compiler

import (
	"fmt"
	"sort"

	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/emit"
	"github.com/gogpu/shad/index"
	"github.com/gogpu/shad/internal/idalloc"
	"github.com/gogpu/shad/parser"
	"github.com/gogpu/shad/prelude"
	"github.com/gogpu/shad/source"
	"github.com/gogpu/shad/transform"
	"github.com/gogpu/shad/typecheck"
	"github.com/gogpu/shad/validate"
)

// CompileDir loads every .shad file under root from disk and compiles it.
// Loaded paths are relative to root, so non-"~" imports resolve against ".".
func CompileDir(root string) (*emit.Program, *Error) {
	files, err := source.LoadDir(root)
	if err != nil {
		ioErrs, _ := err.(source.Errors)
		return nil, &Error{Taxonomy: TaxonomyIO, IO: ioErrs}
	}
	return compile(".", files)
}

// CompileVirtual compiles an in-memory path->bytes file set (spec.md §6),
// e.g. a test fixture extracted from a txtar archive. rootDir is used only
// to resolve non-"~" imports the same way CompileDir would.
func CompileVirtual(rootDir string, files map[string][]byte) (*emit.Program, *Error) {
	return compile(rootDir, source.LoadVirtual(files))
}

// compile runs every stage in pipeline order, stopping and returning at
// the first populated error taxonomy (spec.md §4.8). A panic raised by any
// stage -- an internal-invariant violation, never an expected user error
// -- is recovered here and reported as a Validation error tagged
// "internal" (SPEC_FULL §7), rather than escaping across the public API.
func compile(rootDir string, files []source.File) (program *emit.Program, errOut *Error) {
	defer func() {
		if r := recover(); r != nil {
			program = nil
			errOut = &Error{
				Taxonomy: TaxonomyValidation,
				Validation: validate.Errors{{
					Message: fmt.Sprintf("shad: internal error: %v", r),
				}},
			}
		}
	}()

	preludePath, preludeText := prelude.Load()
	all := make([]source.File, 0, len(files)+1)
	all = append(all, source.File{Path: preludePath, Text: preludeText})
	all = append(all, files...)

	ids := idalloc.New()
	roots := map[string]*ast.Node{}
	sources := map[string]string{}
	var parseErrs parser.Errors

	for _, f := range all {
		fr := ids.StartFile()
		root, err := parser.Parse(f.Path, f.Text, fr)
		if err != nil {
			parseErrs = append(parseErrs, err)
			continue
		}
		roots[f.Path] = root
		sources[f.Path] = f.Text
	}
	if len(parseErrs) > 0 {
		return nil, &Error{Taxonomy: TaxonomyParsing, Parsing: parseErrs}
	}

	idx := index.Build(roots, rootDir)
	tc := typecheck.New(idx)

	verrs := validate.Validate(idx, tc, sources)
	if len(verrs) > 0 {
		return nil, &Error{Taxonomy: TaxonomyValidation, Validation: verrs}
	}

	for _, root := range roots {
		transform.Binary(root)
	}
	transform.Split(idx, tc, ids, roots)
	transform.Inline(idx, tc, ids, roots)
	transform.RefVar(idx, ids, roots)

	return emit.Emit(idx, tc, roots), nil
}

// Taxonomy identifies which of the three error taxonomies populated an
// Error. At most one is ever populated for a given compilation; the
// pipeline returns at the first one it reaches (spec.md §7).
type Taxonomy int

const (
	TaxonomyIO Taxonomy = iota
	TaxonomyParsing
	TaxonomyValidation
)

func (t Taxonomy) String() string {
	switch t {
	case TaxonomyIO:
		return "io"
	case TaxonomyParsing:
		return "parsing"
	default:
		return "validation"
	}
}

// Error is the single error type Compile returns, wrapping whichever
// taxonomy's collected errors stopped the pipeline.
type Error struct {
	Taxonomy   Taxonomy
	IO         source.Errors
	Parsing    parser.Errors
	Validation validate.Errors
}

func (e *Error) Error() string {
	switch e.Taxonomy {
	case TaxonomyIO:
		return e.IO.Error()
	case TaxonomyParsing:
		return e.Parsing.Error()
	default:
		return e.Validation.Error()
	}
}

// sortParsing orders parsing errors by (path, offset), the same ordering
// Render applies to every taxonomy (spec.md §4.8).
func sortParsing(errs parser.Errors) {
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Path != errs[j].Path {
			return errs[i].Path < errs[j].Path
		}
		return errs[i].Offset < errs[j].Offset
	})
}
