// Package index builds the cross-file Symbol Index (spec.md §2 stage 4,
// §4.3): a structural key -> node map per file, plus each file's ordered
// lookup-path list.
package index

import (
	gopath "path"

	"github.com/gogpu/shad/ast"
)

// PreludePath is the reserved path of the built-in source providing
// primitive types and operator functions (spec.md §6 Glossary: "Prelude").
const PreludePath = "@prelude"

// Criterion constrains which candidate nodes a reference may resolve to
// (spec.md §4.3): the candidate's Kind must match, and unless CanBeAfter,
// the candidate must textually precede the reference when both are in the
// same file. Scope is satisfied by any one of: the candidate is a direct
// child of its file's root; the reference's ancestor chain contains the
// candidate's immediate parent; or, when CommonParentCount is set, both
// ancestor chains agree up to that length.
type Criterion struct {
	Kind              ast.Kind
	CanBeAfter        bool
	CommonParentCount int // 0 means "unset / not required"
}

// Index is the built symbol index for one compilation.
type Index struct {
	roots       map[string]*ast.Node // path -> Root node
	nodes       map[string]map[string][]*ast.Node
	lookupPaths map[string][]string
	rootDir     string
}

// Build indexes every root (path -> parsed Root node) and precomputes each
// file's lookup-path list. rootDir is the compilation root used to resolve
// non-"~" imports.
func Build(roots map[string]*ast.Node, rootDir string) *Index {
	idx := &Index{
		roots:       roots,
		nodes:       map[string]map[string][]*ast.Node{},
		lookupPaths: map[string][]string{},
		rootDir:     rootDir,
	}
	for path, root := range roots {
		root.Walk(func(n *ast.Node) {
			if k := key(n); k != "" {
				idx.register(path, k, n)
			}
		})
	}
	for path, root := range roots {
		idx.lookupPaths[path] = findLookupPaths(path, root, roots, rootDir)
	}
	return idx
}

func (idx *Index) register(path, key string, n *ast.Node) {
	byKey, ok := idx.nodes[path]
	if !ok {
		byKey = map[string][]*ast.Node{}
		idx.nodes[path] = byKey
	}
	byKey[key] = append(byKey[key], n)
}

// LookupPaths returns the ordered list of files searched when resolving a
// reference originating in path (spec.md §4.3).
func (idx *Index) LookupPaths(path string) []string {
	return idx.lookupPaths[path]
}

// Root returns the parsed Root node for path, or nil.
func (idx *Index) Root(path string) *ast.Node {
	return idx.roots[path]
}

// ResolveImport applies the same path-resolution algorithm findLookupPaths
// uses internally, exported so the validator can check an import's target
// actually exists (spec.md §4.5 diagnostic 9).
func (idx *Index) ResolveImport(importingPath string, imp *ast.Node) string {
	return resolveImportPath(importingPath, idx.rootDir, imp)
}

// Key returns the structural key n registers under (buf/var/ref/fn/native
// fn), or "" if n does not declare one (spec.md §4.3).
func (idx *Index) Key(n *ast.Node) string {
	return key(n)
}

// Roots returns every indexed file path, for callers that need to iterate
// deterministically (sorted by the caller).
func (idx *Index) Roots() map[string]*ast.Node {
	return idx.roots
}

// Search finds the node matching key, visible from a reference at path with
// ancestor chain parentIDs, against the given acceptance criteria
// (spec.md §4.3). It returns the first candidate -- searching lookup paths
// in order, and within one path's candidate list in reverse source order so
// later definitions shadow earlier ones -- that satisfies any criterion.
func (idx *Index) Search(key string, criteria []Criterion, path string, parentIDs []uint32) *ast.Node {
	var referrerParentID uint32
	if len(parentIDs) > 0 {
		referrerParentID = parentIDs[len(parentIDs)-1]
	}
	for _, lookupPath := range idx.lookupPaths[path] {
		byKey, ok := idx.nodes[lookupPath]
		if !ok {
			continue
		}
		candidates := byKey[key]
		for i := len(candidates) - 1; i >= 0; i-- {
			cand := candidates[i]
			var candParentID uint32
			if len(cand.ParentIDs) > 0 {
				candParentID = cand.ParentIDs[len(cand.ParentIDs)-1]
			}
			for _, crit := range criteria {
				if cand.Kind != crit.Kind {
					continue
				}
				if !crit.CanBeAfter && !(cand.ID < referrerParentID || path != lookupPath) {
					continue
				}
				if matchesScope(cand, candParentID, parentIDs, crit) {
					return cand
				}
			}
		}
	}
	return nil
}

func matchesScope(cand *ast.Node, candParentID uint32, refParentIDs []uint32, crit Criterion) bool {
	if cand.IsRootChild() {
		return true
	}
	if crit.CommonParentCount > 0 &&
		len(cand.ParentIDs) >= crit.CommonParentCount &&
		len(refParentIDs) >= crit.CommonParentCount &&
		sameSlice(cand.ParentIDs[:crit.CommonParentCount], refParentIDs[:crit.CommonParentCount]) {
		return true
	}
	return containsID(refParentIDs, candParentID)
}

func sameSlice(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsID(ids []uint32, id uint32) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// findLookupPaths builds one file's lookup-path list: itself first, then
// its imports visited depth-first in reverse declaration order (later
// imports override earlier ones), de-duplicated, with the prelude appended
// last if not already present (spec.md §4.3).
func findLookupPaths(path string, root *ast.Node, roots map[string]*ast.Node, rootDir string) []string {
	paths := []string{path}
	seen := map[string]bool{path: true}
	visitImports(path, roots, rootDir, &paths, seen)
	if !seen[PreludePath] {
		paths = append(paths, PreludePath)
	}
	return paths
}

func visitImports(path string, roots map[string]*ast.Node, rootDir string, paths *[]string, seen map[string]bool) {
	root, ok := roots[path]
	if !ok {
		return
	}
	imports := importsOf(root)
	for i := len(imports) - 1; i >= 0; i-- {
		importPath := resolveImportPath(path, rootDir, imports[i])
		if seen[importPath] {
			continue
		}
		seen[importPath] = true
		*paths = append(*paths, importPath)
		visitImports(importPath, roots, rootDir, paths, seen)
	}
}

func importsOf(root *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, item := range root.Items {
		if item.Kind == ast.KindImport {
			out = append(out, item)
		}
	}
	return out
}

// resolveImportPath implements spec.md §4.3's import-path algorithm: a
// leading "~" segment starts resolution from the importing file's own
// directory instead of the compilation root; every additional leading "~"
// pops one more directory.
func resolveImportPath(importingPath, rootDir string, imp *ast.Node) string {
	segs := importSegments(imp)
	tildeCount := 0
	for tildeCount < len(segs) && segs[tildeCount] == "~" {
		tildeCount++
	}
	var base string
	if tildeCount > 0 {
		base = gopath.Dir(importingPath)
		for i := 0; i < tildeCount-1; i++ {
			base = gopath.Dir(base)
		}
	} else {
		base = rootDir
	}
	rest := segs[tildeCount:]
	joined := gopath.Join(append([]string{base}, rest...)...)
	return gopath.Clean(joined) + ".shad"
}

func importSegments(imp *ast.Node) []string {
	var segs []string
	for _, child := range imp.Order {
		segs = append(segs, child.Slice)
	}
	return segs
}
