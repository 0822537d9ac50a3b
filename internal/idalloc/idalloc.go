// Package idalloc assigns the globally unique, file-disjoint node ids
// spec.md §3/§5 require.
//
// The Rust implementation uses a process-wide counter (a "pragmatic
// shortcut" per spec.md §9 Design Notes). This module follows the Design
// Notes' suggested fix instead: the counter is owned by one compilation
// (Allocator), so concurrent or repeated compilations in the same process
// never share state.
package idalloc

// Allocator hands out monotonically increasing node ids for one
// compilation. Source files are parsed one at a time (spec.md §5: the core
// is single-threaded and synchronous even when loading was concurrent), so
// calling Next() only while parsing file F, never interleaved with another
// file's parse, is what gives F a contiguous id range disjoint from every
// other file -- no a-priori node count is needed.
type Allocator struct {
	next uint32
}

// New returns an Allocator starting at id 1 (0 is reserved as the
// "no parent" sentinel returned by Node.ParentID at the root).
func New() *Allocator {
	return &Allocator{next: 1}
}

// StartFile returns a *FileRange positioned to hand out the next file's
// ids. Call it immediately before parsing that file.
func (a *Allocator) StartFile() *FileRange {
	return &FileRange{alloc: a, first: a.next}
}

// Next hands out a single fresh id, for nodes synthesized after every file
// has been parsed -- the transform passes' hoisted locals and substituted
// references (spec.md §4.6b/c). These ids continue the same global
// sequence, so they stay unique, but belong to no file's contiguous range.
func (a *Allocator) Next() uint32 {
	id := a.next
	a.next++
	return id
}

// FileRange tracks the contiguous id range assigned to one file.
type FileRange struct {
	alloc *Allocator
	first uint32
	last  uint32
}

// Next returns the next id in this file's range.
func (r *FileRange) Next() uint32 {
	id := r.alloc.next
	r.alloc.next++
	r.last = id
	return id
}

// First and Last return the bounds of the ids handed out so far through
// this range. Last is zero until at least one id has been allocated.
func (r *FileRange) First() uint32 { return r.first }
func (r *FileRange) Last() uint32  { return r.last }
