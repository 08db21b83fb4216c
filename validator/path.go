package validator

import (
	"fmt"
	"strings"
)

// pathFrame tracks one open element's canonical path and the occurrence
// counters needed to number its children (spec.md §3: "/name[n]" notation,
// "[1]" elided when unique").
type pathFrame struct {
	path         string
	childCounts  map[string]int
}

// pathStack builds canonical paths incrementally as start/end events
// arrive, so every emitted ValidationError carries the path in effect at
// the time of the event rather than a path resolved after the fact.
type pathStack struct {
	frames []pathFrame
}

func newPathStack() *pathStack {
	return &pathStack{frames: []pathFrame{{path: "", childCounts: map[string]int{}}}}
}

// push computes the child's canonical path using the running occurrence
// count at its parent and returns it, updating parent state. Because the
// validator is single-pass, "[1]" is elided using the count observed so
// far rather than the document-final count; a later sibling with the same
// name simply starts a new, distinctly indexed path.
func (s *pathStack) push(name string) string {
	parent := &s.frames[len(s.frames)-1]
	parent.childCounts[name]++
	idx := parent.childCounts[name]

	seg := name
	if idx > 1 {
		seg = fmt.Sprintf("%s[%d]", name, idx)
	}
	path := parent.path + "/" + seg
	s.frames = append(s.frames, pathFrame{path: path, childCounts: map[string]int{}})
	return path
}

func (s *pathStack) pop() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *pathStack) current() string {
	return s.frames[len(s.frames)-1].path
}

func (s *pathStack) rootPath() string {
	if len(s.frames) == 1 {
		return "/"
	}
	return s.frames[1].path
}

// canonicalize rewrites a path's elided-first-occurrence segments once the
// final per-parent counts are known, for a pass that needs a
// document-final path rather than the at-emission-time path. Nothing in
// this module calls it: the validator emits at-emission-time paths, and
// the correction planner resolves those paths as emitted.
func canonicalize(parent string, name string, index, total int) string {
	if total <= 1 {
		return strings.TrimRight(parent, "/") + "/" + name
	}
	return fmt.Sprintf("%s/%s[%d]", strings.TrimRight(parent, "/"), name, index)
}
