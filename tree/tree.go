// Package tree implements the Tree Manipulator (spec.md §4.6): locate,
// insert, remove, move, reorder, and edit nodes of a parsed XML document,
// backed by beevik/etree rather than a hand-rolled DOM.
package tree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Position is where a node is inserted relative to a reference node.
type Position string

const (
	Before     Position = "before"
	After      Position = "after"
	FirstChild Position = "first_child"
	LastChild  Position = "last_child"
)

// Document wraps a loaded, mutable XML tree.
type Document struct {
	doc *etree.Document
}

// Load parses data into a mutable tree.
func Load(data []byte) (*Document, error) {
	d := etree.NewDocument()
	if err := d.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}
	return &Document{doc: d}, nil
}

// Root returns the document's root element, or nil for an empty document.
func (d *Document) Root() *etree.Element { return d.doc.Root() }

// Serialize renders the tree as UTF-8, 2-space indented XML, preserving
// comments and processing instructions (etree keeps these as ordinary
// child tokens, so no special-casing is needed beyond indentation
// settings — spec.md §4.5/§6.2).
func (d *Document) Serialize() ([]byte, error) {
	d.doc.Indent(2)
	return d.doc.WriteToBytes()
}

// seg is one parsed "name[index]" path component.
type seg struct {
	name string
	idx  int
}

func parseSegments(path string) []seg {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	segs := make([]seg, 0, len(parts))
	for _, p := range parts {
		name, idx := p, 1
		if i := strings.IndexByte(p, '['); i >= 0 && strings.HasSuffix(p, "]") {
			name = p[:i]
			if n, err := strconv.Atoi(p[i+1 : len(p)-1]); err == nil {
				idx = n
			}
		}
		segs = append(segs, seg{name: name, idx: idx})
	}
	return segs
}

// FindElement resolves a canonical "/a[i]/b[j]/..." path against root
// (spec.md §3 "Canonical path", §4.6 find_element).
func FindElement(root *etree.Element, path string) *etree.Element {
	segs := parseSegments(path)
	if root == nil || len(segs) == 0 {
		return root
	}
	if segs[0].name != root.Tag {
		return nil
	}
	cur := root
	for _, s := range segs[1:] {
		cur = nthChild(cur, s.name, s.idx)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (d *Document) FindElement(path string) *etree.Element {
	return FindElement(d.Root(), path)
}

func nthChild(parent *etree.Element, name string, idx int) *etree.Element {
	count := 0
	for _, child := range parent.ChildElements() {
		if child.Tag == name {
			count++
			if count == idx {
				return child
			}
		}
	}
	return nil
}

func childIndex(parent, child *etree.Element) int {
	for i, t := range parent.Child {
		if t == etree.Token(child) {
			return i
		}
	}
	return -1
}

// Insert places newEl relative to ref according to pos. For Before/After,
// ref is a sibling of newEl's intended position; for FirstChild/LastChild,
// ref is the intended parent (spec.md §4.6 insert).
func Insert(newEl, ref *etree.Element, pos Position) bool {
	if newEl == nil || ref == nil {
		return false
	}
	switch pos {
	case FirstChild:
		ref.InsertChildAt(0, newEl)
		return true
	case LastChild:
		ref.AddChild(newEl)
		return true
	case Before, After:
		parent := ref.Parent()
		if parent == nil {
			return false
		}
		idx := childIndex(parent, ref)
		if idx < 0 {
			return false
		}
		if pos == After {
			idx++
		}
		parent.InsertChildAt(idx, newEl)
		return true
	default:
		return false
	}
}

// Remove unlinks elem from its parent. Returns false, leaving the tree
// unchanged, if elem has no parent (spec.md §4.6 remove).
func Remove(elem *etree.Element) bool {
	if elem == nil {
		return false
	}
	parent := elem.Parent()
	if parent == nil {
		return false
	}
	return parent.RemoveChild(elem) != nil
}

// Move detaches elem and reinserts it at the new position. Detach must
// succeed before insert is attempted (spec.md §4.6 move, §5 ordering
// guarantees); on insert failure elem is re-attached at its old position,
// so a failed move leaves the tree unchanged.
func Move(elem, ref *etree.Element, pos Position) bool {
	if elem == nil || elem.Parent() == nil {
		return false
	}
	oldParent := elem.Parent()
	oldIdx := childIndex(oldParent, elem)
	if !Remove(elem) {
		return false
	}
	if !Insert(elem, ref, pos) {
		oldParent.InsertChildAt(oldIdx, elem)
		return false
	}
	return true
}

// ReorderChildren moves every child whose tag appears in order to the
// front, ordered as order specifies (ties broken by original relative
// order); children whose tag is not in order keep their original
// relative order, placed after the named prefix (spec.md §4.6
// reorder_children).
func ReorderChildren(parent *etree.Element, order []string) bool {
	if parent == nil {
		return false
	}
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}

	var known, unknown []etree.Token
	for _, t := range parent.Child {
		if el, ok := t.(*etree.Element); ok {
			if _, present := rank[el.Tag]; present {
				known = append(known, t)
				continue
			}
		}
		unknown = append(unknown, t)
	}
	sort.SliceStable(known, func(i, j int) bool {
		ei := known[i].(*etree.Element)
		ej := known[j].(*etree.Element)
		return rank[ei.Tag] < rank[ej.Tag]
	})
	parent.Child = append(known, unknown...)
	return true
}

// SetText removes all direct text content and appends a single text node
// s (spec.md §4.6 set_text); etree.Element.SetText already implements
// exactly that replacement semantics.
func SetText(elem *etree.Element, s string) {
	elem.SetText(s)
}

// SetAttribute sets name=value, overwriting any existing attribute of
// the same name (spec.md §4.6 set_attribute).
func SetAttribute(elem *etree.Element, name, value string) {
	elem.CreateAttr(name, value)
}

// RemoveAttribute removes name if present, reporting whether it existed.
func RemoveAttribute(elem *etree.Element, name string) bool {
	return elem.RemoveAttr(name) != nil
}

// Clone duplicates elem. Deep clones every descendant; shallow copies
// only the tag and attributes (spec.md §4.6 clone).
func Clone(elem *etree.Element, deep bool) *etree.Element {
	if deep {
		return elem.Copy()
	}
	shallow := etree.NewElement(elem.Tag)
	shallow.Space = elem.Space
	for _, a := range elem.Attr {
		key := a.Key
		if a.Space != "" {
			key = a.Space + ":" + a.Key
		}
		shallow.CreateAttr(key, a.Value)
	}
	return shallow
}
