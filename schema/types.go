// Package schema compiles an XSD document into an in-memory constraint
// graph suitable for both streaming validation and correction planning.
package schema

import "fmt"

// QName is a qualified name: a local name plus an optional namespace URI.
type QName struct {
	Namespace string
	Local     string
}

// String renders "namespace:local" when a namespace is present, else just
// the local name.
func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return fmt.Sprintf("%s:%s", q.Namespace, q.Local)
}

// Unbounded is the sentinel MaxOccurs value for maxOccurs="unbounded".
const Unbounded uint32 = ^uint32(0)

// Ref is an arena index into Model.elements. It never owns the element it
// points to; the arena does. Storing refs instead of pointers keeps the
// schema graph free of owned cycles even though xs:element/xs:group
// references can form them (spec.md §9, §3 invariants).
type Ref int32

// NoRef is the zero-value sentinel meaning "no element".
const NoRef Ref = -1

// ContentKind classifies an element's content model.
type ContentKind int

const (
	ContentEmpty ContentKind = iota
	ContentSimple
	ContentComplex
)

// AttributeUse mirrors XSD's use="required|optional|prohibited".
type AttributeUse string

const (
	UseRequired   AttributeUse = "required"
	UseOptional   AttributeUse = "optional"
	UseProhibited AttributeUse = "prohibited"
)

// AttributeDecl is a compiled xs:attribute declaration.
type AttributeDecl struct {
	Name    string
	Type    string
	Use     AttributeUse
	Default string
	Fixed   string
}

// ConstraintKind enumerates the facet kinds of spec.md §3.
type ConstraintKind string

const (
	Pattern        ConstraintKind = "Pattern"
	Enumeration    ConstraintKind = "Enumeration"
	MinLength      ConstraintKind = "MinLength"
	MaxLength      ConstraintKind = "MaxLength"
	MinInclusive   ConstraintKind = "MinInclusive"
	MaxInclusive   ConstraintKind = "MaxInclusive"
	MinExclusive   ConstraintKind = "MinExclusive"
	MaxExclusive   ConstraintKind = "MaxExclusive"
	TotalDigits    ConstraintKind = "TotalDigits"
	FractionDigits ConstraintKind = "FractionDigits"
	WhiteSpace     ConstraintKind = "WhiteSpace"
)

// ElementConstraint is a single facet on a simple type. Enumeration stores
// its member set in Values; every other kind stores its single value in
// Value.
type ElementConstraint struct {
	Kind   ConstraintKind
	Value  string
	Values []string
}

// GroupKind is the content-model connective of a GroupNode.
type GroupKind string

const (
	Sequence GroupKind = "sequence"
	Choice   GroupKind = "choice"
	All      GroupKind = "all"
)

// GroupMember is either a resolved child element (by Ref) or a nested
// GroupNode. Exactly one of Element/Group is meaningful, selected by
// IsElement. MinOccurs/MaxOccurs carry the occurrence-level override from
// an xs:element ref="..." particle (spec.md §4.1 step 2: "minOccurs/
// maxOccurs on the reference override those of the referent for this
// occurrence"); the referenced SchemaElement itself is never mutated or
// cloned, so two different occurrences of the same global element can
// carry two different effective cardinalities without aliasing.
type GroupMember struct {
	IsElement bool
	Element   Ref
	MinOccurs uint32
	MaxOccurs uint32
	Group     *GroupNode
}

// GroupNode is a content-model node: sequence/choice/all over an ordered
// list of members, itself cardinality-bounded (spec.md §3).
type GroupNode struct {
	Kind      GroupKind
	MinOccurs uint32
	MaxOccurs uint32
	Members   []GroupMember
}

// SchemaElement is a node in the compiled schema graph (spec.md §3).
type SchemaElement struct {
	Name      string
	Namespace string

	// Type is a built-in type name, a named user simple/complex type, or
	// the sentinel "complexType" for an anonymous inline complex type.
	Type string

	MinOccurs uint32
	MaxOccurs uint32

	Default string
	Fixed   string

	Constraints []ElementConstraint
	Attributes  []AttributeDecl

	ContentKind ContentKind
	// SimpleBase is the base built-in/named type when ContentKind ==
	// ContentSimple.
	SimpleBase string
	// Content is the compiled group node when ContentKind == ContentComplex.
	Content *GroupNode

	// Children lists every element this node's content model can expand
	// to, for O(1) membership checks during validation/correction. It is
	// a flattened view over Content; for ContentEmpty/ContentSimple it is
	// empty.
	Children []Ref
}

// Required reports whether the element must occur at least once.
func (e *SchemaElement) Required() bool { return e.MinOccurs > 0 }

// TypeDef is a named global simple or complex type.
type TypeDef struct {
	Name        string
	IsComplex   bool
	Base        string // simple-type restriction base, or complex extension base
	Constraints []ElementConstraint
	Attributes  []AttributeDecl
	ContentKind ContentKind
	Content     *GroupNode
}

// DiagnosticSeverity classifies a compiler diagnostic.
type DiagnosticSeverity string

const (
	DiagError   DiagnosticSeverity = "error"
	DiagWarning DiagnosticSeverity = "warning"
)

// Diagnostic is a non-fatal compiler observation (spec.md §4.1 step 7):
// facet inconsistencies are reported here rather than failing compilation.
type Diagnostic struct {
	Severity DiagnosticSeverity
	Message  string
	TypeName string
}

// Model is the compiled schema graph: an arena of elements plus indices
// for named globals. It is built once by Compile and is immutable
// thereafter, so a *Model may be shared read-only across goroutines
// (spec.md §5).
type Model struct {
	elements []SchemaElement
	globals  map[string]Ref // global element decls, keyed by local name
	types    map[string]*TypeDef

	Root        Ref
	Diagnostics []Diagnostic
}

// Element returns the SchemaElement for ref.
func (m *Model) Element(ref Ref) *SchemaElement {
	if ref < 0 || int(ref) >= len(m.elements) {
		return nil
	}
	return &m.elements[ref]
}

// Lookup resolves a global element declaration by local name. Namespace
// handling in this module follows the teacher's local-name-only lookup
// (see SPEC_FULL.md Open Question 1): namespaces are never part of the
// lookup key, and the compiler does not record them either
// (SchemaElement.Namespace is always empty).
func (m *Model) Lookup(localName string) (Ref, bool) {
	ref, ok := m.globals[localName]
	return ref, ok
}

// Type resolves a named global simple/complex type by local name.
func (m *Model) Type(localName string) (*TypeDef, bool) {
	t, ok := m.types[localName]
	return t, ok
}

// newArena creates an element in the arena and returns its Ref.
func (m *Model) newArena(el SchemaElement) Ref {
	m.elements = append(m.elements, el)
	return Ref(len(m.elements) - 1)
}

// set overwrites an already-reserved arena slot. Used to fill in a global
// element's body after its Ref has been handed out to break reference
// cycles (see compiler.resolveGlobalElement).
func (m *Model) set(ref Ref, el SchemaElement) {
	m.elements[ref] = el
}
