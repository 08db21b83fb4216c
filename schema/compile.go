package schema

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// XSDNamespace is the XML Schema namespace, exactly as the teacher's
// XSDNamespace constant.
const XSDNamespace = "http://www.w3.org/2001/XMLSchema"

// CompileOptions configures Compile. Constructor-argument configuration
// replaces the source tool's DI container (spec.md §9).
type CompileOptions struct {
	// BaseDir resolves relative xs:include schemaLocation paths. Defaults
	// to the directory of the compiled file.
	BaseDir string
	Logger  *slog.Logger
}

func (o CompileOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// rawGlobal is a not-yet-materialized global declaration captured during
// Pass A, keyed by local name.
type rawGlobal struct {
	node xmldom.Element
}

// compiler holds Pass A/Pass B state for one Compile call. It is
// discarded once Compile returns; only the immutable *Model escapes.
type compiler struct {
	opts CompileOptions
	log  *slog.Logger

	elementDecls map[string]rawGlobal
	// elementOrder preserves declaration order for elementDecls: map
	// iteration is randomized per process, but selectRoot must pick the
	// same root on every compile of the same schema (spec.md §4.1 step 6).
	elementOrder []string
	complexTypes map[string]rawGlobal
	simpleTypes  map[string]rawGlobal
	attributes   map[string]rawGlobal
	groups       map[string]rawGlobal
	attrGroups   map[string]rawGlobal

	referenced map[string]bool // local names reached via ref=

	model *Model
	// resolving and resolvedTypes are allocated but not consulted:
	// recursion on schema reference cycles is broken by reserving the
	// global element's Ref (resolveGlobalElement) and the named type's
	// TypeDef (resolveNamedComplexType/resolveNamedSimpleType) before
	// their bodies are built.
	resolving map[string]bool
	resolvedTypes map[string]*TypeDef
}

// Compile parses path as an XSD document and builds the compiled schema
// graph (spec.md §4.1). It performs Pass A (declare) then Pass B
// (resolve), exactly as the algorithm specifies.
func Compile(path string, opts CompileOptions) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	return CompileBytes(data, opts)
}

// CompileBytes is Compile over an in-memory XSD document, used by tests
// and by callers that already hold the schema bytes.
func CompileBytes(data []byte, opts CompileOptions) (*Model, error) {
	doc, err := xmldom.NewDecoderFromBytes(data).Decode()
	if err != nil {
		return nil, fmt.Errorf("schema: %w", &ParseError{Err: err})
	}
	return compileDocument(doc, opts)
}

// ParseError wraps a malformed-XSD failure (spec.md §4.1 "Errors").
type ParseError struct{ Err error }

func (e *ParseError) Error() string { return fmt.Sprintf("malformed XSD: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// StructureError reports a schema whose root is not xs:schema, or an
// unresolved reference (spec.md §4.1 "Errors").
type StructureError struct{ Message string }

func (e *StructureError) Error() string { return "schema structure: " + e.Message }

func compileDocument(doc xmldom.Document, opts CompileOptions) (*Model, error) {
	root := doc.DocumentElement()
	if root == nil {
		return nil, &StructureError{"document has no root element"}
	}
	if string(root.NamespaceURI()) != XSDNamespace || string(root.LocalName()) != "schema" {
		return nil, &StructureError{"root element is not xs:schema"}
	}

	c := &compiler{
		opts:          opts,
		log:           opts.logger(),
		elementDecls:  map[string]rawGlobal{},
		complexTypes:  map[string]rawGlobal{},
		simpleTypes:   map[string]rawGlobal{},
		attributes:    map[string]rawGlobal{},
		groups:        map[string]rawGlobal{},
		attrGroups:    map[string]rawGlobal{},
		referenced:    map[string]bool{},
		resolving:     map[string]bool{},
		resolvedTypes: map[string]*TypeDef{},
		model: &Model{
			globals: map[string]Ref{},
			types:   map[string]*TypeDef{},
			Root:    NoRef,
		},
	}

	c.declare(root)
	c.processIncludes(root)

	for _, name := range c.elementOrder {
		if _, err := c.resolveGlobalElement(name); err != nil {
			return nil, err
		}
	}

	c.model.Root = c.selectRoot()
	c.checkConsistency()

	return c.model, nil
}

// declare is Pass A: register every named global declaration by walking
// the immediate children of xs:schema (spec.md §4.1 step 2).
func (c *compiler) declare(root xmldom.Element) {
	children := root.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		name := string(child.GetAttribute("name"))
		switch string(child.LocalName()) {
		case "element":
			if name != "" {
				if _, exists := c.elementDecls[name]; !exists {
					c.elementOrder = append(c.elementOrder, name)
				}
				c.elementDecls[name] = rawGlobal{child}
			}
		case "complexType":
			if name != "" {
				c.complexTypes[name] = rawGlobal{child}
			}
		case "simpleType":
			if name != "" {
				c.simpleTypes[name] = rawGlobal{child}
			}
		case "attribute":
			if name != "" {
				c.attributes[name] = rawGlobal{child}
			}
		case "group":
			if name != "" {
				c.groups[name] = rawGlobal{child}
			}
		case "attributeGroup":
			if name != "" {
				c.attrGroups[name] = rawGlobal{child}
			}
		}
	}
}

// processIncludes resolves local xs:include schemaLocation files and
// merges their declarations into this compiler's symbol tables.
// Cross-namespace xs:import and any network resolution remain out of
// scope (spec.md §1 Non-goals).
func (c *compiler) processIncludes(root xmldom.Element) {
	children := root.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		if string(child.LocalName()) != "include" {
			continue
		}
		loc := string(child.GetAttribute("schemaLocation"))
		if loc == "" {
			continue
		}
		path := loc
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.opts.BaseDir, loc)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			c.log.Warn("schema include not found", "location", loc, "error", err)
			continue
		}
		incDoc, err := xmldom.NewDecoderFromBytes(data).Decode()
		if err != nil {
			c.log.Warn("included schema malformed", "location", loc, "error", err)
			continue
		}
		incRoot := incDoc.DocumentElement()
		if incRoot == nil {
			continue
		}
		c.declare(incRoot)
	}
}

// selectRoot implements spec.md §4.1 step 6: prefer the first global
// element not reached by ref= from any other element (a self-reference
// does not count); else synthesize a virtual root.
func (c *compiler) selectRoot() Ref {
	for _, name := range c.elementOrder {
		ref, ok := c.model.Lookup(name)
		if !ok {
			continue
		}
		referencedByOther := false
		if c.referenced[name] {
			for i := range c.model.elements {
				for _, child := range c.model.elements[i].Children {
					if child == ref && Ref(i) != ref {
						referencedByOther = true
					}
				}
			}
		}
		if !referencedByOther {
			return ref
		}
	}
	// Synthesize schema_root whose children are every global element, in
	// declaration order.
	var members []GroupMember
	for _, name := range c.elementOrder {
		if ref, ok := c.model.Lookup(name); ok {
			members = append(members, GroupMember{IsElement: true, Element: ref})
		}
	}
	virtual := SchemaElement{
		Name:        "schema_root",
		Type:        "complexType",
		MinOccurs:   1,
		MaxOccurs:   1,
		ContentKind: ContentComplex,
		Content: &GroupNode{
			Kind: Sequence, MinOccurs: 1, MaxOccurs: 1, Members: members,
		},
	}
	for _, m := range members {
		virtual.Children = append(virtual.Children, m.Element)
	}
	return c.model.newArena(virtual)
}

// checkConsistency verifies the facet invariants of spec.md §3 and
// records violations as warnings without failing compilation (spec.md
// §4.1 step 7).
func (c *compiler) checkConsistency() {
	for name, t := range c.model.types {
		if t.IsComplex {
			continue
		}
		var minLen, maxLen *int
		var minInc, maxInc, minExc, maxExc string
		hasEnum := false
		for _, con := range t.Constraints {
			switch con.Kind {
			case MinLength:
				v := atoiSafe(con.Value)
				minLen = &v
			case MaxLength:
				v := atoiSafe(con.Value)
				maxLen = &v
			case MinInclusive:
				minInc = con.Value
			case MaxInclusive:
				maxInc = con.Value
			case MinExclusive:
				minExc = con.Value
			case MaxExclusive:
				maxExc = con.Value
			case Enumeration:
				hasEnum = len(con.Values) > 0
				if !hasEnum {
					c.warn(name, "enumeration facet must be non-empty")
				}
			}
		}
		if minLen != nil && maxLen != nil && *minLen > *maxLen {
			c.warn(name, fmt.Sprintf("minLength (%d) exceeds maxLength (%d)", *minLen, *maxLen))
		}
		if minInc != "" && maxInc != "" {
			if cmp, err := compareValues(minInc, maxInc, t.Base); err == nil && cmp > 0 {
				c.warn(name, fmt.Sprintf("minInclusive (%s) exceeds maxInclusive (%s)", minInc, maxInc))
			}
		}
		if minExc != "" && maxExc != "" {
			if cmp, err := compareValues(minExc, maxExc, t.Base); err == nil && cmp >= 0 {
				c.warn(name, fmt.Sprintf("minExclusive (%s) must be less than maxExclusive (%s)", minExc, maxExc))
			}
		}
		if minInc != "" && maxExc != "" {
			if cmp, err := compareValues(minInc, maxExc, t.Base); err == nil && cmp >= 0 {
				c.warn(name, fmt.Sprintf("minInclusive (%s) must be less than maxExclusive (%s)", minInc, maxExc))
			}
		}
		if minExc != "" && maxInc != "" {
			if cmp, err := compareValues(minExc, maxInc, t.Base); err == nil && cmp >= 0 {
				c.warn(name, fmt.Sprintf("minExclusive (%s) must be less than maxInclusive (%s)", minExc, maxInc))
			}
		}
	}
}

func (c *compiler) warn(typeName, msg string) {
	c.model.Diagnostics = append(c.model.Diagnostics, Diagnostic{
		Severity: DiagWarning, Message: msg, TypeName: typeName,
	})
	c.log.Warn("schema facet inconsistency", "type", typeName, "message", msg)
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func parseOccurs(elem xmldom.Element, attr string, def uint32) uint32 {
	raw := strings.TrimSpace(string(elem.GetAttribute(attr)))
	if raw == "" {
		return def
	}
	if attr == "maxOccurs" && raw == "unbounded" {
		return Unbounded
	}
	n := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	return uint32(n)
}
