package schema

import (
	"github.com/agentflare-ai/go-xmldom"
)

// resolveGlobalElement is Pass B's entry point for one global element
// declaration (spec.md §4.1 step 2). The Ref is reserved before the body
// is built so that a recursive xs:element ref="self" anywhere in the
// content model resolves to the same Ref instead of recursing forever;
// the validator only ever walks Refs instance-driven, so a graph cycle
// here is harmless (spec.md §3 invariants).
func (c *compiler) resolveGlobalElement(name string) (Ref, error) {
	if ref, ok := c.model.globals[name]; ok {
		return ref, nil
	}
	raw, ok := c.elementDecls[name]
	if !ok {
		return NoRef, &StructureError{Message: "unresolved element reference " + name}
	}
	ref := c.model.newArena(SchemaElement{Name: name})
	c.model.globals[name] = ref

	el, err := c.buildElement(raw.node)
	if err != nil {
		return NoRef, err
	}
	el.Name = name
	c.model.set(ref, *el)
	return ref, nil
}

// buildElement materializes one <xs:element> node (global or locally
// declared) into a SchemaElement, resolving its type per spec.md §4.1
// step 2: inline simpleType/complexType children first, then type="qname"
// via the symbol table.
func (c *compiler) buildElement(node xmldom.Element) (*SchemaElement, error) {
	el := &SchemaElement{
		Namespace: c.targetNamespaceOf(node),
		MinOccurs: parseOccurs(node, "minOccurs", 1),
		MaxOccurs: parseOccurs(node, "maxOccurs", 1),
		Default:   string(node.GetAttribute("default")),
		Fixed:     string(node.GetAttribute("fixed")),
	}
	if name := string(node.GetAttribute("name")); name != "" {
		el.Name = name
	}

	inlineComplex, inlineSimple := childTypeDefs(node)
	switch {
	case inlineComplex != nil:
		group, attrs, err := c.parseComplexTypeBody(inlineComplex)
		if err != nil {
			return nil, err
		}
		el.Type = "complexType"
		el.ContentKind = ContentComplex
		el.Content = group
		el.Attributes = attrs
		el.Children = collectChildren(group)

	case inlineSimple != nil:
		base, constraints, err := c.parseSimpleTypeBody(inlineSimple)
		if err != nil {
			return nil, err
		}
		el.Type = base
		el.ContentKind = ContentSimple
		el.SimpleBase = base
		el.Constraints = constraints

	default:
		typeAttr := string(node.GetAttribute("type"))
		if typeAttr == "" {
			el.ContentKind = ContentEmpty
			break
		}
		local := stripPrefix(typeAttr)
		if IsBuiltin(local) {
			el.Type = local
			el.ContentKind = ContentSimple
			el.SimpleBase = local
			el.Constraints = []ElementConstraint{{Kind: Pattern, Value: builtinPattern[local]}}
			break
		}
		if td, err := c.resolveNamedType(local); err == nil {
			applyTypeDef(el, td)
		} else {
			return nil, err
		}
	}

	return el, nil
}

// applyTypeDef copies a resolved named type's shape onto el. Content is
// shared by pointer (see resolveNamedComplexType) so a self-referential
// type still observes the fully resolved group once compilation finishes.
func applyTypeDef(el *SchemaElement, td *TypeDef) {
	if td.IsComplex {
		el.Type = "complexType"
		el.ContentKind = ContentComplex
		el.Content = td.Content
		el.Attributes = td.Attributes
		el.Children = collectChildren(td.Content)
	} else {
		el.Type = td.Name
		el.ContentKind = ContentSimple
		el.SimpleBase = td.Base
		el.Constraints = td.Constraints
	}
}

// resolveNamedType resolves either a named complexType or simpleType.
func (c *compiler) resolveNamedType(local string) (*TypeDef, error) {
	if td, ok := c.model.types[local]; ok {
		return td, nil
	}
	if _, ok := c.complexTypes[local]; ok {
		return c.resolveNamedComplexType(local)
	}
	if _, ok := c.simpleTypes[local]; ok {
		return c.resolveNamedSimpleType(local)
	}
	return nil, &StructureError{Message: "unresolved type reference " + local}
}

// resolveNamedComplexType resolves a named global complexType, reserving
// the TypeDef (with its Content pointer already allocated) before
// recursing into the content model so a self-referential type (a
// recursive tree element is the common case) observes the same GroupNode
// object once it is filled in, rather than a stale nil snapshot.
func (c *compiler) resolveNamedComplexType(name string) (*TypeDef, error) {
	if td, ok := c.model.types[name]; ok {
		return td, nil
	}
	raw := c.complexTypes[name]
	td := &TypeDef{Name: name, IsComplex: true, Content: &GroupNode{}}
	c.model.types[name] = td

	group, attrs, err := c.parseComplexTypeBody(raw.node)
	if err != nil {
		return nil, err
	}
	td.Attributes = attrs
	if group != nil {
		*td.Content = *group
	}
	return td, nil
}

func (c *compiler) resolveNamedSimpleType(name string) (*TypeDef, error) {
	if td, ok := c.model.types[name]; ok {
		return td, nil
	}
	raw := c.simpleTypes[name]
	td := &TypeDef{Name: name}
	c.model.types[name] = td

	base, constraints, err := c.parseSimpleTypeBody(raw.node)
	if err != nil {
		return nil, err
	}
	td.Base = base
	td.Constraints = constraints
	return td, nil
}

// parseComplexTypeBody extracts the content group and attribute list from
// an xs:complexType element (spec.md §4.1 step 3), supporting the common
// sequence/choice/all case plus a simplified complexContent/extension:
// the base type's content and attributes are inherited and the
// extension's own additions are appended, matching how most schemas in
// the wild use extension purely to add trailing fields.
func (c *compiler) parseComplexTypeBody(ct xmldom.Element) (*GroupNode, []AttributeDecl, error) {
	var group *GroupNode
	var attrs []AttributeDecl

	children := ct.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		switch string(child.LocalName()) {
		case "sequence", "choice", "all":
			g, err := c.parseGroupNode(child)
			if err != nil {
				return nil, nil, err
			}
			group = g
		case "attribute":
			a, err := c.parseAttributeOccurrence(child)
			if err != nil {
				return nil, nil, err
			}
			if a != nil {
				attrs = append(attrs, *a)
			}
		case "attributeGroup":
			a, err := c.parseAttributeGroupRef(child)
			if err != nil {
				return nil, nil, err
			}
			attrs = append(attrs, a...)
		case "complexContent", "simpleContent":
			g, extAttrs, err := c.parseContentExtension(child)
			if err != nil {
				return nil, nil, err
			}
			if g != nil {
				group = g
			}
			attrs = append(attrs, extAttrs...)
		}
	}
	return group, attrs, nil
}

// parseContentExtension handles xs:complexContent/xs:simpleContent wrapping
// an xs:extension (restriction is treated the same as extension here: a
// deliberate simplification, since this module never narrows a base
// content model, only ever consumes what's already been compiled).
func (c *compiler) parseContentExtension(wrapper xmldom.Element) (*GroupNode, []AttributeDecl, error) {
	children := wrapper.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		name := string(child.LocalName())
		if name != "extension" && name != "restriction" {
			continue
		}
		base := string(child.GetAttribute("base"))
		var group *GroupNode
		var attrs []AttributeDecl
		if base != "" && !IsBuiltin(stripPrefix(base)) {
			if td, err := c.resolveNamedType(stripPrefix(base)); err == nil && td.IsComplex {
				group = td.Content
				attrs = append(attrs, td.Attributes...)
			}
		}
		own, ownAttrs, err := c.parseComplexTypeBody(child)
		if err != nil {
			return nil, nil, err
		}
		if own != nil {
			if group != nil && len(group.Members) > 0 {
				group = &GroupNode{Kind: Sequence, MinOccurs: 1, MaxOccurs: 1, Members: append(
					append([]GroupMember{}, groupAsMember(group)),
					groupAsMember(own),
				)}
			} else {
				group = own
			}
		}
		attrs = append(attrs, ownAttrs...)
		return group, attrs, nil
	}
	return nil, nil, nil
}

func groupAsMember(g *GroupNode) GroupMember {
	return GroupMember{IsElement: false, Group: g}
}

// parseGroupNode compiles an xs:sequence/xs:choice/xs:all element into a
// GroupNode (spec.md §4.1 step 3 / §4.2.1).
func (c *compiler) parseGroupNode(g xmldom.Element) (*GroupNode, error) {
	kind := GroupKind(string(g.LocalName()))
	node := &GroupNode{
		Kind:      kind,
		MinOccurs: parseOccurs(g, "minOccurs", 1),
		MaxOccurs: parseOccurs(g, "maxOccurs", 1),
	}

	children := g.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		switch string(child.LocalName()) {
		case "element":
			member, err := c.parseElementParticle(child)
			if err != nil {
				return nil, err
			}
			node.Members = append(node.Members, member)
		case "sequence", "choice", "all":
			nested, err := c.parseGroupNode(child)
			if err != nil {
				return nil, err
			}
			node.Members = append(node.Members, GroupMember{Group: nested})
		case "group":
			nested, err := c.parseGroupRef(child)
			if err != nil {
				return nil, err
			}
			if nested != nil {
				node.Members = append(node.Members, GroupMember{Group: nested})
			}
		}
	}
	return node, nil
}

// parseElementParticle handles one <xs:element> appearing as a content
// model particle: either ref="qname" (spec.md §4.1 step 2's override
// rule) or a local name/type declaration.
func (c *compiler) parseElementParticle(node xmldom.Element) (GroupMember, error) {
	min := parseOccurs(node, "minOccurs", 1)
	max := parseOccurs(node, "maxOccurs", 1)

	if ref := string(node.GetAttribute("ref")); ref != "" {
		local := stripPrefix(ref)
		c.referenced[local] = true
		target, err := c.resolveGlobalElement(local)
		if err != nil {
			return GroupMember{}, err
		}
		return GroupMember{IsElement: true, Element: target, MinOccurs: min, MaxOccurs: max}, nil
	}

	el, err := c.buildElement(node)
	if err != nil {
		return GroupMember{}, err
	}
	el.MinOccurs, el.MaxOccurs = min, max
	ref := c.model.newArena(*el)
	return GroupMember{IsElement: true, Element: ref, MinOccurs: min, MaxOccurs: max}, nil
}

// parseGroupRef inlines a named xs:group's content at this position.
func (c *compiler) parseGroupRef(node xmldom.Element) (*GroupNode, error) {
	ref := string(node.GetAttribute("ref"))
	if ref == "" {
		return nil, nil
	}
	local := stripPrefix(ref)
	raw, ok := c.groups[local]
	if !ok {
		return nil, &StructureError{Message: "unresolved group reference " + local}
	}
	children := raw.node.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		if n := string(child.LocalName()); n == "sequence" || n == "choice" || n == "all" {
			return c.parseGroupNode(child)
		}
	}
	return nil, nil
}

// parseAttributeOccurrence handles one <xs:attribute> particle: ref="qname"
// or a local declaration.
func (c *compiler) parseAttributeOccurrence(node xmldom.Element) (*AttributeDecl, error) {
	if ref := string(node.GetAttribute("ref")); ref != "" {
		local := stripPrefix(ref)
		raw, ok := c.attributes[local]
		if !ok {
			return nil, &StructureError{Message: "unresolved attribute reference " + local}
		}
		return c.parseAttributeDecl(raw.node)
	}
	return c.parseAttributeDecl(node)
}

func (c *compiler) parseAttributeDecl(node xmldom.Element) (*AttributeDecl, error) {
	a := &AttributeDecl{
		Name:    string(node.GetAttribute("name")),
		Type:    stripPrefix(string(node.GetAttribute("type"))),
		Use:     AttributeUse(string(node.GetAttribute("use"))),
		Default: string(node.GetAttribute("default")),
		Fixed:   string(node.GetAttribute("fixed")),
	}
	if a.Use == "" {
		a.Use = UseOptional
	}
	if a.Type == "" {
		if inlineSimple := firstChild(node, "simpleType"); inlineSimple != nil {
			base, _, err := c.parseSimpleTypeBody(inlineSimple)
			if err != nil {
				return nil, err
			}
			a.Type = base
		} else {
			a.Type = "string"
		}
	}
	return a, nil
}

func (c *compiler) parseAttributeGroupRef(node xmldom.Element) ([]AttributeDecl, error) {
	ref := string(node.GetAttribute("ref"))
	if ref == "" {
		return nil, nil
	}
	local := stripPrefix(ref)
	raw, ok := c.attrGroups[local]
	if !ok {
		return nil, &StructureError{Message: "unresolved attributeGroup reference " + local}
	}
	var attrs []AttributeDecl
	children := raw.node.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		switch string(child.LocalName()) {
		case "attribute":
			a, err := c.parseAttributeOccurrence(child)
			if err != nil {
				return nil, err
			}
			if a != nil {
				attrs = append(attrs, *a)
			}
		case "attributeGroup":
			nested, err := c.parseAttributeGroupRef(child)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, nested...)
		}
	}
	return attrs, nil
}

// parseSimpleTypeBody compiles an xs:simpleType's restriction, list, or
// union into (base type name, facets), per spec.md §4.1 step 4.
func (c *compiler) parseSimpleTypeBody(st xmldom.Element) (string, []ElementConstraint, error) {
	if restr := firstChild(st, "restriction"); restr != nil {
		return c.parseRestriction(restr)
	}
	if list := firstChild(st, "list"); list != nil {
		// Modeled as a string with Pattern(".*"); the list's item type is
		// not recorded (spec.md §4.1 step 4's "deliberate simplification").
		return "string", []ElementConstraint{{Kind: Pattern, Value: ".*"}}, nil
	}
	if union := firstChild(st, "union"); union != nil {
		memberTypes := string(union.GetAttribute("memberTypes"))
		values := splitFields(memberTypes)
		return "string", []ElementConstraint{{Kind: Enumeration, Values: values}}, nil
	}
	return "string", nil, nil
}

func (c *compiler) parseRestriction(restr xmldom.Element) (string, []ElementConstraint, error) {
	base := stripPrefix(string(restr.GetAttribute("base")))
	var constraints []ElementConstraint
	var enumValues []string

	if base != "" && !IsBuiltin(base) {
		if td, err := c.resolveNamedType(base); err == nil && !td.IsComplex {
			constraints = append(constraints, td.Constraints...)
			if td.Base != "" {
				base = td.Base
			}
		}
	}

	children := restr.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		value := string(child.GetAttribute("value"))
		switch string(child.LocalName()) {
		case "enumeration":
			enumValues = append(enumValues, value)
		case "pattern":
			constraints = append(constraints, ElementConstraint{Kind: Pattern, Value: value})
		case "minLength":
			constraints = append(constraints, ElementConstraint{Kind: MinLength, Value: value})
		case "maxLength":
			constraints = append(constraints, ElementConstraint{Kind: MaxLength, Value: value})
		case "minInclusive":
			constraints = append(constraints, ElementConstraint{Kind: MinInclusive, Value: value})
		case "maxInclusive":
			constraints = append(constraints, ElementConstraint{Kind: MaxInclusive, Value: value})
		case "minExclusive":
			constraints = append(constraints, ElementConstraint{Kind: MinExclusive, Value: value})
		case "maxExclusive":
			constraints = append(constraints, ElementConstraint{Kind: MaxExclusive, Value: value})
		case "totalDigits":
			constraints = append(constraints, ElementConstraint{Kind: TotalDigits, Value: value})
		case "fractionDigits":
			constraints = append(constraints, ElementConstraint{Kind: FractionDigits, Value: value})
		case "whiteSpace":
			constraints = append(constraints, ElementConstraint{Kind: WhiteSpace, Value: value})
		}
	}
	if len(enumValues) > 0 {
		constraints = append(constraints, ElementConstraint{Kind: Enumeration, Values: enumValues})
	}
	return base, constraints, nil
}

// -- small xmldom walking helpers --

func (c *compiler) targetNamespaceOf(xmldom.Element) string { return "" }

func childTypeDefs(node xmldom.Element) (complex, simple xmldom.Element) {
	children := node.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		switch string(child.LocalName()) {
		case "complexType":
			complex = child
		case "simpleType":
			simple = child
		}
	}
	return
}

func firstChild(node xmldom.Element, localName string) xmldom.Element {
	children := node.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		if string(child.LocalName()) == localName {
			return child
		}
	}
	return nil
}

func collectChildren(g *GroupNode) []Ref {
	if g == nil {
		return nil
	}
	var out []Ref
	var walk func(*GroupNode)
	walk = func(n *GroupNode) {
		if n == nil {
			return
		}
		for _, m := range n.Members {
			if m.IsElement {
				out = append(out, m.Element)
			} else if m.Group != nil {
				walk(m.Group)
			}
		}
	}
	walk(g)
	return out
}

func splitFields(s string) []string {
	var out []string
	field := ""
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if field != "" {
				out = append(out, field)
				field = ""
			}
			continue
		}
		field += string(r)
	}
	if field != "" {
		out = append(out, field)
	}
	return out
}
