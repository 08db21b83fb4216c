// Package validator implements the single-pass, location-tracking
// streaming validator: it walks an XML document's event stream against a
// compiled schema.Model and produces a classified, located error list.
package validator

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/agentflare-ai/xmlschemafix/errmodel"
	"github.com/agentflare-ai/xmlschemafix/schema"
)

// elementContext is one open element on the validator's stack (spec.md
// §4.2 "State").
type elementContext struct {
	name      string
	path      string
	line, col int
	ref       schema.Ref // NoRef when the element is unknown to the schema
	text      strings.Builder
	children  []string
}

type docValidator struct {
	model    *schema.Model
	loc      *locator
	paths    *pathStack
	stack    []*elementContext
	errs     []errmodel.ValidationError
	warns    []errmodel.ValidationError
	slotCache map[schema.Ref][]slot
}

// Validate runs the streaming validator over data using model.Root as the
// schema's designated root element (spec.md §4.2).
func Validate(data []byte, model *schema.Model) errmodel.Result {
	start := time.Now()
	v := &docValidator{
		model:     model,
		loc:       newLocator(data),
		paths:     newPathStack(),
		slotCache: map[schema.Ref][]slot{},
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind:       errmodel.MalformedXml,
				Severity:   errmodel.SeverityError,
				Line:       -1,
				Column:     -1,
				Path:       v.paths.current(),
				SchemaRule: err.Error(),
			})
			break
		}

		offset := int(dec.InputOffset())
		switch t := tok.(type) {
		case xml.StartElement:
			v.startElement(t, offset)
		case xml.CharData:
			if len(v.stack) > 0 {
				v.stack[len(v.stack)-1].text.Write(t)
			}
		case xml.EndElement:
			v.endElement(offset)
		}
	}

	// document-end: when no element was seen at all (an empty document
	// body), report the schema root as missing at path "/" (spec.md §4.2
	// "document-end"). A truncated document surfaces as MalformedXml above.
	if len(v.stack) == 0 && len(v.errs) == 0 && len(v.warns) == 0 && len(v.paths.frames[0].childCounts) == 0 {
		v.checkRootPresence()
	}

	return errmodel.Result{
		Valid:    len(v.errs) == 0,
		Errors:   v.errs,
		Warnings: v.warns,
		TimeMS:   time.Since(start).Milliseconds(),
	}
}

func (v *docValidator) checkRootPresence() {
	root := v.model.Element(v.model.Root)
	if root == nil {
		return
	}
	v.errs = append(v.errs, errmodel.ValidationError{
		Kind:        errmodel.MissingRequiredElement,
		Severity:    errmodel.SeverityError,
		Line:        -1,
		Column:      -1,
		Path:        "/",
		ElementName: root.Name,
		SchemaRule:  fmt.Sprintf("document requires root element %q", root.Name),
	})
}

func (v *docValidator) startElement(t xml.StartElement, offset int) {
	line, col := v.loc.position(offset)
	name := t.Name.Local
	path := v.paths.push(name)

	var ref schema.Ref = schema.NoRef
	if len(v.stack) == 0 {
		ref = v.model.Root
		root := v.model.Element(ref)
		if root == nil || root.Name != name {
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind: errmodel.UnexpectedElement, Severity: errmodel.SeverityError,
				Line: line, Column: col, Path: path, ElementName: name,
				SchemaRule: "document root does not match schema root",
			})
			ref = schema.NoRef
		}
	} else {
		parent := v.stack[len(v.stack)-1]
		parent.children = append(parent.children, name)
		if parent.ref != schema.NoRef {
			if childRef, ok := v.childByName(parent.ref, name); ok {
				ref = childRef
				v.checkRunningMaxOccurs(parent, name, line, col, path)
			} else {
				v.errs = append(v.errs, errmodel.ValidationError{
					Kind: errmodel.UnexpectedElement, Severity: errmodel.SeverityError,
					Line: line, Column: col, Path: path, ElementName: name,
					SchemaRule: fmt.Sprintf("%q is not a valid child of %q", name, parent.name),
				})
			}
		}
	}

	ctx := &elementContext{name: name, path: path, line: line, col: col, ref: ref}
	v.stack = append(v.stack, ctx)

	if ref != schema.NoRef {
		v.validateAttributes(v.model.Element(ref), t.Attr, path, line, col)
	}
}

// childByName looks up name among parentRef's expanded content-model
// children (spec.md §4.2: "must be among the parent's expanded
// content-model children").
func (v *docValidator) childByName(parentRef schema.Ref, name string) (schema.Ref, bool) {
	parent := v.model.Element(parentRef)
	if parent == nil {
		return schema.NoRef, false
	}
	for _, childRef := range parent.Children {
		if child := v.model.Element(childRef); child != nil && child.Name == name {
			return childRef, true
		}
	}
	return schema.NoRef, false
}

// checkRunningMaxOccurs is the immediate per-event maxOccurs check of
// spec.md §4.2 ("apply the maxOccurs check against the running occurrence
// count ... on this start event"), distinct from the full content-model
// replay performed at end-element.
func (v *docValidator) checkRunningMaxOccurs(parent *elementContext, name string, line, col int, path string) {
	parentEl := v.model.Element(parent.ref)
	if parentEl == nil || parentEl.Content == nil {
		return
	}
	slots := v.slotsFor(parent.ref, parentEl.Content)
	for _, s := range slots {
		if s.name != name || s.max == schema.Unbounded {
			continue
		}
		count := 0
		for _, c := range parent.children {
			if c == name {
				count++
			}
		}
		if uint32(count) > s.max {
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind: errmodel.TooManyOccurrences, Severity: errmodel.SeverityError,
				Line: line, Column: col, Path: path, ElementName: name,
				ActualValue:   strconv.Itoa(count),
				ExpectedValue: strconv.FormatUint(uint64(s.max), 10),
				SchemaRule:    fmt.Sprintf("%q may occur at most %d time(s)", name, s.max),
			})
		}
		return
	}
}

func (v *docValidator) slotsFor(ref schema.Ref, content *schema.GroupNode) []slot {
	if cached, ok := v.slotCache[ref]; ok {
		return cached
	}
	slots := flattenSlots(v.model, content)
	v.slotCache[ref] = slots
	return slots
}

func (v *docValidator) endElement(offset int) {
	if len(v.stack) == 0 {
		return
	}
	line, col := v.loc.position(offset)
	ctx := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	v.paths.pop()

	if ctx.ref == schema.NoRef {
		return
	}
	el := v.model.Element(ctx.ref)
	if el == nil {
		return
	}

	switch el.ContentKind {
	case schema.ContentSimple:
		v.validateSimpleContent(el, ctx, line, col)
	case schema.ContentComplex:
		v.validateComplexContent(el, ctx, line, col)
	}
}

func (v *docValidator) validateSimpleContent(el *schema.SchemaElement, ctx *elementContext, line, col int) {
	text := strings.TrimSpace(ctx.text.String())
	// Empty content is an error only when the base type or a facet rejects
	// the empty string (an empty xs:string is valid).
	emptyAllowed := schema.BuiltinMatches(el.SimpleBase, "") && len(schema.ValidateFacets("", el.Constraints, el.SimpleBase)) == 0
	if text == "" && len(ctx.children) == 0 && el.Required() && el.Default == "" && el.Fixed == "" && !emptyAllowed {
		v.errs = append(v.errs, errmodel.ValidationError{
			Kind: errmodel.EmptyRequiredContent, Severity: errmodel.SeverityError,
			Line: line, Column: col, Path: ctx.path, ElementName: ctx.name,
			SchemaRule: "required simple content is empty",
		})
		return
	}
	if text == "" {
		return
	}
	if el.Fixed != "" && text != el.Fixed {
		v.errs = append(v.errs, errmodel.ValidationError{
			Kind: errmodel.ConstraintViolation, Severity: errmodel.SeverityError,
			Line: line, Column: col, Path: ctx.path, ElementName: ctx.name,
			ActualValue: text, ExpectedValue: el.Fixed,
			SchemaRule: "value does not match fixed value",
		})
	}
	if el.SimpleBase != "" && schema.IsBuiltin(el.SimpleBase) && !schema.BuiltinMatches(el.SimpleBase, text) {
		v.errs = append(v.errs, errmodel.ValidationError{
			Kind: errmodel.InvalidDataType, Severity: errmodel.SeverityError,
			Line: line, Column: col, Path: ctx.path, ElementName: ctx.name,
			ActualValue: text, ExpectedValue: el.SimpleBase,
			SchemaRule: fmt.Sprintf("value is not a valid %s", el.SimpleBase),
		})
		return
	}
	for _, fv := range schema.ValidateFacets(text, el.Constraints, el.SimpleBase) {
		v.errs = append(v.errs, errmodel.ValidationError{
			Kind:        facetErrorKind(fv.Kind),
			Severity:    errmodel.SeverityError,
			Line:        line, Column: col, Path: ctx.path, ElementName: ctx.name,
			ActualValue: text, ExpectedValue: string(fv.Kind),
			SchemaRule:  fv.Message,
		})
	}
}

func facetErrorKind(kind schema.ConstraintKind) errmodel.ErrorKind {
	switch kind {
	case schema.Pattern:
		return errmodel.PatternMismatch
	case schema.Enumeration:
		return errmodel.ConstraintViolation
	case schema.MinInclusive, schema.MaxInclusive, schema.MinExclusive, schema.MaxExclusive:
		return errmodel.InvalidValueRange
	default:
		return errmodel.ConstraintViolation
	}
}

func (v *docValidator) validateComplexContent(el *schema.SchemaElement, ctx *elementContext, line, col int) {
	if el.Content == nil {
		return
	}
	for _, f := range replayContentModel(v.model, el.Content, ctx.children) {
		switch f.kind {
		case "missing":
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind: errmodel.MissingRequiredElement, Severity: errmodel.SeverityError,
				Line: line, Column: col, Path: ctx.path, ElementName: f.name,
				ExpectedValue: strconv.Itoa(f.expected),
				SchemaRule:    fmt.Sprintf("required child %q is missing", f.name),
			})
		case "too_few":
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind: errmodel.TooFewOccurrences, Severity: errmodel.SeverityError,
				Line: line, Column: col, Path: ctx.path, ElementName: f.name,
				ActualValue: strconv.Itoa(f.actual), ExpectedValue: strconv.Itoa(f.expected),
				SchemaRule: fmt.Sprintf("%q must occur at least %d time(s), found %d", f.name, f.expected, f.actual),
			})
		case "order":
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind: errmodel.InvalidElementOrder, Severity: errmodel.SeverityError,
				Line: line, Column: col, Path: ctx.path, ElementName: ctx.name,
				SchemaRule: "child elements are not in the order the content model requires",
			})
		}
	}
}

func (v *docValidator) validateAttributes(el *schema.SchemaElement, attrs []xml.Attr, path string, line, col int) {
	present := map[string]string{}
	for _, a := range attrs {
		present[a.Name.Local] = a.Value
	}

	declared := map[string]bool{}
	for _, decl := range el.Attributes {
		declared[decl.Name] = true
		value, ok := present[decl.Name]
		switch {
		case decl.Use == schema.UseProhibited && ok:
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind: errmodel.UnexpectedAttribute, Severity: errmodel.SeverityError,
				Line: line, Column: col, Path: path, ElementName: el.Name, AttributeName: decl.Name,
				SchemaRule: fmt.Sprintf("attribute %q is prohibited", decl.Name),
			})
		case decl.Use == schema.UseRequired && !ok:
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind: errmodel.MissingRequiredAttribute, Severity: errmodel.SeverityError,
				Line: line, Column: col, Path: path, ElementName: el.Name, AttributeName: decl.Name,
				SchemaRule: fmt.Sprintf("required attribute %q is missing", decl.Name),
			})
		case ok:
			if decl.Fixed != "" && value != decl.Fixed {
				v.errs = append(v.errs, errmodel.ValidationError{
					Kind: errmodel.InvalidAttributeValue, Severity: errmodel.SeverityError,
					Line: line, Column: col, Path: path, ElementName: el.Name, AttributeName: decl.Name,
					ActualValue: value, ExpectedValue: decl.Fixed,
					SchemaRule: fmt.Sprintf("attribute %q does not match its fixed value", decl.Name),
				})
			} else if schema.IsBuiltin(decl.Type) && !schema.BuiltinMatches(decl.Type, value) {
				v.errs = append(v.errs, errmodel.ValidationError{
					Kind: errmodel.InvalidAttributeValue, Severity: errmodel.SeverityError,
					Line: line, Column: col, Path: path, ElementName: el.Name, AttributeName: decl.Name,
					ActualValue: value, ExpectedValue: decl.Type,
					SchemaRule: fmt.Sprintf("attribute %q is not a valid %s", decl.Name, decl.Type),
				})
			} else if td, ok := v.model.Type(decl.Type); ok && !td.IsComplex {
				for _, fv := range schema.ValidateFacets(value, td.Constraints, td.Base) {
					v.errs = append(v.errs, errmodel.ValidationError{
						Kind: errmodel.InvalidAttributeValue, Severity: errmodel.SeverityError,
						Line: line, Column: col, Path: path, ElementName: el.Name, AttributeName: decl.Name,
						ActualValue: value, SchemaRule: fv.Message,
					})
				}
			}
		}
	}

	for name := range present {
		if !declared[name] {
			v.errs = append(v.errs, errmodel.ValidationError{
				Kind: errmodel.UnexpectedAttribute, Severity: errmodel.SeverityError,
				Line: line, Column: col, Path: path, ElementName: el.Name, AttributeName: name,
				SchemaRule: fmt.Sprintf("attribute %q is not declared", name),
			})
		}
	}
}
