package correction

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agentflare-ai/xmlschemafix/errmodel"
	"github.com/agentflare-ai/xmlschemafix/schema"
	"github.com/agentflare-ai/xmlschemafix/tree"
)

// Plan implements spec.md §4.4: translate each error into actions,
// assign a priority class, order within class, resolve conflicts, then
// group by parent path for locality of execution.
func Plan(errs []errmodel.ValidationError, doc *tree.Document, model *schema.Model) *Plan {
	var actions []*Action
	for _, e := range errs {
		actions = append(actions, translate(e, doc, model)...)
	}
	for _, a := range actions {
		a.class = classOf(a.RelatedErrorKind)
	}

	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].class != actions[j].class {
			return actions[i].class < actions[j].class
		}
		di, dj := actions[i].depth(), actions[j].depth()
		if actions[i].Type == AddElement && actions[j].Type == AddElement {
			return di < dj
		}
		if actions[i].Type == AddElement {
			return false
		}
		if actions[j].Type == AddElement {
			return true
		}
		return di > dj
	})

	actions = resolveConflicts(actions)
	return group(actions)
}

// translate is step 1 of spec.md §4.4: the fixed error-kind-to-action
// mapping table.
func translate(e errmodel.ValidationError, doc *tree.Document, model *schema.Model) []*Action {
	switch e.Kind {
	case errmodel.MissingRequiredElement:
		parent := schemaElementAt(model, e.Path)
		child := childSchemaFor(model, parent, e.ElementName)
		return []*Action{{
			Type: AddElement, Path: e.Path, ElementName: e.ElementName,
			NewValue: defaultValueFor(child), RelatedErrorKind: e.Kind,
		}}

	case errmodel.TooFewOccurrences:
		parent := schemaElementAt(model, e.Path)
		child := childSchemaFor(model, parent, e.ElementName)
		k := atoi(e.ExpectedValue) - atoi(e.ActualValue)
		var out []*Action
		for i := 0; i < k; i++ {
			out = append(out, &Action{
				Type: AddElement, Path: e.Path, ElementName: e.ElementName,
				NewValue: defaultValueFor(child), RelatedErrorKind: e.Kind,
			})
		}
		return out

	case errmodel.TooManyOccurrences:
		return []*Action{{
			Type: RemoveElement, Path: e.Path, ElementName: e.ElementName,
			RelatedErrorKind: e.Kind,
		}}

	case errmodel.InvalidElementOrder:
		parent := schemaElementAt(model, e.Path)
		var order []string
		if parent != nil && parent.Content != nil {
			order = expectedOrder(model, parent.Content)
		}
		return []*Action{{
			Type: ReorderElements, Path: e.Path, Order: order, RelatedErrorKind: e.Kind,
		}}

	case errmodel.UnexpectedElement:
		target := findAcceptingAncestor(doc, model, e.Path, e.ElementName)
		if target == "" {
			return []*Action{{Type: RemoveElement, Path: e.Path, ElementName: e.ElementName, RelatedErrorKind: e.Kind}}
		}
		return []*Action{{Type: MoveElement, Path: e.Path, ElementName: e.ElementName, NewValue: target, RelatedErrorKind: e.Kind}}

	case errmodel.MissingRequiredAttribute:
		el := schemaElementAt(model, e.Path)
		decl := attrDecl(el, e.AttributeName)
		return []*Action{{
			Type: AddAttribute, Path: e.Path, AttributeName: e.AttributeName,
			NewValue: defaultAttrValue(decl), RelatedErrorKind: e.Kind,
		}}

	case errmodel.InvalidAttributeValue:
		el := schemaElementAt(model, e.Path)
		decl := attrDecl(el, e.AttributeName)
		var constraints []schema.ElementConstraint
		base := ""
		if decl != nil {
			base = decl.Type
			if td, ok := model.Type(decl.Type); ok {
				constraints = td.Constraints
				base = td.Base
			}
		}
		r := coerceValue(e.ActualValue, base, constraints)
		newValue := clampRange(r.value, base, constraints)
		return []*Action{{
			Type: ModifyAttribute, Path: e.Path, AttributeName: e.AttributeName,
			OldValue: e.ActualValue, NewValue: newValue, RelatedErrorKind: e.Kind,
		}}

	case errmodel.UnexpectedAttribute:
		return []*Action{{Type: RemoveAttribute, Path: e.Path, AttributeName: e.AttributeName, RelatedErrorKind: e.Kind}}

	case errmodel.InvalidDataType, errmodel.InvalidFormat, errmodel.PatternMismatch,
		errmodel.InvalidValueRange, errmodel.ConstraintViolation:
		el := schemaElementAt(model, e.Path)
		base, constraints := "", []schema.ElementConstraint(nil)
		if el != nil {
			base, constraints = el.SimpleBase, el.Constraints
		}
		r := coerceValue(e.ActualValue, base, constraints)
		newValue := clampRange(r.value, base, constraints)
		a := &Action{
			Type: ChangeTextContent, Path: e.Path, ElementName: e.ElementName,
			OldValue: e.ActualValue, NewValue: newValue, RelatedErrorKind: e.Kind,
		}
		if !r.ok {
			a.FailureReason = "pattern could not be inverted"
		}
		return []*Action{a}

	case errmodel.EmptyRequiredContent:
		el := schemaElementAt(model, e.Path)
		return []*Action{{
			Type: ChangeTextContent, Path: e.Path, ElementName: e.ElementName,
			NewValue: defaultValueFor(el), RelatedErrorKind: e.Kind,
		}}

	case errmodel.InvalidContentModel:
		return []*Action{{Type: ChangeTextContent, Path: e.Path, ElementName: e.ElementName, NewValue: "", RelatedErrorKind: e.Kind}}

	default:
		return nil
	}
}

func childSchemaFor(model *schema.Model, parent *schema.SchemaElement, name string) *schema.SchemaElement {
	if parent == nil {
		return nil
	}
	return childNamed(model, parent, name)
}

func attrDecl(el *schema.SchemaElement, name string) *schema.AttributeDecl {
	if el == nil {
		return nil
	}
	for i := range el.Attributes {
		if el.Attributes[i].Name == name {
			return &el.Attributes[i]
		}
	}
	return nil
}

// defaultValueFor implements spec.md §4.4's default-value derivation
// order: fixed > default > first enumeration value > minInclusive (or
// minExclusive+1 for integers) > type-indexed fallback.
func defaultValueFor(el *schema.SchemaElement) string {
	if el == nil {
		return ""
	}
	if el.Fixed != "" {
		return el.Fixed
	}
	if el.Default != "" {
		return el.Default
	}
	for _, c := range el.Constraints {
		if c.Kind == schema.Enumeration && len(c.Values) > 0 {
			return c.Values[0]
		}
	}
	isInt := strings.Contains(el.SimpleBase, "nt")
	for _, c := range el.Constraints {
		if c.Kind == schema.MinInclusive {
			return c.Value
		}
		if c.Kind == schema.MinExclusive {
			if isInt {
				n, err := strconv.Atoi(c.Value)
				if err == nil {
					return strconv.Itoa(n + 1)
				}
			}
			return c.Value
		}
	}
	return typeIndexedFallback(el.SimpleBase)
}

func defaultAttrValue(decl *schema.AttributeDecl) string {
	if decl == nil {
		return ""
	}
	if decl.Fixed != "" {
		return decl.Fixed
	}
	if decl.Default != "" {
		return decl.Default
	}
	return typeIndexedFallback(decl.Type)
}

func typeIndexedFallback(t string) string {
	switch t {
	case "int", "integer", "long", "short", "byte",
		"nonNegativeInteger", "positiveInteger", "nonPositiveInteger", "negativeInteger":
		return "0"
	case "decimal", "double", "float":
		return "0.0"
	case "boolean":
		return "false"
	case "date":
		return "1970-01-01"
	default:
		return ""
	}
}

// findAcceptingAncestor walks up the document tree from path's parent,
// checking each ancestor's compiled schema element for a child named
// name, and returns the first ancestor path that accepts it (spec.md
// §4.4: "MoveElement to the nearest ancestor that accepts this name").
func findAcceptingAncestor(doc *tree.Document, model *schema.Model, path, name string) string {
	candidate := parentPath(path)
	for candidate != "/" && candidate != "" {
		if el := schemaElementAt(model, candidate); el != nil && childNamed(model, el, name) != nil {
			if doc.FindElement(candidate) != nil {
				return candidate
			}
		}
		candidate = parentPath(candidate)
	}
	return ""
}

// classOf assigns the priority class of spec.md §4.4 step 2. Kinds not
// named by the explicit table (UnexpectedElement, UnexpectedAttribute,
// ConstraintViolation, InvalidContentModel) fall back to Optional: the
// spec's table only enumerates Critical/Structural/DataQuality members
// explicitly, so anything else is lowest priority by construction.
func classOf(kind errmodel.ErrorKind) PriorityClass {
	switch kind {
	case errmodel.MalformedXml, errmodel.MissingRequiredElement, errmodel.MissingRequiredAttribute:
		return Critical
	case errmodel.InvalidElementOrder, errmodel.TooFewOccurrences, errmodel.TooManyOccurrences, errmodel.EmptyRequiredContent:
		return Structural
	case errmodel.InvalidDataType, errmodel.InvalidFormat, errmodel.PatternMismatch,
		errmodel.InvalidValueRange, errmodel.InvalidAttributeValue:
		return DataQuality
	default:
		return Optional
	}
}

// resolveConflicts implements spec.md §4.4 step 4.
func resolveConflicts(actions []*Action) []*Action {
	byPath := map[string][]*Action{}
	for _, a := range actions {
		byPath[a.Path] = append(byPath[a.Path], a)
	}

	drop := map[*Action]bool{}
	for _, group := range byPath {
		hasAdd, hasRemove := false, false
		for _, a := range group {
			if a.Type == AddElement {
				hasAdd = true
			}
			if a.Type == RemoveElement {
				hasRemove = true
			}
		}
		if hasAdd && hasRemove {
			for _, a := range group {
				if a.Type == RemoveElement {
					drop[a] = true
				}
			}
		}

		var textMods []*Action
		for _, a := range group {
			if a.Type == ChangeTextContent {
				textMods = append(textMods, a)
			}
		}
		for _, a := range textMods[minInt(1, len(textMods)):] {
			a.FailureReason = "superseded"
			drop[a] = true
		}
	}

	// ReorderElements on a parent subsumes individual MoveElements among
	// that parent's direct children.
	reorderParents := map[string]bool{}
	for _, a := range actions {
		if a.Type == ReorderElements {
			reorderParents[a.Path] = true
		}
	}
	for _, a := range actions {
		if a.Type == MoveElement && reorderParents[parentPath(a.Path)] {
			drop[a] = true
		}
	}

	var out []*Action
	for _, a := range actions {
		if !drop[a] {
			out = append(out, a)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// group implements spec.md §4.4 step 5, preserving the order already
// established by sort+conflict resolution within each parent-path group.
func group(actions []*Action) *Plan {
	order := []string{}
	seen := map[string]bool{}
	byParent := map[string][]*Action{}
	for _, a := range actions {
		p := parentPath(a.Path)
		if !seen[p] {
			seen[p] = true
			order = append(order, p)
		}
		byParent[p] = append(byParent[p], a)
	}
	plan := &Plan{}
	for _, p := range order {
		plan.Groups = append(plan.Groups, &Group{ParentPath: p, Actions: byParent[p]})
	}
	return plan
}
