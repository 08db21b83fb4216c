package correction

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/agentflare-ai/xmlschemafix/schema"
	"github.com/agentflare-ai/xmlschemafix/tree"
)

// schemaElementAt walks a canonical document path through the compiled
// schema graph, following each path segment's child-by-name relationship
// rather than a name-keyed lookup table, since most elements a real XSD
// declares are local to their parent's content model and never appear in
// the compiler's global symbol table (schema.Model.Lookup only indexes
// top-level/ref-reachable globals).
func schemaElementAt(model *schema.Model, path string) *schema.SchemaElement {
	segs := pathSegmentNames(path)
	if len(segs) == 0 {
		return nil
	}
	root := model.Element(model.Root)
	if root == nil || root.Name != segs[0] {
		return nil
	}
	cur := root
	for _, name := range segs[1:] {
		next := childNamed(model, cur, name)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func childNamed(model *schema.Model, parent *schema.SchemaElement, name string) *schema.SchemaElement {
	for _, ref := range parent.Children {
		if child := model.Element(ref); child != nil && child.Name == name {
			return child
		}
	}
	return nil
}

// pathSegmentNames splits a canonical "/a[1]/b[2]" path into its bare
// element names, discarding occurrence indices.
func pathSegmentNames(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	names := make([]string, len(parts))
	for i, p := range parts {
		if j := strings.IndexByte(p, '['); j >= 0 {
			p = p[:j]
		}
		names[i] = p
	}
	return names
}

// expectedOrder flattens a content model's element members into the
// sequence order the schema declares (spec.md §4.2.1's Sequence
// concatenation); used to build the desired order for ReorderElements.
func expectedOrder(model *schema.Model, g *schema.GroupNode) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(g *schema.GroupNode)
	walk = func(g *schema.GroupNode) {
		if g == nil {
			return
		}
		for _, m := range g.Members {
			if m.IsElement {
				if el := model.Element(m.Element); el != nil && !seen[el.Name] {
					seen[el.Name] = true
					out = append(out, el.Name)
				}
			} else if m.Group != nil {
				walk(m.Group)
			}
		}
	}
	walk(g)
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// insertAtSchemaPosition inserts child into parent at the position the
// schema's content model dictates (spec.md §4.4's "AddElement with
// generated default content at schema-determined position"), rather than
// always appending: it places child immediately before the first existing
// sibling whose schema rank is greater than child's, so a correction never
// itself introduces an InvalidElementOrder violation on re-validation. If
// the parent has no compiled content model, or child's tag is not part of
// it, child is appended as the parent's last child.
func insertAtSchemaPosition(model *schema.Model, parentPath string, parent *etree.Element, child *etree.Element) {
	parentEl := schemaElementAt(model, parentPath)
	var order []string
	if parentEl != nil && parentEl.Content != nil {
		order = expectedOrder(model, parentEl.Content)
	}

	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	childRank, known := rank[child.Tag]
	if known {
		for _, sibling := range parent.ChildElements() {
			if siblingRank, present := rank[sibling.Tag]; present && siblingRank > childRank {
				tree.Insert(child, sibling, tree.Before)
				return
			}
		}
	}
	tree.Insert(child, parent, tree.LastChild)
}
