package validator

import (
	"github.com/agentflare-ai/xmlschemafix/schema"
)

// slot is one flattened leaf position in a content model, produced by
// walking the GroupNode tree once per complex element (spec.md §4.2.1).
// Sequence members get strictly increasing rank so order violations can
// be detected by a simple non-decreasing-rank check; Choice/All members
// share a rank because the schema places no relative order requirement
// on alternatives (an approximation: true choice/all semantics would
// track per-branch exclusivity, which this module does not attempt).
type slot struct {
	name string
	min  uint32
	max  uint32
	rank int
}

// flattenSlots expands a content model's GroupNode into an ordered slot
// list. When the same element name is reachable through more than one
// path (e.g. two choice branches), only the first occurrence's bounds are
// kept; this matches the common case of schemas that declare a name once
// per content model.
func flattenSlots(model *schema.Model, g *schema.GroupNode) []slot {
	var out []slot
	seen := map[string]bool{}
	rank := 0

	var walk func(g *schema.GroupNode)
	walk = func(g *schema.GroupNode) {
		if g == nil {
			return
		}
		switch g.Kind {
		case schema.Sequence:
			for _, m := range g.Members {
				if m.IsElement {
					name := elementName(model, m.Element)
					if !seen[name] {
						seen[name] = true
						out = append(out, slot{name: name, min: m.MinOccurs, max: m.MaxOccurs, rank: rank})
					}
					rank++
				} else if m.Group != nil {
					walk(m.Group)
				}
			}
		case schema.Choice, schema.All:
			startRank := rank
			for _, m := range g.Members {
				if m.IsElement {
					name := elementName(model, m.Element)
					if !seen[name] {
						seen[name] = true
						min := m.MinOccurs
						if g.Kind == schema.Choice {
							// A choice member is individually optional: only
							// one alternative need appear.
							min = 0
						}
						out = append(out, slot{name: name, min: min, max: m.MaxOccurs, rank: startRank})
					}
				} else if m.Group != nil {
					walk(m.Group)
				}
			}
			rank = startRank + 1
		}
	}
	walk(g)
	return out
}

func elementName(model *schema.Model, ref schema.Ref) string {
	if el := model.Element(ref); el != nil {
		return el.Name
	}
	return ""
}

// contentModelFinding is one conformance problem surfaced by replaying a
// complex element's observed children against its content model.
type contentModelFinding struct {
	kind             string // "missing", "too_few", "order"
	name             string
	actual, expected int
}

// replayContentModel approximates spec.md §4.2.1 with the flattened slots
// of flattenSlots rather than a full automaton: it counts the observed
// child names, reports missing/deficient occurrences against each slot's
// minimum, and reports one ordering violation when the observed slot rank
// ever decreases.
// Excess occurrences are instead caught immediately at start-element time
// (docValidator.checkRunningMaxOccurs) since the overrun is known as soon
// as the offending start tag is seen, rather than waiting for the parent
// to close. Elements the schema doesn't know about at all are expected to
// have already been flagged as UnexpectedElement at start-element time
// (spec.md §4.2), so they are ignored here rather than re-reported.
func replayContentModel(model *schema.Model, g *schema.GroupNode, observed []string) []contentModelFinding {
	slots := flattenSlots(model, g)
	bounds := map[string]slot{}
	for _, s := range slots {
		bounds[s.name] = s
	}

	counts := map[string]int{}
	var findings []contentModelFinding

	lastRank := -1
	orderViolation := false
	for _, name := range observed {
		counts[name]++
		s, known := bounds[name]
		if !known {
			continue
		}
		if s.rank < lastRank {
			orderViolation = true
		}
		lastRank = s.rank
	}
	if orderViolation {
		findings = append(findings, contentModelFinding{kind: "order"})
	}

	for _, s := range slots {
		actual := counts[s.name]
		switch {
		case actual == 0 && s.min > 0:
			findings = append(findings, contentModelFinding{kind: "missing", name: s.name, actual: 0, expected: int(s.min)})
		case actual > 0 && uint32(actual) < s.min:
			findings = append(findings, contentModelFinding{kind: "too_few", name: s.name, actual: actual, expected: int(s.min)})
		}
	}
	return findings
}
