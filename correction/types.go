// Package correction converts a validator error list into an ordered,
// conflict-free plan of tree edits, and applies that plan to a parsed
// document (spec.md §4.4, §4.4a, §4.5).
package correction

import (
	"strings"

	"github.com/agentflare-ai/xmlschemafix/errmodel"
)

// ActionType enumerates the CorrectionAction kinds of spec.md §3.
type ActionType string

const (
	AddElement       ActionType = "AddElement"
	RemoveElement    ActionType = "RemoveElement"
	MoveElement      ActionType = "MoveElement"
	ModifyElement    ActionType = "ModifyElement"
	AddAttribute     ActionType = "AddAttribute"
	RemoveAttribute  ActionType = "RemoveAttribute"
	ModifyAttribute  ActionType = "ModifyAttribute"
	ChangeTextContent ActionType = "ChangeTextContent"
	ReorderElements  ActionType = "ReorderElements"
	FixNamespace     ActionType = "FixNamespace"
)

// PriorityClass is the correction group priority of spec.md §4.4 step 2.
type PriorityClass int

const (
	Critical PriorityClass = iota
	Structural
	DataQuality
	Optional
)

func (p PriorityClass) String() string {
	switch p {
	case Critical:
		return "Critical"
	case Structural:
		return "Structural"
	case DataQuality:
		return "DataQuality"
	default:
		return "Optional"
	}
}

// Action is one CorrectionAction (spec.md §3).
type Action struct {
	Type            ActionType
	Path            string // target path
	ElementName     string
	AttributeName   string
	OldValue        string
	NewValue        string
	Order           []string // ReorderElements' desired child order
	RelatedErrorKind errmodel.ErrorKind
	Applied         bool
	FailureReason   string

	class PriorityClass
}

func (a *Action) depth() int { return strings.Count(a.Path, "/") }

// Group is a CorrectionGroup: actions sharing an immediate parent path,
// in execution order (spec.md §3, §4.4 step 5).
type Group struct {
	ParentPath string
	Actions    []*Action
}

// Plan is an ordered CorrectionPlan (spec.md §3).
type Plan struct {
	Groups []*Group
}

// Actions flattens the plan back into total execution order, for callers
// that don't need per-group locality.
func (p *Plan) Actions() []*Action {
	var out []*Action
	for _, g := range p.Groups {
		out = append(out, g.Actions...)
	}
	return out
}

func parentPath(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}
