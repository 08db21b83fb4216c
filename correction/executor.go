package correction

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/agentflare-ai/xmlschemafix/errmodel"
	"github.com/agentflare-ai/xmlschemafix/schema"
	"github.com/agentflare-ai/xmlschemafix/tree"
	"github.com/agentflare-ai/xmlschemafix/validator"
)

// Result is the CorrectionExecutor's output (spec.md §4.5).
type Result struct {
	Success          bool
	Applied          int
	Failed           int
	TimeMS           int64
	BeforeValidation errmodel.Result
	AfterValidation  *errmodel.Result
	NoChangesRequired bool
}

// Execute applies plan to doc in group/action order, then re-validates
// (spec.md §4.5). before is the pre-correction validation result, passed
// in rather than recomputed so the caller controls when the first
// validation pass happens.
func Execute(doc *tree.Document, plan *Plan, model *schema.Model, before errmodel.Result) Result {
	start := time.Now()
	result := Result{BeforeValidation: before}

	actions := plan.Actions()
	if len(actions) == 0 {
		result.Success = true
		result.NoChangesRequired = true
		result.TimeMS = time.Since(start).Milliseconds()
		return result
	}

	for _, a := range actions {
		if err := apply(doc, a, model); err != nil {
			a.FailureReason = err.Error()
			result.Failed++
			continue
		}
		a.Applied = true
		result.Applied++
	}
	result.Success = true
	result.TimeMS = time.Since(start).Milliseconds()

	// "Always perform [re-validation] when success && !no_changes_required"
	// (spec.md §9 Open Questions, resolved).
	if result.Success && !result.NoChangesRequired {
		data, err := doc.Serialize()
		if err != nil {
			result.Success = false
			return result
		}
		after := validator.Validate(data, model)
		result.AfterValidation = &after
	}
	return result
}

func apply(doc *tree.Document, a *Action, model *schema.Model) error {
	switch a.Type {
	case AddElement:
		parent := doc.FindElement(a.Path)
		if parent == nil {
			return fmt.Errorf("parent %q not found", a.Path)
		}
		child := etree.NewElement(a.ElementName)
		if a.NewValue != "" {
			tree.SetText(child, a.NewValue)
		}
		insertAtSchemaPosition(model, a.Path, parent, child)
		return nil

	case RemoveElement:
		el := doc.FindElement(a.Path)
		if el == nil {
			return fmt.Errorf("element %q not found", a.Path)
		}
		if !tree.Remove(el) {
			return fmt.Errorf("element %q has no parent to remove from", a.Path)
		}
		return nil

	case MoveElement:
		el := doc.FindElement(a.Path)
		target := doc.FindElement(a.NewValue)
		if el == nil || target == nil {
			return fmt.Errorf("move source/target not found for %q", a.Path)
		}
		if !tree.Move(el, target, tree.LastChild) {
			return fmt.Errorf("move failed for %q", a.Path)
		}
		return nil

	case ReorderElements:
		parent := doc.FindElement(a.Path)
		if parent == nil {
			return fmt.Errorf("parent %q not found", a.Path)
		}
		if !tree.ReorderChildren(parent, a.Order) {
			return fmt.Errorf("reorder failed for %q", a.Path)
		}
		return nil

	case AddAttribute, ModifyAttribute:
		el := doc.FindElement(a.Path)
		if el == nil {
			return fmt.Errorf("element %q not found", a.Path)
		}
		tree.SetAttribute(el, a.AttributeName, a.NewValue)
		return nil

	case RemoveAttribute:
		el := doc.FindElement(a.Path)
		if el == nil {
			return fmt.Errorf("element %q not found", a.Path)
		}
		tree.RemoveAttribute(el, a.AttributeName)
		return nil

	case ChangeTextContent:
		if a.FailureReason != "" {
			return fmt.Errorf("%s", a.FailureReason)
		}
		el := doc.FindElement(a.Path)
		if el == nil {
			return fmt.Errorf("element %q not found", a.Path)
		}
		tree.SetText(el, a.NewValue)
		return nil

	case ModifyElement, FixNamespace:
		return fmt.Errorf("unsupported action type %s", a.Type)

	default:
		return fmt.Errorf("unknown action type %s", a.Type)
	}
}
