package correction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentflare-ai/xmlschemafix/schema"
)

var (
	integerPattern = regexp.MustCompile(`-?\d+`)
	decimalPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)
	isoDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	usDatePattern  = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
	digitsPattern  = regexp.MustCompile(`\d+`)
)

// coerceResult is the outcome of one value-coercion attempt (spec.md
// §4.4a).
type coerceResult struct {
	value string
	ok    bool
}

// coerceValue transforms current into a syntactically valid value for
// baseType, applying facets where the strategy calls for it. ok is false
// only for the "string with Pattern, no digits available" case, where the
// spec calls for leaving the action unchanged and marking it failed.
func coerceValue(current, baseType string, constraints []schema.ElementConstraint) coerceResult {
	switch baseType {
	case "int", "integer", "long", "short", "byte":
		return coerceInteger(current, 0)
	case "positiveInteger":
		return coercePositiveInteger(current)
	case "nonNegativeInteger":
		return coerceNonNegativeInteger(current)
	case "negativeInteger", "nonPositiveInteger":
		return coerceInteger(current, 0)
	case "decimal", "double", "float":
		return coerceDecimal(current, constraints)
	case "boolean":
		return coerceBoolean(current)
	case "date":
		return coerceDate(current)
	default:
		return coerceEnumOrPattern(current, constraints)
	}
}

func coerceInteger(current string, fallback int) coerceResult {
	if m := integerPattern.FindString(current); m != "" {
		if _, err := strconv.Atoi(m); err == nil {
			return coerceResult{m, true}
		}
	}
	return coerceResult{strconv.Itoa(fallback), true}
}

func coercePositiveInteger(current string) coerceResult {
	r := coerceInteger(current, 1)
	n, _ := strconv.Atoi(r.value)
	if n <= 0 {
		return coerceResult{"1", true}
	}
	return r
}

func coerceNonNegativeInteger(current string) coerceResult {
	r := coerceInteger(current, 0)
	n, _ := strconv.Atoi(r.value)
	if n < 0 {
		return coerceResult{"0", true}
	}
	return r
}

func coerceDecimal(current string, constraints []schema.ElementConstraint) coerceResult {
	value := "0.0"
	if m := decimalPattern.FindString(current); m != "" {
		value = m
	}
	for _, c := range constraints {
		switch c.Kind {
		case schema.FractionDigits:
			n, _ := strconv.Atoi(c.Value)
			if parts := strings.SplitN(value, ".", 2); len(parts) == 2 && len(parts[1]) > n {
				if n == 0 {
					value = parts[0]
				} else {
					value = parts[0] + "." + parts[1][:n]
				}
			}
		case schema.TotalDigits:
			n, _ := strconv.Atoi(c.Value)
			digits := strings.TrimLeft(strings.TrimPrefix(value, "-"), "0")
			digits = strings.Replace(digits, ".", "", 1)
			if len(digits) > n {
				// Truncate the integer part only, as a last resort; a
				// total-digits overflow this large is rare in practice.
				value = value[:n]
			}
		}
	}
	return coerceResult{value, true}
}

func coerceBoolean(current string) coerceResult {
	lower := strings.ToLower(strings.TrimSpace(current))
	switch {
	case lower == "1" || strings.HasPrefix(lower, "t") || lower == "yes":
		return coerceResult{"true", true}
	default:
		return coerceResult{"false", true}
	}
}

func coerceDate(current string) coerceResult {
	if m := isoDatePattern.FindString(current); m != "" {
		return coerceResult{m, true}
	}
	if m := usDatePattern.FindStringSubmatch(current); m != nil {
		return coerceResult{fmt.Sprintf("%s-%s-%s", m[3], m[1], m[2]), true}
	}
	return coerceResult{"1970-01-01", true}
}

// coerceEnumOrPattern handles plain string types governed by an
// Enumeration or Pattern facet (spec.md §4.4a).
func coerceEnumOrPattern(current string, constraints []schema.ElementConstraint) coerceResult {
	for _, c := range constraints {
		if c.Kind == schema.Enumeration {
			for _, allowed := range c.Values {
				if strings.EqualFold(current, allowed) {
					return coerceResult{allowed, true}
				}
			}
			if len(c.Values) > 0 {
				return coerceResult{c.Values[0], true}
			}
		}
	}
	for _, c := range constraints {
		if c.Kind == schema.Pattern && strings.Contains(c.Value, `\d+`) {
			if digits := digitsPattern.FindString(current); digits != "" {
				return coerceResult{digits, true}
			}
			return coerceResult{current, false}
		}
	}
	return coerceResult{current, true}
}

// clampRange clamps value into [minInclusive, maxInclusive]/exclusive
// bounds found in constraints, nudging by one unit for exclusive bounds
// on integer types only (spec.md §4.4a "Numeric range").
func clampRange(value string, baseType string, constraints []schema.ElementConstraint) string {
	isInteger := strings.Contains(baseType, "nt") // int, Integer-derived names
	for _, c := range constraints {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return value
		}
		bound, berr := strconv.ParseFloat(c.Value, 64)
		if berr != nil {
			continue
		}
		switch c.Kind {
		case schema.MinInclusive:
			if n < bound {
				value = c.Value
			}
		case schema.MaxInclusive:
			if n > bound {
				value = c.Value
			}
		case schema.MinExclusive:
			if n <= bound {
				value = nudge(bound, 1, isInteger)
			}
		case schema.MaxExclusive:
			if n >= bound {
				value = nudge(bound, -1, isInteger)
			}
		}
	}
	return value
}

func nudge(bound float64, direction int, isInteger bool) string {
	if isInteger {
		return strconv.Itoa(int(bound) + direction)
	}
	return strconv.FormatFloat(bound, 'f', -1, 64)
}
