package schema

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FacetViolation describes one failed facet, named the way the teacher's
// FacetValidator.Validate errors are worded, so downstream schema_rule
// text stays recognizable.
type FacetViolation struct {
	Kind    ConstraintKind
	Message string
}

func (v *FacetViolation) Error() string { return v.Message }

// ValidateFacets checks value against every constraint in order, applying
// WhiteSpace normalization first if present (mirrors the teacher's
// ValidateFacets, which normalizes before validating the rest).
func ValidateFacets(value string, constraints []ElementConstraint, baseType string) []*FacetViolation {
	for _, c := range constraints {
		if c.Kind == WhiteSpace {
			value = normalizeWhiteSpace(value, c.Value)
			break
		}
	}

	var violations []*FacetViolation
	for _, c := range constraints {
		if v := validateOne(value, c, baseType); v != nil {
			violations = append(violations, v)
		}
	}
	return violations
}

func validateOne(value string, c ElementConstraint, baseType string) *FacetViolation {
	switch c.Kind {
	case Pattern:
		pattern := "^" + convertXSDRegex(c.Value) + "$"
		re, err := regexp.Compile(pattern)
		if err != nil {
			return &FacetViolation{c.Kind, fmt.Sprintf("invalid pattern %q: %v", c.Value, err)}
		}
		if !re.MatchString(value) {
			return &FacetViolation{c.Kind, fmt.Sprintf("value %q does not match pattern %q", value, c.Value)}
		}
	case Enumeration:
		for _, allowed := range c.Values {
			if value == allowed {
				return nil
			}
		}
		return &FacetViolation{c.Kind, fmt.Sprintf("value %q is not in enumeration %v", value, c.Values)}
	case MinLength:
		n, _ := strconv.Atoi(c.Value)
		if runeLength(value) < n {
			return &FacetViolation{c.Kind, fmt.Sprintf("length must be at least %d, got %d", n, runeLength(value))}
		}
	case MaxLength:
		n, _ := strconv.Atoi(c.Value)
		if runeLength(value) > n {
			return &FacetViolation{c.Kind, fmt.Sprintf("length must be at most %d, got %d", n, runeLength(value))}
		}
	case MinInclusive:
		if cmp, err := compareValues(value, c.Value, baseType); err == nil && cmp < 0 {
			return &FacetViolation{c.Kind, fmt.Sprintf("value must be >= %s, got %s", c.Value, value)}
		}
	case MaxInclusive:
		if cmp, err := compareValues(value, c.Value, baseType); err == nil && cmp > 0 {
			return &FacetViolation{c.Kind, fmt.Sprintf("value must be <= %s, got %s", c.Value, value)}
		}
	case MinExclusive:
		if cmp, err := compareValues(value, c.Value, baseType); err == nil && cmp <= 0 {
			return &FacetViolation{c.Kind, fmt.Sprintf("value must be > %s, got %s", c.Value, value)}
		}
	case MaxExclusive:
		if cmp, err := compareValues(value, c.Value, baseType); err == nil && cmp >= 0 {
			return &FacetViolation{c.Kind, fmt.Sprintf("value must be < %s, got %s", c.Value, value)}
		}
	case TotalDigits:
		n, _ := strconv.Atoi(c.Value)
		digits := strings.TrimLeft(value, "+-")
		digits = strings.Replace(digits, ".", "", 1)
		digits = strings.TrimLeft(digits, "0")
		if digits == "" {
			digits = "0"
		}
		if len(digits) > n {
			return &FacetViolation{c.Kind, fmt.Sprintf("total digits must be at most %d, got %d", n, len(digits))}
		}
	case FractionDigits:
		n, _ := strconv.Atoi(c.Value)
		parts := strings.SplitN(value, ".", 2)
		if len(parts) == 2 && len(parts[1]) > n {
			return &FacetViolation{c.Kind, fmt.Sprintf("fraction digits must be at most %d, got %d", n, len(parts[1]))}
		}
	case WhiteSpace:
		// Normalization only, handled above.
	}
	return nil
}

// runeLength counts Unicode code points after NFC normalization, so
// combining-mark sequences common in non-ASCII XML content (accented
// Latin, CJK) count as the XSD spec's notion of "character" rather than
// raw UTF-8 bytes or un-normalized runes.
func runeLength(s string) int {
	return len([]rune(norm.NFC.String(s)))
}

// convertXSDRegex translates the handful of XSD regex escapes the teacher
// handles into Go-regexp-compatible classes.
func convertXSDRegex(pattern string) string {
	r := strings.NewReplacer(
		`\i`, `[_:A-Za-z]`,
		`\c`, `[_:A-Za-z0-9.-]`,
	)
	return r.Replace(pattern)
}

// normalizeWhiteSpace implements the three XSD whiteSpace facet values.
func normalizeWhiteSpace(value, mode string) string {
	switch mode {
	case "replace":
		r := strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")
		return r.Replace(value)
	case "collapse":
		return strings.Join(strings.Fields(normalizeWhiteSpace(value, "replace")), " ")
	default:
		return value
	}
}

var numericBaseTypes = map[string]bool{
	"decimal": true, "integer": true, "float": true, "double": true,
	"int": true, "long": true, "short": true, "byte": true,
	"nonNegativeInteger": true, "positiveInteger": true,
	"nonPositiveInteger": true, "negativeInteger": true,
}

// compareValues compares two facet operands under baseType's ordering:
// numeric types compare as arbitrary-precision numbers, everything else
// (including dates, left as a documented simplification) compares
// lexically.
func compareValues(v1, v2, baseType string) (int, error) {
	if numericBaseTypes[stripPrefix(baseType)] {
		f1, _, err1 := big.ParseFloat(v1, 10, 200, big.ToNearestEven)
		f2, _, err2 := big.ParseFloat(v2, 10, 200, big.ToNearestEven)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("non-numeric operand for base type %s", baseType)
		}
		return f1.Cmp(f2), nil
	}
	return strings.Compare(v1, v2), nil
}
