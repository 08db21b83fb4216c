package schema

import "regexp"

// builtinPattern is the normative regex table of spec.md §6.3, the way the
// teacher's builtinTypes map associates a name with a validator — except
// here each built-in contributes an implicit Pattern constraint instead of
// a bespoke Go validator func (spec.md §4.1 step 5).
var builtinPattern = map[string]string{
	"int":                `-?\d+`,
	"integer":            `-?\d+`,
	"positiveInteger":    `\d*[1-9]\d*`,
	"negativeInteger":    `-\d*[1-9]\d*`,
	"nonNegativeInteger": `\d+`,
	"nonPositiveInteger": `-?\d+`,
	"decimal":            `-?\d+(\.\d+)?`,
	"double":             `-?\d+(\.\d+)?([eE][+-]?\d+)?`,
	"float":              `-?\d+(\.\d+)?([eE][+-]?\d+)?`,
	"boolean":            `(true|false|1|0)`,
	"date":               `\d{4}-\d{2}-\d{2}`,
	"time":               `\d{2}:\d{2}:\d{2}`,
	"dateTime":           `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`,
	"string":             `.*`,
}

var builtinRegexp = map[string]*regexp.Regexp{}

func init() {
	for name, pat := range builtinPattern {
		builtinRegexp[name] = regexp.MustCompile("^" + pat + "$")
	}
}

// IsBuiltin reports whether name (with any namespace prefix stripped) is
// one of the built-in types of spec.md §6.3.
func IsBuiltin(name string) bool {
	_, ok := builtinPattern[stripPrefix(name)]
	return ok
}

// BuiltinMatches reports whether value is syntactically valid for the
// named built-in type.
func BuiltinMatches(typeName, value string) bool {
	re, ok := builtinRegexp[stripPrefix(typeName)]
	if !ok {
		return true // unknown/user type: no syntactic check here
	}
	return re.MatchString(value)
}

func stripPrefix(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[i+1:]
		}
	}
	return name
}
