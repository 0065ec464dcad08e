package validation

import (
	"regexp"
	"sort"
)

// operatorPattern matches "$<operator>:" with optional whitespace before the colon.
var operatorPattern = regexp.MustCompile(`(?i)\$(?:gte?|lte?|ne|eq|n?in|regex|where|exists|expr|or|and|not|nor|elemmatch|all|size|type|mod|text)\s*:`)

// ContainsOperator reports whether s looks like a smuggled query operator.
func ContainsOperator(s string) bool {
	return operatorPattern.MatchString(s)
}

// firstInjectedField returns the first field, in name order, whose value
// contains a query operator.
func firstInjectedField(fields map[string]string) (string, bool) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ContainsOperator(fields[name]) {
			return name, true
		}
	}
	return "", false
}
