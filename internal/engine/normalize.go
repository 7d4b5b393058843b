package engine

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// aliases maps alternate spellings onto canonical operation names.
// The keypad symbols are the tokens a calculator front-end sends.
var aliases = map[string]string{
	"power": "pow",
	"+":     "add",
	"-":     "sub",
	"*":     "mul",
	"/":     "div",
	"^":     "pow",
}

// Normalize maps an operation token onto its canonical name.
//
// The token is trimmed, NFKC normalized and case folded before alias
// resolution, so "POW", "Power" and "ｐｏｗ" all resolve to "pow".
// Returns false if the token names no catalogued operation.
func Normalize(name string) (string, bool) {
	// Caser is stateful, one per call.
	key := cases.Fold().String(norm.NFKC.String(strings.TrimSpace(name)))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	if _, ok := byName[key]; !ok {
		return "", false
	}
	return key, true
}

// Aliases returns the alternate names that resolve to canonical, sorted.
func Aliases(canonical string) []string {
	var out []string
	for alias, target := range aliases {
		if target == canonical {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}
