package expand

import (
	"strings"

	"github.com/yourorg/routegen/internal/checker"
)

var arrayFamily = map[string]struct{}{
	"Array":         {},
	"ReadonlyArray": {},
	"ArrayLike":     {},
}

var arrayTextPrefixes = []string{"Array<", "ReadonlyArray<", "ArrayLike<"}

// arrayCheck is one row of the array-like decision table. The structural
// type system has no uniform array tag, so detection walks the rows in
// order and stops at the first match.
type arrayCheck struct {
	name  string
	match func(t checker.Type, text string) bool
}

var arrayChecks = []arrayCheck{
	{name: "native", match: matchNativeArray},
	{name: "name", match: matchArrayName},
	{name: "text", match: matchArrayText},
	{name: "structure", match: matchArrayStructure},
}

// arrayLike reports the first check that classifies t as array-like.
func arrayLike(t checker.Type, text string) (string, bool) {
	for _, p := range arrayChecks {
		if p.match(t, text) {
			return p.name, true
		}
	}
	return "", false
}

func matchNativeArray(t checker.Type, _ string) bool {
	return t.IsArray() || t.IsReadonlyArray() || t.IsTuple()
}

func matchArrayName(t checker.Type, _ string) bool {
	for _, s := range []checker.Symbol{t.AliasSymbol(), t.Symbol(), t.TargetSymbol()} {
		if _, ok := arrayFamily[checker.NameOf(s)]; ok {
			return true
		}
	}
	return false
}

// composite types render with their members' text, so a union ending in
// T[] must not be mistaken for an array.
func composite(t checker.Type) bool {
	return t.Flags().Has(checker.Union | checker.Intersection)
}

func matchArrayText(t checker.Type, text string) bool {
	if composite(t) {
		return false
	}
	if strings.HasSuffix(text, "[]") {
		return true
	}
	for _, prefix := range arrayTextPrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func matchArrayStructure(t checker.Type, _ string) bool {
	if composite(t) {
		return false
	}
	props := t.Properties()
	if len(props) == 0 {
		return false
	}
	names := make(map[string]struct{}, len(props))
	for _, p := range props {
		names[p.Name()] = struct{}{}
	}
	has := func(n string) bool {
		_, ok := names[n]
		return ok
	}
	if !has("length") {
		return false
	}
	return (has("push") && has("pop")) ||
		(has("map") && has("filter")) ||
		(has("concat") && has("slice"))
}
