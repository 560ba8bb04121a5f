package expand

import (
	"regexp"
	"strings"
)

var importQualifier = regexp.MustCompile(`import\("[^"]*"\)\.`)

// Sanitize strips the import("..."). qualifications a type printer injects
// for names declared outside the use site's module. Already-clean text is
// returned unchanged.
func Sanitize(text string) string {
	if !strings.Contains(text, "import(") {
		return text
	}
	return importQualifier.ReplaceAllString(text, "")
}

// HasTopLevelOperator reports whether text contains a | or & outside of
// any bracket pair or string literal.
func HasTopLevelOperator(text string) bool {
	op, _ := scanTopLevel(text)
	return op
}

// needsArrayParens reports whether text must be parenthesized before a []
// suffix. Function types count as well as | and &.
func needsArrayParens(text string) bool {
	op, arrow := scanTopLevel(text)
	return op || arrow
}

func scanTopLevel(text string) (op, arrow bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			switch ch {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
		case '=':
			if i+1 < len(text) && text[i+1] == '>' {
				if depth == 0 {
					arrow = true
				}
				i++
			}
		case '|', '&':
			if depth == 0 {
				op = true
			}
		}
	}
	return op, arrow
}

// joinUnique joins parts with " | ", dropping exact repeats and keeping the
// first occurrence's position.
func joinUnique(parts []string) string {
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, " | ")
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// FormatPropKey returns key unchanged when it is a valid identifier and
// single-quoted otherwise.
func FormatPropKey(key string) string {
	if identifier.MatchString(key) {
		return key
	}
	return "'" + strings.ReplaceAll(key, "'", `\'`) + "'"
}
