package cssdiff

import "strings"

// ParseCustomProperties builds the document's custom-property table from
// `--name` declarations inside `:root`-scoped rules. Selector lists are
// split on commas; any segment trimming to exactly ":root" qualifies.
func ParseCustomProperties(css string) map[string]string {
	table := make(map[string]string)
	for _, rule := range WalkRules(css) {
		if !selectorListHasRoot(rule.Selector) {
			continue
		}
		for _, decl := range Declarations(rule.Body) {
			if strings.HasPrefix(decl[0], "--") {
				table[decl[0]] = decl[1]
			}
		}
	}
	return table
}

func selectorListHasRoot(selector string) bool {
	for _, segment := range strings.Split(selector, ",") {
		if strings.TrimSpace(segment) == ":root" {
			return true
		}
	}
	return false
}

// ResolveVar substitutes var(--name) and var(--name, fallback) references
// in a declaration value. This is a single pass: a variable whose value
// itself contains var() is not resolved further. Lookup order per
// reference: the table, then the literal fallback text, then the
// original var(...) text left as-is.
func ResolveVar(value string, table map[string]string) string {
	idx := strings.Index(value, "var(")
	if idx < 0 {
		return value
	}

	var sb strings.Builder
	i := 0
	for {
		rel := strings.Index(value[i:], "var(")
		if rel < 0 {
			sb.WriteString(value[i:])
			return sb.String()
		}
		start := i + rel
		sb.WriteString(value[i:start])

		end := matchingParen(value, start+3)
		if end < 0 {
			// Unterminated reference: keep the tail verbatim.
			sb.WriteString(value[start:])
			return sb.String()
		}

		inner := value[start+4 : end]
		name, fallback, hasFallback := splitVarArgs(inner)

		if resolved, ok := table[name]; ok {
			sb.WriteString(resolved)
		} else if hasFallback {
			sb.WriteString(fallback)
		} else {
			sb.WriteString(value[start : end+1])
		}
		i = end + 1
	}
}

// matchingParen returns the index of the ')' closing the '(' at open.
func matchingParen(s string, open int) int {
	depth := 0
	for j := open; j < len(s); j++ {
		switch s[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// splitVarArgs splits "var()" arguments on the first top-level comma, so
// fallbacks containing commas (e.g. rgba(0, 0, 0, 0.5)) stay intact.
func splitVarArgs(inner string) (name, fallback string, hasFallback bool) {
	depth := 0
	for j := 0; j < len(inner); j++ {
		switch inner[j] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(inner[:j]), strings.TrimSpace(inner[j+1:]), true
			}
		}
	}
	return strings.TrimSpace(inner), "", false
}
