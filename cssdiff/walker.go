package cssdiff

import "strings"

// Rule is one (selector, declaration body) pair yielded by the walker.
// For rules nested inside grouping at-rules (@media, @supports, @layer)
// the selector is the inner rule's selector; the at-rule prelude itself
// is never yielded.
type Rule struct {
	Selector string
	Body     string
}

// WalkRules tokenizes raw CSS text into a flat list of rules. Grouping
// at-rule bodies are recursively re-walked, so a rule declared at any
// nesting depth comes out identical to an unconditioned one. Malformed
// CSS (unmatched braces) stops the walk at the point of failure; the
// rules found so far are returned. Third-party stylesheets are arbitrary
// text, so partial results are expected, never an error.
func WalkRules(css string) []Rule {
	var rules []Rule
	walk(stripComments(css), &rules)
	return rules
}

func walk(css string, out *[]Rule) {
	i := 0
	for {
		rel := strings.IndexByte(css[i:], '{')
		if rel < 0 {
			return
		}
		open := i + rel
		closeIdx := matchingBrace(css, open)
		if closeIdx < 0 {
			// Unbalanced: stop rather than guess.
			return
		}

		pre := css[i:open]
		if semi := strings.LastIndexByte(pre, ';'); semi >= 0 {
			// Statement at-rules (@charset, @import, @layer a, b;) end
			// at a semicolon without a block. Only the text after the
			// last one belongs to the upcoming rule's selector.
			pre = pre[semi+1:]
		}
		selector := strings.TrimSpace(pre)
		body := css[open+1 : closeIdx]

		if strings.HasPrefix(selector, "@") {
			// Conditional/grouping rule: the body is itself a rule list.
			// Non-grouping at-rules (@font-face etc.) simply yield no
			// nested rules and drop out here.
			walk(body, out)
		} else if selector != "" {
			*out = append(*out, Rule{Selector: selector, Body: body})
		}

		i = closeIdx + 1
	}
}

// matchingBrace returns the index of the '}' closing the '{' at open,
// tracking nesting with a plain counter (CSS blocks don't nest quoted
// braces in the properties this tool reads). Returns -1 when unmatched.
func matchingBrace(s string, open int) int {
	depth := 0
	for j := open; j < len(s); j++ {
		switch s[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// stripComments removes /* ... */ block comments. An unterminated
// comment swallows the rest of the input, matching browser behavior.
func stripComments(css string) string {
	if !strings.Contains(css, "/*") {
		return css
	}
	var sb strings.Builder
	sb.Grow(len(css))
	i := 0
	for {
		start := strings.Index(css[i:], "/*")
		if start < 0 {
			sb.WriteString(css[i:])
			return sb.String()
		}
		sb.WriteString(css[i : i+start])
		end := strings.Index(css[i+start+2:], "*/")
		if end < 0 {
			return sb.String()
		}
		i = i + start + 2 + end + 2
	}
}

// Declarations splits a rule body into (property, value) pairs.
// Entries without a colon are skipped; names and values are trimmed.
func Declarations(body string) [][2]string {
	var decls [][2]string
	for _, part := range strings.Split(body, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.IndexByte(part, ':')
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(part[:idx])
		value := strings.TrimSpace(part[idx+1:])
		if name == "" || value == "" {
			continue
		}
		decls = append(decls, [2]string{name, value})
	}
	return decls
}
