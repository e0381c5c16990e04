package cssdiff

import (
	"regexp"
	"strings"

	"github.com/use-agent/pagediff/models"
)

// AllowedProperties is the fixed set of visually significant CSS
// properties retained in class style maps. Noisy inherited text
// properties and sizes that are usually layout-computed (width, height)
// are intentionally absent. Process-wide read-only.
var AllowedProperties = map[string]struct{}{
	"color":            {},
	"background":       {},
	"background-color": {},
	"background-image": {},
	"font-size":        {},
	"font-weight":      {},
	"font-style":       {},
	"display":          {},
	"position":         {},
	"top":              {},
	"right":            {},
	"bottom":           {},
	"left":             {},
	"float":            {},
	"margin":           {},
	"margin-top":       {},
	"margin-right":     {},
	"margin-bottom":    {},
	"margin-left":      {},
	"padding":          {},
	"padding-top":      {},
	"padding-right":    {},
	"padding-bottom":   {},
	"padding-left":     {},
	"border":           {},
	"border-top":       {},
	"border-right":     {},
	"border-bottom":    {},
	"border-left":      {},
	"border-color":     {},
	"border-width":     {},
	"border-style":     {},
	"border-radius":    {},
	"box-shadow":       {},
	"text-shadow":      {},
	"text-decoration":  {},
	"text-transform":   {},
	"text-align":       {},
	"opacity":          {},
	"visibility":       {},
	"overflow":         {},
	"z-index":          {},
	"flex":             {},
	"flex-direction":   {},
	"flex-wrap":        {},
	"justify-content":  {},
	"align-items":      {},
	"align-self":       {},
	"gap":              {},

	"grid-template-columns": {},
	"grid-template-rows":    {},
}

// bareClassRe matches a selector that is exactly one class reference:
// a dot followed by word characters/hyphens and nothing else. Compound,
// descendant, pseudo and attribute selectors never match.
var bareClassRe = regexp.MustCompile(`^\.[\w-]+$`)

// ExtractClassStyles builds the class → property → value map for one
// document's stylesheet text, using the default property allow-list.
func ExtractClassStyles(css string) models.ClassStyleMap {
	return ExtractClassStylesWith(css, AllowedProperties)
}

// ExtractClassStylesWith is ExtractClassStyles with a caller-supplied
// property allow-list.
//
// Only bare single-class selectors contribute. Values pass through the
// custom-property resolver. When the same class declares the same
// property more than once, the last declaration in stylesheet order
// wins. Specificity, cascade origin and !important are ignored, so the
// recorded value can differ from what a browser would compute when a
// more specific selector also sets the property. Known trade-off of
// the class-level diff.
func ExtractClassStylesWith(css string, allowed map[string]struct{}) models.ClassStyleMap {
	vars := ParseCustomProperties(css)
	styles := make(models.ClassStyleMap)

	for _, rule := range WalkRules(css) {
		for _, segment := range strings.Split(rule.Selector, ",") {
			segment = strings.TrimSpace(segment)
			if !bareClassRe.MatchString(segment) {
				continue
			}
			class := segment[1:]

			for _, decl := range Declarations(rule.Body) {
				prop := strings.ToLower(decl[0])
				if _, ok := allowed[prop]; !ok {
					continue
				}
				if styles[class] == nil {
					styles[class] = make(map[string]string)
				}
				styles[class][prop] = ResolveVar(decl[1], vars)
			}
		}
	}
	return styles
}
