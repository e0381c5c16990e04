package structdiff

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/pagediff/models"
)

// notDeclared stands in for a property a side never declares, so every
// PropertyChange always carries a printable before and after.
const notDeclared = "(not declared)"

// singletonTags are semantic elements that appear at most once per page
// in practice, usable as element identities when no id is present.
var singletonTags = []string{"nav", "header", "footer", "main", "aside"}

// Limits caps the result lists so pathologically large pages produce
// bounded output. Zero values fall back to the defaults.
type Limits struct {
	MaxClassChanges   int // class-level style changes (default 60)
	MaxElementChanges int // element class-attribute changes (default 40)
	MaxContentChanges int // visible-content changes (default 50)
	MaxSelectorDiffs  int // added/removed selectors, each (default 50)
	MaxPerSelector    int // positional matches compared per selector (default 20)
}

// DefaultLimits returns the standard result caps.
func DefaultLimits() Limits {
	return Limits{
		MaxClassChanges:   60,
		MaxElementChanges: 40,
		MaxContentChanges: 50,
		MaxSelectorDiffs:  50,
		MaxPerSelector:    20,
	}
}

func (l Limits) normalized() Limits {
	def := DefaultLimits()
	if l.MaxClassChanges <= 0 {
		l.MaxClassChanges = def.MaxClassChanges
	}
	if l.MaxElementChanges <= 0 {
		l.MaxElementChanges = def.MaxElementChanges
	}
	if l.MaxContentChanges <= 0 {
		l.MaxContentChanges = def.MaxContentChanges
	}
	if l.MaxSelectorDiffs <= 0 {
		l.MaxSelectorDiffs = def.MaxSelectorDiffs
	}
	if l.MaxPerSelector <= 0 {
		l.MaxPerSelector = def.MaxPerSelector
	}
	return l
}

// Analyze compares two (HTML, class-style-map) pairs and produces the
// full structural fact set for one viewport. Pure batch comparison: no
// state survives between calls, and malformed input degrades to empty
// results rather than failing.
func Analyze(html1, html2 string, styles1, styles2 models.ClassStyleMap, limits Limits) *models.StructuralAnalysis {
	limits = limits.normalized()

	doc1 := parseDocument(html1)
	doc2 := parseDocument(html2)

	analysis := &models.StructuralAnalysis{
		ClassChanges:   diffClassStyles(styles1, styles2, doc1, doc2, limits.MaxClassChanges),
		ElementChanges: diffElementClasses(doc1, doc2, limits.MaxElementChanges),
		ContentChanges: diffContent(doc1, doc2, DefaultSelectors(), limits),
	}

	analysis.AddedSelectors, analysis.RemovedSelectors =
		diffSelectorSets(doc1, doc2, limits.MaxSelectorDiffs)

	analysis.HTMLDiff, analysis.ChangedLines = unifiedHTMLDiff(html1, html2)
	analysis.FingerprintDistance = Distance(Fingerprint(html1), Fingerprint(html2))

	return analysis
}

// parseDocument builds a read-only document tree from raw HTML. Parse
// failures yield an empty document so every query degrades to no matches.
func parseDocument(rawHTML string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

// diffClassStyles compares the two class style maps, attaching per-document
// element counts, ordered by descending total element impact.
func diffClassStyles(styles1, styles2 models.ClassStyleMap, doc1, doc2 *goquery.Document, limit int) []models.CssClassChange {
	counts1 := countByClass(doc1)
	counts2 := countByClass(doc2)

	classes := make(map[string]struct{}, len(styles1)+len(styles2))
	for class := range styles1 {
		classes[class] = struct{}{}
	}
	for class := range styles2 {
		classes[class] = struct{}{}
	}

	var changes []models.CssClassChange
	for class := range classes {
		props1, in1 := styles1[class]
		props2, in2 := styles2[class]

		var change models.CssClassChange
		switch {
		case in1 && !in2:
			change = models.CssClassChange{
				Class:      class,
				Kind:       models.ChangeRemoved,
				Properties: oneSidedProperties(props1, true),
			}
		case !in1 && in2:
			change = models.CssClassChange{
				Class:      class,
				Kind:       models.ChangeAdded,
				Properties: oneSidedProperties(props2, false),
			}
		default:
			diffs := diffProperties(props1, props2)
			if len(diffs) == 0 {
				continue
			}
			change = models.CssClassChange{
				Class:      class,
				Kind:       models.ChangeChanged,
				Properties: diffs,
			}
		}

		change.Count1 = counts1[class]
		change.Count2 = counts2[class]
		changes = append(changes, change)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		a := changes[i].Count1 + changes[i].Count2
		b := changes[j].Count1 + changes[j].Count2
		if a != b {
			return a > b
		}
		return changes[i].Class < changes[j].Class
	})

	if len(changes) > limit {
		changes = changes[:limit]
	}
	return changes
}

// oneSidedProperties renders all of one side's properties against the
// not-declared placeholder, sorted for stable output.
func oneSidedProperties(props map[string]string, removed bool) []models.PropertyChange {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	changes := make([]models.PropertyChange, 0, len(names))
	for _, name := range names {
		pc := models.PropertyChange{Property: name, Before: notDeclared, After: props[name]}
		if removed {
			pc.Before, pc.After = props[name], notDeclared
		}
		changes = append(changes, pc)
	}
	return changes
}

// diffProperties unions both sides' property sets and keeps the pairs
// whose resolved values differ.
func diffProperties(props1, props2 map[string]string) []models.PropertyChange {
	names := make(map[string]struct{}, len(props1)+len(props2))
	for name := range props1 {
		names[name] = struct{}{}
	}
	for name := range props2 {
		names[name] = struct{}{}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var diffs []models.PropertyChange
	for _, name := range sorted {
		before, in1 := props1[name]
		after, in2 := props2[name]
		if !in1 {
			before = notDeclared
		}
		if !in2 {
			after = notDeclared
		}
		if before != after {
			diffs = append(diffs, models.PropertyChange{Property: name, Before: before, After: after})
		}
	}
	return diffs
}

// countByClass counts, per class token, how many elements in the document
// carry that class.
func countByClass(doc *goquery.Document) map[string]int {
	counts := make(map[string]int)
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		attr, _ := s.Attr("class")
		seen := make(map[string]struct{})
		for _, token := range strings.Fields(attr) {
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			counts[token]++
		}
	})
	return counts
}

// diffElementClasses matches elements across documents by identity (id
// attribute first, then singleton semantic tags) and reports class
// attribute deltas. Each identity is compared at most once.
func diffElementClasses(doc1, doc2 *goquery.Document, limit int) []models.ElementClassChange {
	var changes []models.ElementClassChange
	seen := make(map[string]struct{})

	compare := func(identity string, sel1, sel2 *goquery.Selection) {
		if _, dup := seen[identity]; dup {
			return
		}
		seen[identity] = struct{}{}

		classes1 := classList(sel1)
		classes2 := classList(sel2)
		added, removed := symmetricDiff(classes1, classes2)
		if len(added) == 0 && len(removed) == 0 {
			return
		}
		changes = append(changes, models.ElementClassChange{
			Identity: identity,
			Classes1: classes1,
			Classes2: classes2,
			Added:    added,
			Removed:  removed,
		})
	}

	// Identity by id: first occurrence in document 1 wins.
	doc1.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(changes) >= limit {
			return false
		}
		id, _ := s.Attr("id")
		if id == "" {
			return true
		}
		match := doc2.Find("[id]").FilterFunction(func(_ int, m *goquery.Selection) bool {
			mid, _ := m.Attr("id")
			return mid == id
		}).First()
		if match.Length() == 0 {
			return true
		}
		compare("#"+id, s.First(), match)
		return true
	})

	// Identity by singleton semantic tag, unless the tag's first
	// occurrence was already matched through its id.
	for _, tag := range singletonTags {
		if len(changes) >= limit {
			break
		}
		el1 := doc1.Find(tag).First()
		el2 := doc2.Find(tag).First()
		if el1.Length() == 0 || el2.Length() == 0 {
			continue
		}
		if id, ok := el1.Attr("id"); ok && id != "" {
			if _, matched := seen["#"+id]; matched {
				continue
			}
		}
		compare(tag, el1, el2)
	}

	if len(changes) > limit {
		changes = changes[:limit]
	}
	return changes
}

// classList returns the element's class tokens in attribute order.
func classList(s *goquery.Selection) []string {
	attr, _ := s.Attr("class")
	return strings.Fields(attr)
}

// symmetricDiff returns the tokens only in b (added) and only in a (removed).
func symmetricDiff(a, b []string) (added, removed []string) {
	inA := make(map[string]struct{}, len(a))
	for _, t := range a {
		inA[t] = struct{}{}
	}
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}
	return missingFrom(b, inA), missingFrom(a, inB)
}

// missingFrom returns the tokens absent from other, each at most once,
// in first-occurrence order. Class attributes can repeat a token
// ("x x"), so the input slices are not sets.
func missingFrom(tokens []string, other map[string]struct{}) []string {
	var out []string
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := other[t]; ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// diffSelectorSets collects every ".class" selector appearing in each
// document's class attributes and reports the set difference both ways.
func diffSelectorSets(doc1, doc2 *goquery.Document, limit int) (added, removed []string) {
	set1 := classSelectorSet(doc1)
	set2 := classSelectorSet(doc2)

	for sel := range set2 {
		if _, ok := set1[sel]; !ok {
			added = append(added, sel)
		}
	}
	for sel := range set1 {
		if _, ok := set2[sel]; !ok {
			removed = append(removed, sel)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	if len(added) > limit {
		added = added[:limit]
	}
	if len(removed) > limit {
		removed = removed[:limit]
	}
	return added, removed
}

func classSelectorSet(doc *goquery.Document) map[string]struct{} {
	set := make(map[string]struct{})
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		attr, _ := s.Attr("class")
		for _, token := range strings.Fields(attr) {
			set["."+token] = struct{}{}
		}
	})
	return set
}
