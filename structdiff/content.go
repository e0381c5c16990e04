package structdiff

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/pagediff/models"
)

// maxTextLength truncates recorded before/after text values.
const maxTextLength = 200

// Selectors lists the element groups sampled by the content diff.
// Process-wide read-only once built; DefaultSelectors precompiles the
// standard set.
type Selectors struct {
	// Text selectors are compared positionally up to MaxPerSelector
	// matches each (headings, buttons, labels).
	Text []CompiledSelector

	// NavLinks are compared positionally in full.
	NavLinks CompiledSelector

	// Images are compared positionally by src/data-src and alt.
	Images CompiledSelector

	// Anchors are compared positionally by href, skipping pairs where
	// both sides are same-page fragment anchors.
	Anchors CompiledSelector
}

// CompiledSelector pairs a selector's display label with its compiled
// matcher.
type CompiledSelector struct {
	Label   string
	Matcher cascadia.Selector
}

// MustSelector compiles a CSS selector for use in a Selectors table,
// panicking on invalid input. Intended for static configuration only.
func MustSelector(label, css string) CompiledSelector {
	return CompiledSelector{Label: label, Matcher: cascadia.MustCompile(css)}
}

// DefaultSelectors returns the standard sampled element groups.
func DefaultSelectors() Selectors {
	return Selectors{
		Text: []CompiledSelector{
			MustSelector("h1", "h1"),
			MustSelector("h2", "h2"),
			MustSelector("h3", "h3"),
			MustSelector("h4", "h4"),
			MustSelector("button", "button"),
			MustSelector("label", "label"),
		},
		NavLinks: MustSelector("nav link", "nav a"),
		Images:   MustSelector("img", "img"),
		Anchors:  MustSelector("link", "a[href]"),
	}
}

// diffContent compares visible content between positionally matched
// elements. Matching is strictly by ordinal position within each
// selector's matches: the n-th element in document 1 against the n-th
// in document 2, never by content similarity.
func diffContent(doc1, doc2 *goquery.Document, sels Selectors, limits Limits) []models.ContentChange {
	var changes []models.ContentChange
	full := func() bool { return len(changes) >= limits.MaxContentChanges }

	// Text elements: first MaxPerSelector matches per selector.
	for _, sel := range sels.Text {
		if full() {
			break
		}
		m1 := doc1.FindMatcher(sel.Matcher)
		m2 := doc2.FindMatcher(sel.Matcher)
		n := minInt(m1.Length(), m2.Length(), limits.MaxPerSelector)

		for i := 0; i < n && !full(); i++ {
			t1 := collapseText(m1.Eq(i).Text())
			t2 := collapseText(m2.Eq(i).Text())
			if t1 == "" || t2 == "" || t1 == t2 {
				continue
			}
			changes = append(changes, models.ContentChange{
				Kind:     "text",
				Location: fmt.Sprintf("%s #%d", sel.Label, i+1),
				Before:   t1,
				After:    t2,
			})
		}
	}

	// Nav links: positional, in full.
	nav1 := doc1.FindMatcher(sels.NavLinks.Matcher)
	nav2 := doc2.FindMatcher(sels.NavLinks.Matcher)
	for i := 0; i < minInt(nav1.Length(), nav2.Length()) && !full(); i++ {
		t1 := collapseText(nav1.Eq(i).Text())
		t2 := collapseText(nav2.Eq(i).Text())
		if t1 == "" || t2 == "" || t1 == t2 {
			continue
		}
		changes = append(changes, models.ContentChange{
			Kind:     "link",
			Location: fmt.Sprintf("%s #%d", sels.NavLinks.Label, i+1),
			Before:   t1,
			After:    t2,
		})
	}

	// Images: positional by src/data-src, then alt.
	img1 := doc1.FindMatcher(sels.Images.Matcher)
	img2 := doc2.FindMatcher(sels.Images.Matcher)
	for i := 0; i < minInt(img1.Length(), img2.Length()) && !full(); i++ {
		src1 := imageSource(img1.Eq(i))
		src2 := imageSource(img2.Eq(i))
		if src1 != src2 {
			changes = append(changes, models.ContentChange{
				Kind:     "image",
				Location: fmt.Sprintf("%s #%d", sels.Images.Label, i+1),
				Before:   truncate(src1),
				After:    truncate(src2),
			})
			continue
		}
		alt1, _ := img1.Eq(i).Attr("alt")
		alt2, _ := img2.Eq(i).Attr("alt")
		if alt1 != alt2 {
			changes = append(changes, models.ContentChange{
				Kind:     "image",
				Location: fmt.Sprintf("%s alt #%d", sels.Images.Label, i+1),
				Before:   truncate(collapseText(alt1)),
				After:    truncate(collapseText(alt2)),
			})
		}
	}

	// Anchors: positional by href, skipping same-page fragment pairs.
	a1 := doc1.FindMatcher(sels.Anchors.Matcher)
	a2 := doc2.FindMatcher(sels.Anchors.Matcher)
	for i := 0; i < minInt(a1.Length(), a2.Length()) && !full(); i++ {
		href1, _ := a1.Eq(i).Attr("href")
		href2, _ := a2.Eq(i).Attr("href")
		if href1 == href2 {
			continue
		}
		if strings.HasPrefix(href1, "#") && strings.HasPrefix(href2, "#") {
			continue
		}
		changes = append(changes, models.ContentChange{
			Kind:     "link",
			Location: fmt.Sprintf("%s #%d", sels.Anchors.Label, i+1),
			Before:   truncate(href1),
			After:    truncate(href2),
		})
	}

	return changes
}

// imageSource prefers src, falling back to data-src for lazy loaders.
func imageSource(s *goquery.Selection) string {
	if src, ok := s.Attr("src"); ok && src != "" {
		return src
	}
	src, _ := s.Attr("data-src")
	return src
}

// collapseText trims and collapses whitespace runs, then truncates.
func collapseText(s string) string {
	return truncate(strings.Join(strings.Fields(s), " "))
}

func truncate(s string) string {
	if len(s) <= maxTextLength {
		return s
	}
	// Cut on a rune boundary.
	cut := maxTextLength
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
