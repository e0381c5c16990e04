package structdiff

import (
	"strings"
	"testing"
)

func analyzeContent(t *testing.T, html1, html2 string, limits Limits) []contentChangeView {
	t.Helper()
	analysis := Analyze(html1, html2, nil, nil, limits)
	views := make([]contentChangeView, 0, len(analysis.ContentChanges))
	for _, c := range analysis.ContentChanges {
		views = append(views, contentChangeView{c.Kind, c.Location, c.Before, c.After})
	}
	return views
}

type contentChangeView struct {
	kind, location, before, after string
}

func TestDiffContent_HeadingText(t *testing.T) {
	html1 := `<h2>First</h2><h2>  Second   heading </h2><h2>Third</h2>`
	html2 := `<h2>First</h2><h2>Second heading rewritten</h2><h2>Third</h2>`

	changes := analyzeContent(t, html1, html2, Limits{})
	if len(changes) != 1 {
		t.Fatalf("expected 1 content change, got %d: %+v", len(changes), changes)
	}
	got := changes[0]
	want := contentChangeView{"text", "h2 #2", "Second heading", "Second heading rewritten"}
	if got != want {
		t.Errorf("change = %+v, want %+v", got, want)
	}
}

func TestDiffContent_PositionalMatchingIgnoresSimilarity(t *testing.T) {
	// Document 2 inserts a heading at the front: every later heading
	// shifts position, so the diff pairs unrelated headings rather than
	// re-matching by content.
	html1 := `<h2>Alpha</h2><h2>Beta</h2>`
	html2 := `<h2>Banner</h2><h2>Alpha</h2><h2>Beta</h2>`

	changes := analyzeContent(t, html1, html2, Limits{})
	if len(changes) != 2 {
		t.Fatalf("expected 2 positional changes, got %d: %+v", len(changes), changes)
	}
	if changes[0].before != "Alpha" || changes[0].after != "Banner" {
		t.Errorf("first pair = %+v", changes[0])
	}
}

func TestDiffContent_EmptyTextSkipped(t *testing.T) {
	html1 := `<h2>Kept</h2><h2></h2>`
	html2 := `<h2>Kept</h2><h2>Now filled</h2>`

	changes := analyzeContent(t, html1, html2, Limits{})
	if len(changes) != 0 {
		t.Errorf("either-side-empty text must be skipped, got %+v", changes)
	}
}

func TestDiffContent_NavLinks(t *testing.T) {
	html1 := `<nav><a href="/a">Home</a><a href="/b">Shop</a></nav>`
	html2 := `<nav><a href="/a">Home</a><a href="/b">Store</a></nav>`

	changes := analyzeContent(t, html1, html2, Limits{})
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	got := changes[0]
	if got.kind != "link" || got.location != "nav link #2" || got.before != "Shop" || got.after != "Store" {
		t.Errorf("nav change = %+v", got)
	}
}

func TestDiffContent_Images(t *testing.T) {
	tests := []struct {
		name         string
		html1, html2 string
		wantLocation string
		wantBefore   string
		wantAfter    string
	}{
		{
			name:         "src change",
			html1:        `<img src="/old.png" alt="logo">`,
			html2:        `<img src="/new.png" alt="logo">`,
			wantLocation: "img #1",
			wantBefore:   "/old.png",
			wantAfter:    "/new.png",
		},
		{
			name:         "alt change when src matches",
			html1:        `<img src="/a.png" alt="before">`,
			html2:        `<img src="/a.png" alt="after">`,
			wantLocation: "img alt #1",
			wantBefore:   "before",
			wantAfter:    "after",
		},
		{
			name:         "data-src fallback for lazy loaders",
			html1:        `<img data-src="/lazy-old.png">`,
			html2:        `<img data-src="/lazy-new.png">`,
			wantLocation: "img #1",
			wantBefore:   "/lazy-old.png",
			wantAfter:    "/lazy-new.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := analyzeContent(t, tt.html1, tt.html2, Limits{})
			if len(changes) != 1 {
				t.Fatalf("expected 1 change, got %+v", changes)
			}
			got := changes[0]
			if got.kind != "image" || got.location != tt.wantLocation ||
				got.before != tt.wantBefore || got.after != tt.wantAfter {
				t.Errorf("change = %+v", got)
			}
		})
	}
}

func TestDiffContent_AnchorsSkipFragmentPairs(t *testing.T) {
	html1 := `<a href="#top">Up</a><a href="/pricing">Pricing</a>`
	html2 := `<a href="#bottom">Up</a><a href="/plans">Pricing</a>`

	changes := analyzeContent(t, html1, html2, Limits{})
	if len(changes) != 1 {
		t.Fatalf("fragment-to-fragment pair must be skipped, got %+v", changes)
	}
	got := changes[0]
	if got.kind != "link" || got.location != "link #2" || got.before != "/pricing" || got.after != "/plans" {
		t.Errorf("anchor change = %+v", got)
	}
}

func TestDiffContent_PerSelectorCap(t *testing.T) {
	var sb1, sb2 strings.Builder
	for i := 0; i < 30; i++ {
		sb1.WriteString("<h3>old</h3>")
		sb2.WriteString("<h3>new</h3>")
	}

	changes := analyzeContent(t, sb1.String(), sb2.String(), Limits{MaxPerSelector: 20})
	if len(changes) != 20 {
		t.Errorf("expected per-selector cap of 20, got %d", len(changes))
	}
}

func TestDiffContent_TotalCap(t *testing.T) {
	var sb1, sb2 strings.Builder
	for i := 0; i < 10; i++ {
		sb1.WriteString("<h1>old</h1><h2>old</h2><h3>old</h3><h4>old</h4>")
		sb2.WriteString("<h1>new</h1><h2>new</h2><h3>new</h3><h4>new</h4>")
	}

	changes := analyzeContent(t, sb1.String(), sb2.String(), Limits{MaxContentChanges: 25})
	if len(changes) != 25 {
		t.Errorf("expected total cap of 25, got %d", len(changes))
	}
}

func TestDiffContent_TruncatesLongText(t *testing.T) {
	long1 := strings.Repeat("a", 400)
	long2 := strings.Repeat("b", 400)
	changes := analyzeContent(t, "<h1>"+long1+"</h1>", "<h1>"+long2+"</h1>", Limits{})
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	if len(changes[0].before) != maxTextLength || len(changes[0].after) != maxTextLength {
		t.Errorf("lengths = %d/%d, want %d", len(changes[0].before), len(changes[0].after), maxTextLength)
	}
}

func TestAnalyze_AddedBannerScenario(t *testing.T) {
	html1 := `<body><main><h2>Features</h2><p>copy</p></main></body>`
	html2 := `<body><div class="banner">Sale!</div><main><h2>Features</h2><p>copy</p></main></body>`

	analysis := Analyze(html1, html2, nil, nil, Limits{})

	if want := []string{".banner"}; !sameStrings(analysis.AddedSelectors, want) {
		t.Errorf("added selectors = %v, want %v", analysis.AddedSelectors, want)
	}
	// The heading text is unchanged and positions line up, so no
	// content change is recorded for it.
	for _, c := range analysis.ContentChanges {
		if c.Kind == "text" {
			t.Errorf("unexpected text change: %+v", c)
		}
	}
	if !analysis.HasChanges() {
		t.Error("added banner must register as a change")
	}
}
