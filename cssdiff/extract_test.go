package cssdiff

import "testing"

func TestExtractClassStyles_BareClassOnly(t *testing.T) {
	css := `
		.btn { color: red; }
		.card .btn { color: blue; }
		div.btn { color: green; }
		.btn:hover { color: yellow; }
		.btn[disabled] { color: gray; }
		#btn { color: purple; }
	`
	styles := ExtractClassStyles(css)

	if len(styles) != 1 {
		t.Fatalf("expected only .btn to qualify, got %d classes: %v", len(styles), styles)
	}
	if got := styles["btn"]["color"]; got != "red" {
		t.Errorf("btn.color = %q, want red (bare selector only)", got)
	}
}

func TestExtractClassStyles_MediaNestingTransparent(t *testing.T) {
	plain := ExtractClassStyles(`.x { color: red }`)
	nested := ExtractClassStyles(`@media (max-width: 600px) { .x { color: red } }`)

	if plain["x"]["color"] != nested["x"]["color"] {
		t.Errorf("nesting changed extraction: plain=%q nested=%q",
			plain["x"]["color"], nested["x"]["color"])
	}
}

func TestExtractClassStyles_AllowListFiltering(t *testing.T) {
	css := `.x { color: red; letter-spacing: 2px; width: 300px; cursor: pointer; opacity: 0.9 }`
	styles := ExtractClassStyles(css)

	if _, ok := styles["x"]["color"]; !ok {
		t.Error("allow-listed property color missing")
	}
	if _, ok := styles["x"]["opacity"]; !ok {
		t.Error("allow-listed property opacity missing")
	}
	for _, noisy := range []string{"letter-spacing", "width", "cursor"} {
		if _, ok := styles["x"][noisy]; ok {
			t.Errorf("non-allow-listed property %q retained", noisy)
		}
	}
}

func TestExtractClassStyles_CustomPropertyResolution(t *testing.T) {
	css := `
		:root { --c: blue; }
		.x { color: var(--c); }
		.y { color: var(--missing, green); }
		.z { color: var(--missing); }
	`
	styles := ExtractClassStyles(css)

	if got := styles["x"]["color"]; got != "blue" {
		t.Errorf("x.color = %q, want blue", got)
	}
	if got := styles["y"]["color"]; got != "green" {
		t.Errorf("y.color = %q, want fallback green", got)
	}
	if got := styles["z"]["color"]; got != "var(--missing)" {
		t.Errorf("z.color = %q, want literal var(--missing)", got)
	}
}

func TestExtractClassStyles_LastDeclarationWins(t *testing.T) {
	css := `
		.x { color: red; }
		@media screen { .x { color: orange; } }
		.x { color: blue; margin: 4px; }
	`
	styles := ExtractClassStyles(css)

	if got := styles["x"]["color"]; got != "blue" {
		t.Errorf("x.color = %q, want blue (last declared wins)", got)
	}
	if got := styles["x"]["margin"]; got != "4px" {
		t.Errorf("x.margin = %q, want 4px", got)
	}
}

func TestExtractClassStyles_SelectorLists(t *testing.T) {
	css := `.a, .b, .c .d { color: red }`
	styles := ExtractClassStyles(css)

	for _, class := range []string{"a", "b"} {
		if styles[class]["color"] != "red" {
			t.Errorf("%s.color missing from selector list extraction", class)
		}
	}
	if _, ok := styles["d"]; ok {
		t.Error("descendant segment .c .d must not contribute")
	}
}

func TestExtractClassStyles_MalformedInputTolerated(t *testing.T) {
	inputs := []string{
		"",
		"garbage without braces",
		".x { color: red",
		"@media (broken { .x { color: red } }",
		".x { : ; ;; }",
	}
	for _, css := range inputs {
		// Must not panic; partial or empty results are fine.
		_ = ExtractClassStyles(css)
	}
}
