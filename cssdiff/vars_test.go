package cssdiff

import "testing"

func TestParseCustomProperties(t *testing.T) {
	css := `
		:root { --brand: #0a7; --spacing: 8px; color: red; }
		.not-root { --ignored: 1px; }
		html, :root { --shared: bold; }
	`
	table := ParseCustomProperties(css)

	if got := table["--brand"]; got != "#0a7" {
		t.Errorf("--brand = %q, want #0a7", got)
	}
	if got := table["--spacing"]; got != "8px" {
		t.Errorf("--spacing = %q, want 8px", got)
	}
	if got := table["--shared"]; got != "bold" {
		t.Errorf("--shared (from selector list) = %q, want bold", got)
	}
	if _, ok := table["--ignored"]; ok {
		t.Error("custom property outside :root must not be recorded")
	}
	if _, ok := table["color"]; ok {
		t.Error("non-custom declaration recorded as custom property")
	}
}

func TestResolveVar(t *testing.T) {
	table := map[string]string{
		"--c":      "blue",
		"--nested": "var(--c)",
	}

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"defined", "var(--c)", "blue"},
		{"fallback used", "var(--missing, green)", "green"},
		{"unresolved literal", "var(--missing)", "var(--missing)"},
		{"no reference", "12px", "12px"},
		{"embedded", "1px solid var(--c)", "1px solid blue"},
		{"fallback with commas", "var(--missing, rgba(0, 0, 0, 0.5))", "rgba(0, 0, 0, 0.5)"},
		{"single pass only", "var(--nested)", "var(--c)"},
		{"multiple references", "var(--c) var(--missing, red)", "blue red"},
		{"unterminated", "var(--c", "var(--c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveVar(tt.value, table); got != tt.want {
				t.Errorf("ResolveVar(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
