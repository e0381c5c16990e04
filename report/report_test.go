package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/use-agent/pagediff/models"
)

func TestWrite(t *testing.T) {
	resp := &models.CompareResponse{
		Success:      true,
		BaselineURL:  "https://a.example",
		CandidateURL: "https://b.example",
		HasChanges:   true,
		Totals:       models.CompareTotals{TotalPixels: 1000, ChangedPixels: 120, PercentChanged: 12, ChangedViewports: 1},
		Viewports: []models.ViewportResult{
			{
				Viewport:   models.Viewport{Name: "desktop", Width: 1440, Height: 900},
				HasChanges: true,
				Pixels: &models.DiffResult{
					TotalPixels:    1000,
					ChangedPixels:  120,
					PercentChanged: 12,
					DiffImage:      []byte("\x89PNG fake"),
				},
				Structural: &models.StructuralAnalysis{
					ClassChanges: []models.CssClassChange{{
						Class: "btn", Kind: models.ChangeChanged,
						Properties: []models.PropertyChange{{Property: "color", Before: "red", After: "blue"}},
						Count1:     3, Count2: 3,
					}},
					ChangedLines: 4,
				},
				VisionSummary: "The button turned blue.",
			},
		},
	}

	dir := t.TempDir()
	if err := Write(dir, resp); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if resp.Viewports[0].DiffImagePath != "diff_desktop.png" {
		t.Errorf("DiffImagePath = %q", resp.Viewports[0].DiffImagePath)
	}
	png, err := os.ReadFile(filepath.Join(dir, "diff_desktop.png"))
	if err != nil {
		t.Fatalf("diff image not written: %v", err)
	}
	if string(png) != "\x89PNG fake" {
		t.Error("diff image content mismatch")
	}

	html, err := os.ReadFile(filepath.Join(dir, "report.html"))
	if err != nil {
		t.Fatalf("report.html not written: %v", err)
	}
	for _, want := range []string{
		"https://a.example",
		"https://b.example",
		"desktop",
		".btn",
		"color",
		"The button turned blue.",
		"diff_desktop.png",
		"4 changed HTML lines",
	} {
		if !strings.Contains(string(html), want) {
			t.Errorf("report.html missing %q", want)
		}
	}
}

func TestWrite_NoDiffImage(t *testing.T) {
	resp := &models.CompareResponse{
		Viewports: []models.ViewportResult{{
			Viewport: models.Viewport{Name: "mobile", Width: 375, Height: 812},
			Pixels:   &models.DiffResult{},
		}},
	}

	dir := t.TempDir()
	if err := Write(dir, resp); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if resp.Viewports[0].DiffImagePath != "" {
		t.Errorf("unexpected DiffImagePath %q", resp.Viewports[0].DiffImagePath)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.html")); err != nil {
		t.Errorf("report.html missing: %v", err)
	}
}
