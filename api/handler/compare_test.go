package handler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/use-agent/pagediff/models"
)

func TestPersistReport(t *testing.T) {
	dir := t.TempDir()
	resp := &models.CompareResponse{
		Success:      true,
		BaselineURL:  "https://a.example.com",
		CandidateURL: "https://b.example.com",
		HasChanges:   true,
		Viewports: []models.ViewportResult{
			{
				Viewport:   models.Viewport{Name: "desktop", Width: 1440, Height: 900},
				Pixels:     &models.DiffResult{TotalPixels: 100, ChangedPixels: 4, PercentChanged: 4, DiffImage: []byte{0x89, 'P', 'N', 'G'}},
				HasChanges: true,
			},
		},
	}

	persistReport(dir, "abc123", resp)

	out := filepath.Join(dir, "abc123")
	if resp.ReportPath != out {
		t.Fatalf("ReportPath = %q, want %q", resp.ReportPath, out)
	}
	if _, err := os.Stat(filepath.Join(out, "report.html")); err != nil {
		t.Errorf("report.html not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "diff_desktop.png")); err != nil {
		t.Errorf("diff PNG not written: %v", err)
	}
	if resp.Viewports[0].DiffImagePath != "diff_desktop.png" {
		t.Errorf("DiffImagePath = %q, want diff_desktop.png", resp.Viewports[0].DiffImagePath)
	}
}

func TestPersistReport_WriteFailureLeavesPathEmpty(t *testing.T) {
	// A regular file where the output root should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := &models.CompareResponse{Success: true}
	persistReport(blocker, "abc123", resp)

	if resp.ReportPath != "" {
		t.Errorf("ReportPath = %q, want empty on write failure", resp.ReportPath)
	}
}
