package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/use-agent/pagediff/models"
)

// Write persists a comparison to dir: one diff PNG per viewport that
// produced one, plus a self-contained report.html. It fills in each
// viewport's DiffImagePath as it goes. The directory is created if
// missing.
func Write(dir string, resp *models.CompareResponse) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}

	for i := range resp.Viewports {
		vr := &resp.Viewports[i]
		if vr.Pixels == nil || len(vr.Pixels.DiffImage) == 0 {
			continue
		}
		name := fmt.Sprintf("diff_%s.png", vr.Viewport.Name)
		if err := os.WriteFile(filepath.Join(dir, name), vr.Pixels.DiffImage, 0o644); err != nil {
			return fmt.Errorf("report: write diff image %s: %w", name, err)
		}
		vr.DiffImagePath = name
	}

	f, err := os.Create(filepath.Join(dir, "report.html"))
	if err != nil {
		return fmt.Errorf("report: create report.html: %w", err)
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, resp); err != nil {
		return fmt.Errorf("report: render template: %w", err)
	}
	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Page comparison report</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; color: #1a1a2e; }
  h1 { font-size: 1.4rem; }
  h2 { font-size: 1.1rem; margin-top: 2rem; border-bottom: 1px solid #ddd; padding-bottom: .3rem; }
  table { border-collapse: collapse; margin: 1rem 0; }
  th, td { border: 1px solid #ddd; padding: .35rem .6rem; text-align: left; font-size: .9rem; }
  th { background: #f5f5f7; }
  .changed { color: #c0392b; font-weight: 600; }
  .unchanged { color: #27ae60; }
  .diff-image { max-width: 100%; border: 1px solid #ccc; margin-top: .5rem; }
  .summary { background: #f8f9fa; padding: .8rem 1rem; border-radius: 6px; }
  .vision { background: #fffbe6; padding: .8rem 1rem; border-left: 3px solid #f0c020; margin: .8rem 0; }
  code { background: #f1f1f3; padding: .05rem .3rem; border-radius: 3px; }
</style>
</head>
<body>
<h1>Page comparison report</h1>
<div class="summary">
  <p>Baseline: <code>{{.BaselineURL}}</code><br>
     Candidate: <code>{{.CandidateURL}}</code></p>
  <p>
    {{if .HasChanges}}<span class="changed">Changes detected</span>{{else}}<span class="unchanged">No changes detected</span>{{end}}
    — {{printf "%.2f" .Totals.PercentChanged}}% of pixels changed
    across {{len .Viewports}} viewport(s),
    {{.Totals.ChangedViewports}} with changes.
    Took {{.Timing.TotalMs}} ms.
  </p>
</div>

{{range .Viewports}}
<h2>{{.Viewport.Name}} ({{.Viewport.Width}}&times;{{.Viewport.Height}})</h2>
<p>
  {{if .HasChanges}}<span class="changed">changed</span>{{else}}<span class="unchanged">unchanged</span>{{end}}
  — {{.Pixels.ChangedPixels}} of {{.Pixels.TotalPixels}} pixels
  ({{printf "%.2f" .Pixels.PercentChanged}}%)
  {{if .Pixels.HeightMismatch}}; page heights differ ({{.Pixels.Height1}} vs {{.Pixels.Height2}}){{end}}
</p>

{{if .VisionSummary}}<div class="vision">{{.VisionSummary}}</div>{{end}}

{{with .Structural}}
{{if .ClassChanges}}
<h3>Class style changes</h3>
<table>
  <tr><th>Class</th><th>Kind</th><th>Property</th><th>Before</th><th>After</th><th>Elements</th></tr>
  {{range $c := .ClassChanges}}{{range $c.Properties}}
  <tr>
    <td><code>.{{$c.Class}}</code></td><td>{{$c.Kind}}</td>
    <td>{{.Property}}</td><td>{{.Before}}</td><td>{{.After}}</td>
    <td>{{$c.Count1}} &rarr; {{$c.Count2}}</td>
  </tr>
  {{end}}{{end}}
</table>
{{end}}

{{if .ElementChanges}}
<h3>Element class changes</h3>
<table>
  <tr><th>Element</th><th>Added classes</th><th>Removed classes</th></tr>
  {{range .ElementChanges}}
  <tr><td><code>{{.Identity}}</code></td><td>{{range .Added}}<code>{{.}}</code> {{end}}</td><td>{{range .Removed}}<code>{{.}}</code> {{end}}</td></tr>
  {{end}}
</table>
{{end}}

{{if .ContentChanges}}
<h3>Content changes</h3>
<table>
  <tr><th>Kind</th><th>Location</th><th>Before</th><th>After</th></tr>
  {{range .ContentChanges}}
  <tr><td>{{.Kind}}</td><td>{{.Location}}</td><td>{{.Before}}</td><td>{{.After}}</td></tr>
  {{end}}
</table>
{{end}}

{{if or .AddedSelectors .RemovedSelectors}}
<h3>Selector set</h3>
<p>
  {{if .AddedSelectors}}Added: {{range .AddedSelectors}}<code>{{.}}</code> {{end}}<br>{{end}}
  {{if .RemovedSelectors}}Removed: {{range .RemovedSelectors}}<code>{{.}}</code> {{end}}{{end}}
</p>
{{end}}

{{if .ChangedLines}}<p>{{.ChangedLines}} changed HTML lines.</p>{{end}}
{{end}}

{{if .DiffImagePath}}<img class="diff-image" src="{{.DiffImagePath}}" alt="pixel diff for {{.Viewport.Name}}">{{end}}
{{end}}
</body>
</html>
`))
