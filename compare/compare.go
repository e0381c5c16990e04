package compare

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/pagediff/capture"
	"github.com/use-agent/pagediff/config"
	"github.com/use-agent/pagediff/cssdiff"
	"github.com/use-agent/pagediff/models"
	"github.com/use-agent/pagediff/pixeldiff"
	"github.com/use-agent/pagediff/structdiff"
	"github.com/use-agent/pagediff/vision"
)

// Comparer orchestrates a full two-page comparison: capture both URLs
// at each viewport, run the pixel and structural differs, and
// optionally ask a vision model to describe the changes. It is safe for
// concurrent use.
type Comparer struct {
	capturer   *capture.Capturer
	vision     *vision.Client
	diffCfg    config.DiffConfig
	captureCfg config.CaptureConfig
}

// New creates a Comparer. visionClient may be nil; vision summaries are
// then skipped even when a request asks for them.
func New(capturer *capture.Capturer, visionClient *vision.Client, diffCfg config.DiffConfig, captureCfg config.CaptureConfig) *Comparer {
	return &Comparer{
		capturer:   capturer,
		vision:     visionClient,
		diffCfg:    diffCfg,
		captureCfg: captureCfg,
	}
}

// Stats exposes the underlying browser pool state for health reporting.
func (c *Comparer) Stats() models.PoolStats {
	return c.capturer.Stats()
}

// viewportOutcome carries one viewport's result out of the fan-out.
type viewportOutcome struct {
	result     *models.ViewportResult
	captureDur time.Duration
	compareDur time.Duration
	err        error
}

// Compare runs the full comparison described by req.
//
//  1. Resolve viewports     – request override or configured presets
//  2. Fan out per viewport  – each viewport compares independently
//  3. Aggregate             – totals, has-changes, timing
//
// The first viewport error fails the whole comparison: a partial result
// would silently understate the difference between the two pages.
func (c *Comparer) Compare(ctx context.Context, req *models.CompareRequest) (*models.CompareResponse, error) {
	started := time.Now()
	req.Defaults()

	// ── 1. Resolve viewports ─────────────────────────────────────────
	viewports := req.Viewports
	if len(viewports) == 0 {
		viewports = c.captureCfg.Viewports
	}
	if len(viewports) == 0 {
		return nil, models.NewCompareError(models.ErrCodeInvalidInput, "no viewports configured", nil)
	}

	// ── 2. Fan out per viewport ──────────────────────────────────────
	outcomes := make([]viewportOutcome, len(viewports))
	var wg sync.WaitGroup
	for i, vp := range viewports {
		wg.Add(1)
		go func(i int, vp models.Viewport) {
			defer wg.Done()
			outcomes[i] = c.compareViewport(ctx, req, vp)
		}(i, vp)
	}
	wg.Wait()

	// ── 3. Aggregate ─────────────────────────────────────────────────
	resp := &models.CompareResponse{
		Success:      true,
		BaselineURL:  req.BaselineURL,
		CandidateURL: req.CandidateURL,
		Viewports:    make([]models.ViewportResult, 0, len(viewports)),
	}
	var captureDur, compareDur time.Duration
	for _, out := range outcomes {
		if out.err != nil {
			return nil, out.err
		}
		resp.Viewports = append(resp.Viewports, *out.result)
		captureDur += out.captureDur
		compareDur += out.compareDur

		resp.Totals.TotalPixels += out.result.Pixels.TotalPixels
		resp.Totals.ChangedPixels += out.result.Pixels.ChangedPixels
		if out.result.HasChanges {
			resp.Totals.ChangedViewports++
			resp.HasChanges = true
		}
	}
	if resp.Totals.TotalPixels > 0 {
		resp.Totals.PercentChanged =
			float64(resp.Totals.ChangedPixels) / float64(resp.Totals.TotalPixels) * 100
	}
	resp.Timing = models.TimingInfo{
		TotalMs:   time.Since(started).Milliseconds(),
		CaptureMs: captureDur.Milliseconds(),
		CompareMs: compareDur.Milliseconds(),
	}

	slog.Info("comparison complete",
		"baseline", req.BaselineURL,
		"candidate", req.CandidateURL,
		"viewports", len(viewports),
		"has_changes", resp.HasChanges,
		"percent_changed", fmt.Sprintf("%.2f", resp.Totals.PercentChanged),
		"total_ms", resp.Timing.TotalMs,
	)
	return resp, nil
}

// compareViewport captures both pages at one viewport and runs both
// differs on the pair.
func (c *Comparer) compareViewport(ctx context.Context, req *models.CompareRequest, vp models.Viewport) viewportOutcome {
	// ── 1. Capture both sides concurrently ───────────────────────────
	captureStart := time.Now()
	baseline, candidate, err := c.capturePair(ctx, req, vp)
	captureDur := time.Since(captureStart)
	if err != nil {
		return viewportOutcome{err: err, captureDur: captureDur}
	}

	// ── 2. Decode the screenshots ────────────────────────────────────
	compareStart := time.Now()
	img1, err := decodePNG(baseline.Screenshot)
	if err != nil {
		return viewportOutcome{
			err: models.NewCompareError(models.ErrCodeCapture,
				fmt.Sprintf("baseline screenshot at %s is not a valid PNG", vp.Name), err),
			captureDur: captureDur,
		}
	}
	img2, err := decodePNG(candidate.Screenshot)
	if err != nil {
		return viewportOutcome{
			err: models.NewCompareError(models.ErrCodeCapture,
				fmt.Sprintf("candidate screenshot at %s is not a valid PNG", vp.Name), err),
			captureDur: captureDur,
		}
	}

	// ── 3. Pixel diff ────────────────────────────────────────────────
	pixels := pixeldiff.Compare(img1, img2, c.pixelOptions())

	// ── 4. Structural diff ───────────────────────────────────────────
	css1 := c.capturer.CollectCSS(ctx, baseline)
	css2 := c.capturer.CollectCSS(ctx, candidate)
	styles1 := cssdiff.ExtractClassStyles(css1)
	styles2 := cssdiff.ExtractClassStyles(css2)
	structural := structdiff.Analyze(baseline.HTML, candidate.HTML, styles1, styles2, c.structLimits())
	if !req.IncludeHTMLDiff {
		structural.HTMLDiff = ""
	}
	compareDur := time.Since(compareStart)

	result := &models.ViewportResult{
		Viewport:   vp,
		Pixels:     pixels,
		Structural: structural,
		HasChanges: pixels.ChangedPixels > 0 || structural.HasChanges(),
	}

	// ── 5. Optional vision summary ───────────────────────────────────
	if req.Vision != nil && c.vision != nil && result.HasChanges {
		digest := vision.BuildDigest(baseline.HTML, baseline.FinalURL)
		summary, visionErr := c.vision.Summarize(ctx, *req.Vision, digest,
			baseline.Screenshot, candidate.Screenshot)
		if visionErr != nil {
			// The comparison stands on its own; the prose is best-effort.
			slog.Warn("vision summary failed",
				"viewport", vp.Name, "error", visionErr)
		} else {
			result.VisionSummary = summary
		}
	}

	return viewportOutcome{result: result, captureDur: captureDur, compareDur: compareDur}
}

// capturePair captures the baseline and candidate pages in parallel,
// each on its own pooled browser tab.
func (c *Comparer) capturePair(ctx context.Context, req *models.CompareRequest, vp models.Viewport) (*capture.PageCapture, *capture.PageCapture, error) {
	build := func(url string) *capture.PageRequest {
		return &capture.PageRequest{
			URL:      url,
			Viewport: vp,
			Timeout:  time.Duration(req.Timeout) * time.Second,
			Stealth:  req.Stealth,
			BlockAds: req.BlockAds == nil || *req.BlockAds,
		}
	}

	var (
		wg               sync.WaitGroup
		baseline         *capture.PageCapture
		candidate        *capture.PageCapture
		baseErr, candErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		baseline, baseErr = c.capturer.CapturePage(ctx, build(req.BaselineURL))
	}()
	go func() {
		defer wg.Done()
		candidate, candErr = c.capturer.CapturePage(ctx, build(req.CandidateURL))
	}()
	wg.Wait()

	if baseErr != nil {
		return nil, nil, baseErr
	}
	if candErr != nil {
		return nil, nil, candErr
	}
	return baseline, candidate, nil
}

func (c *Comparer) pixelOptions() pixeldiff.Options {
	return pixeldiff.Options{
		StripHeight: c.diffCfg.StripHeight,
		MaxShift:    c.diffCfg.MaxShift,
		Align:       true,
		CoarseX:     c.diffCfg.CoarseX,
		CoarseY:     c.diffCfg.CoarseY,
		Threshold:   c.diffCfg.Threshold,
		AntiAlias:   c.diffCfg.AntiAlias,
	}
}

func (c *Comparer) structLimits() structdiff.Limits {
	return structdiff.Limits{
		MaxClassChanges:   c.diffCfg.MaxClassChanges,
		MaxElementChanges: c.diffCfg.MaxElementChanges,
		MaxContentChanges: c.diffCfg.MaxContentChanges,
		MaxSelectorDiffs:  c.diffCfg.MaxSelectorDiffs,
		MaxPerSelector:    c.diffCfg.MaxPerSelector,
	}
}

func decodePNG(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}
