package models

// CompareResponse is the response for POST /api/v1/compare.
type CompareResponse struct {
	// Success indicates whether the comparison completed without errors.
	Success bool `json:"success"`

	BaselineURL  string `json:"baseline_url"`
	CandidateURL string `json:"candidate_url"`

	// Viewports holds one result per compared viewport.
	Viewports []ViewportResult `json:"viewports"`

	// HasChanges is true if any viewport reported changed pixels or
	// structural changes.
	HasChanges bool `json:"has_changes"`

	// Totals aggregates pixel counts across viewports.
	Totals CompareTotals `json:"totals"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// ReportPath is the directory where the HTML report and diff PNGs
	// were persisted. Empty when report persistence is disabled.
	ReportPath string `json:"report_path,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ViewportResult bundles the two independent fact sets for one viewport.
type ViewportResult struct {
	Viewport Viewport `json:"viewport"`

	Pixels     *DiffResult         `json:"pixels"`
	Structural *StructuralAnalysis `json:"structural"`

	// HasChanges is true if this viewport has changed pixels or any
	// structural change.
	HasChanges bool `json:"has_changes"`

	// VisionSummary is the optional natural-language change description.
	VisionSummary string `json:"vision_summary,omitempty"`

	// DiffImagePath is where the report writer stored the diff PNG,
	// relative to the output directory. Empty when not persisted.
	DiffImagePath string `json:"diff_image_path,omitempty"`
}

// CompareTotals aggregates pixel statistics across all viewports.
type CompareTotals struct {
	TotalPixels    int     `json:"total_pixels"`
	ChangedPixels  int     `json:"changed_pixels"`
	PercentChanged float64 `json:"percent_changed"`

	// ChangedViewports counts viewports where HasChanges is true.
	ChangedViewports int `json:"changed_viewports"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// CaptureMs is the time spent capturing both pages across viewports.
	CaptureMs int64 `json:"capture_ms"`

	// CompareMs is the time spent in the pixel and structural differs.
	CompareMs int64 `json:"compare_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
