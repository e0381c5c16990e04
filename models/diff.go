package models

// DiffResult summarizes the pixel-level comparison of two same-viewport
// screenshots. Immutable once built; one instance per viewport.
type DiffResult struct {
	// TotalPixels is width × height of the padded common canvas.
	TotalPixels int `json:"total_pixels"`

	// ChangedPixels is the number of pixels that differ beyond the
	// configured threshold (anti-aliased edges excluded when suppression
	// is enabled).
	ChangedPixels int `json:"changed_pixels"`

	// PercentChanged is ChangedPixels / TotalPixels × 100.
	PercentChanged float64 `json:"percent_changed"`

	// DiffImage is the rendered diff overlay as PNG bytes. Omitted from
	// JSON responses unless the caller asked for it inline.
	DiffImage []byte `json:"-"`

	// Source dimensions before padding, so callers can surface a
	// "pages are different lengths" notice.
	Width1  int `json:"width_1"`
	Height1 int `json:"height_1"`
	Width2  int `json:"width_2"`
	Height2 int `json:"height_2"`

	// HeightMismatch is true when the two inputs had different heights.
	HeightMismatch bool `json:"height_mismatch"`
}

// ClassStyleMap maps a class name to its allow-listed property values,
// as declared in one document's stylesheet text (not computed styles).
type ClassStyleMap map[string]map[string]string

// ChangeKind classifies a class-level style change.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"   // present only in document 2
	ChangeRemoved ChangeKind = "removed" // present only in document 1
	ChangeChanged ChangeKind = "changed" // present in both, values differ
)

// PropertyChange is a single CSS property before/after pair.
// "(not declared)" stands in for a side that never declares the property.
type PropertyChange struct {
	Property string `json:"property"`
	Before   string `json:"before"`
	After    string `json:"after"`
}

// CssClassChange describes how one class's declared styles changed
// between the two documents.
type CssClassChange struct {
	Class      string           `json:"class"`
	Kind       ChangeKind       `json:"kind"`
	Properties []PropertyChange `json:"properties"`

	// Element counts per document: how many elements carry this class.
	Count1 int `json:"count_1"`
	Count2 int `json:"count_2"`
}

// ElementClassChange describes a class-attribute delta on one element
// identity (matched by id, or by singleton semantic tag).
type ElementClassChange struct {
	// Identity is "#some-id" or a tag name like "nav".
	Identity string `json:"identity"`

	Classes1 []string `json:"classes_1"`
	Classes2 []string `json:"classes_2"`

	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// ContentChange is a visible-content difference between positionally
// matched elements.
type ContentChange struct {
	// Kind is "text", "image", or "link".
	Kind string `json:"kind"`

	// Location is a human-readable descriptor, e.g. "h2 #3" or "nav link #1".
	Location string `json:"location"`

	Before string `json:"before"`
	After  string `json:"after"`
}

// StructuralAnalysis aggregates all structural facts for one viewport.
// Immutable once built.
type StructuralAnalysis struct {
	ClassChanges   []CssClassChange     `json:"class_changes"`
	ElementChanges []ElementClassChange `json:"element_changes"`
	ContentChanges []ContentChange      `json:"content_changes"`

	// AddedSelectors / RemovedSelectors are ".class" selectors present in
	// only one document's DOM class attributes.
	AddedSelectors   []string `json:"added_selectors"`
	RemovedSelectors []string `json:"removed_selectors"`

	// HTMLDiff is a unified line diff of the two raw HTML documents.
	HTMLDiff string `json:"html_diff,omitempty"`

	// ChangedLines counts added/removed lines in HTMLDiff, excluding the
	// file-header lines.
	ChangedLines int `json:"changed_lines"`

	// FingerprintDistance is the Hamming distance between the two
	// documents' DOM-structure fingerprints (0 = identical structure).
	FingerprintDistance int `json:"fingerprint_distance"`
}

// HasChanges reports whether any structural difference was found.
func (a *StructuralAnalysis) HasChanges() bool {
	return len(a.ClassChanges) > 0 ||
		len(a.ElementChanges) > 0 ||
		len(a.ContentChanges) > 0 ||
		len(a.AddedSelectors) > 0 ||
		len(a.RemovedSelectors) > 0 ||
		a.ChangedLines > 0
}
