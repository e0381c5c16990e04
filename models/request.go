package models

// Viewport is one browser viewport preset to capture and compare at.
type Viewport struct {
	Name   string `json:"name" binding:"required"`
	Width  int    `json:"width" binding:"required,min=1"`
	Height int    `json:"height" binding:"required,min=1"`
}

// CompareRequest is the payload for POST /api/v1/compare.
type CompareRequest struct {
	// BaselineURL is the reference rendering. Required.
	BaselineURL string `json:"baseline_url" binding:"required,url"`

	// CandidateURL is the rendering compared against the baseline. Required.
	CandidateURL string `json:"candidate_url" binding:"required,url"`

	// Viewports override the configured presets for this request.
	Viewports []Viewport `json:"viewports,omitempty"`

	// Timeout is the maximum duration in seconds for capturing one side
	// at one viewport. Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Stealth enables anti-bot-detection evasions during capture.
	// Default: false.
	Stealth bool `json:"stealth,omitempty"`

	// BlockAds blocks known ad/tracking domains during capture so
	// rotating ad creatives don't show up as visual changes.
	// Default: true.
	BlockAds *bool `json:"block_ads,omitempty"`

	// IncludeHTMLDiff includes the raw unified HTML diff in the response.
	// Default: false (the changed-line count is always included).
	IncludeHTMLDiff bool `json:"include_html_diff,omitempty"`

	// MaxAge enables cache lookup: a cached comparison younger than this
	// many milliseconds is returned instead of re-capturing. 0 disables.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// WebhookURL, if set, receives a signed compare.completed event when
	// the comparison finds changes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// Vision holds per-request BYOK parameters for natural-language
	// change descriptions. Nil disables the vision pass.
	Vision *VisionParams `json:"vision,omitempty"`
}

// VisionParams configures the optional vision-model description pass.
type VisionParams struct {
	APIKey  string `json:"api_key" binding:"required"`
	Model   string `json:"model" binding:"required"`
	BaseURL string `json:"base_url,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *CompareRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.BlockAds == nil {
		t := true
		r.BlockAds = &t
	}
	if r.Vision != nil && r.Vision.BaseURL == "" {
		r.Vision.BaseURL = "https://api.openai.com/v1"
	}
}
