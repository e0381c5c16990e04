package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/pagediff/models"
)

// Client is a lightweight OpenAI-compatible vision API client used to
// summarize what changed between two screenshots. It uses net/http
// directly, no third-party SDK needed. Keys are bring-your-own: the
// service never stores them.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new vision client with the given http.Client.
// Pass nil to use a default client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// chatRequest is the OpenAI chat completion request body. Message
// content is the multi-part form so text and images can be mixed.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

const systemPrompt = `You compare two screenshots of the same web page: a baseline and a candidate. Describe the visible differences a human reviewer would care about: layout shifts, changed copy, missing or added sections, color and style changes. Be concrete and brief. If the pages look identical, say so in one sentence.`

// Summarize sends the baseline screenshot, the candidate screenshot and
// an optional page-content digest to the vision model and returns a
// short prose description of the differences.
func (c *Client) Summarize(ctx context.Context, params models.VisionParams, digest string, baseline, candidate []byte) (string, error) {
	userParts := []contentPart{
		{Type: "text", Text: "First image is the baseline, second is the candidate."},
		{Type: "image_url", ImageURL: &imageURL{URL: dataURL(baseline), Detail: "high"}},
		{Type: "image_url", ImageURL: &imageURL{URL: dataURL(candidate), Detail: "high"}},
	}
	if digest != "" {
		userParts = append(userParts, contentPart{
			Type: "text",
			Text: "Page content for reference:\n\n" + digest,
		})
	}

	reqBody := chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: []contentPart{{Type: "text", Text: systemPrompt}}},
			{Role: "user", Content: userParts},
		},
		Temperature: 0,
		MaxTokens:   800,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(params.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+params.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", models.NewCompareError(models.ErrCodeVisionFailure, "vision request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewCompareError(models.ErrCodeVisionFailure, "failed to read vision response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyVisionError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewCompareError(models.ErrCodeVisionFailure, "failed to parse vision response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", models.NewCompareError(models.ErrCodeVisionFailure, "vision model returned no choices", nil)
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// dataURL wraps a PNG as a base64 data URL for the image_url part.
func dataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// classifyVisionError maps HTTP status codes to appropriate error codes.
func classifyVisionError(statusCode int, body []byte) *models.CompareError {
	var errResp chatErrorResponse
	msg := "vision API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewCompareError(models.ErrCodeVisionAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewCompareError(models.ErrCodeVisionRateLimited, msg, nil)
	default:
		return models.NewCompareError(models.ErrCodeVisionFailure, fmt.Sprintf("vision API returned %d: %s", statusCode, msg), nil)
	}
}
