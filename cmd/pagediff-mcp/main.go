package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// compareRequest mirrors the Pagediff API request model.
type compareRequest struct {
	BaselineURL     string          `json:"baseline_url"`
	CandidateURL    string          `json:"candidate_url"`
	Viewports       []viewportParam `json:"viewports,omitempty"`
	Timeout         int             `json:"timeout,omitempty"`
	Stealth         bool            `json:"stealth,omitempty"`
	IncludeHTMLDiff bool            `json:"include_html_diff,omitempty"`
}

type viewportParam struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// compareResponse mirrors the Pagediff API response model, reduced to
// the fields the text rendering needs.
type compareResponse struct {
	Success    bool `json:"success"`
	HasChanges bool `json:"has_changes"`
	Totals     struct {
		TotalPixels      int     `json:"total_pixels"`
		ChangedPixels    int     `json:"changed_pixels"`
		PercentChanged   float64 `json:"percent_changed"`
		ChangedViewports int     `json:"changed_viewports"`
	} `json:"totals"`
	Viewports []struct {
		Viewport viewportParam `json:"viewport"`
		Pixels   struct {
			ChangedPixels  int     `json:"changed_pixels"`
			TotalPixels    int     `json:"total_pixels"`
			PercentChanged float64 `json:"percent_changed"`
			HeightMismatch bool    `json:"height_mismatch"`
		} `json:"pixels"`
		Structural struct {
			ClassChanges []struct {
				Class      string `json:"class"`
				Kind       string `json:"kind"`
				Properties []struct {
					Property string `json:"property"`
					Before   string `json:"before"`
					After    string `json:"after"`
				} `json:"properties"`
			} `json:"class_changes"`
			ContentChanges []struct {
				Kind     string `json:"kind"`
				Location string `json:"location"`
				Before   string `json:"before"`
				After    string `json:"after"`
			} `json:"content_changes"`
			AddedSelectors   []string `json:"added_selectors"`
			RemovedSelectors []string `json:"removed_selectors"`
			ChangedLines     int      `json:"changed_lines"`
		} `json:"structural"`
		HasChanges    bool   `json:"has_changes"`
		VisionSummary string `json:"vision_summary"`
	} `json:"viewports"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("PAGEDIFF_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PAGEDIFF_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PAGEDIFF_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pagediff",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	comparePagesTool := mcp.NewTool("compare_pages",
		mcp.WithDescription("Compare two web pages visually and structurally. Captures full-page screenshots of both URLs in a headless browser, runs a shift-tolerant pixel diff, and diffs the pages' CSS classes, element structure and visible content."),
		mcp.WithString("baseline_url",
			mcp.Required(),
			mcp.Description("The reference page (e.g. production)"),
		),
		mcp.WithString("candidate_url",
			mcp.Required(),
			mcp.Description("The page compared against the baseline (e.g. staging)"),
		),
		mcp.WithString("viewport",
			mcp.Description("Single viewport to compare at, as 'WIDTHxHEIGHT' (e.g. '1440x900'). Defaults to the server's configured presets."),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Per-capture timeout in seconds (default 30, max 120)"),
		),
		mcp.WithBoolean("stealth",
			mcp.Description("Enable anti-bot-detection evasions during capture"),
		),
	)
	s.AddTool(comparePagesTool, handleComparePages(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleComparePages(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		baselineURL, err := request.RequireString("baseline_url")
		if err != nil {
			return mcp.NewToolResultError("baseline_url is required"), nil
		}
		candidateURL, err := request.RequireString("candidate_url")
		if err != nil {
			return mcp.NewToolResultError("candidate_url is required"), nil
		}

		reqBody := compareRequest{
			BaselineURL:  baselineURL,
			CandidateURL: candidateURL,
			Stealth:      request.GetBool("stealth", false),
			Timeout:      request.GetInt("timeout", 0),
		}
		if vp := request.GetString("viewport", ""); vp != "" {
			parsed, parseErr := parseViewport(vp)
			if parseErr != nil {
				return mcp.NewToolResultError(parseErr.Error()), nil
			}
			reqBody.Viewports = []viewportParam{parsed}
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/compare", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var compareResp compareResponse
		if err := json.Unmarshal(respBody, &compareResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !compareResp.Success {
			errMsg := "comparison failed"
			if compareResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", compareResp.Error.Code, compareResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(renderComparison(baselineURL, candidateURL, &compareResp)), nil
	}
}

// parseViewport parses "1440x900" into a named viewport parameter.
func parseViewport(s string) (viewportParam, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return viewportParam{}, fmt.Errorf("viewport must be 'WIDTHxHEIGHT', got %q", s)
	}
	return viewportParam{Name: s, Width: w, Height: h}, nil
}

// renderComparison formats the API response as readable text.
func renderComparison(baselineURL, candidateURL string, resp *compareResponse) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Compared %s against %s\n", candidateURL, baselineURL)
	if !resp.HasChanges {
		sb.WriteString("No changes detected.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Changes detected: %.2f%% of pixels changed across %d viewport(s).\n\n",
		resp.Totals.PercentChanged, resp.Totals.ChangedViewports)

	for _, vp := range resp.Viewports {
		fmt.Fprintf(&sb, "--- %s (%dx%d) ---\n", vp.Viewport.Name, vp.Viewport.Width, vp.Viewport.Height)
		if !vp.HasChanges {
			sb.WriteString("unchanged\n\n")
			continue
		}
		fmt.Fprintf(&sb, "%d of %d pixels changed (%.2f%%)",
			vp.Pixels.ChangedPixels, vp.Pixels.TotalPixels, vp.Pixels.PercentChanged)
		if vp.Pixels.HeightMismatch {
			sb.WriteString("; page heights differ")
		}
		sb.WriteString("\n")

		if vp.VisionSummary != "" {
			fmt.Fprintf(&sb, "Summary: %s\n", vp.VisionSummary)
		}

		for _, cc := range vp.Structural.ClassChanges {
			for _, p := range cc.Properties {
				fmt.Fprintf(&sb, "  .%s (%s): %s %q -> %q\n", cc.Class, cc.Kind, p.Property, p.Before, p.After)
			}
		}
		for _, ch := range vp.Structural.ContentChanges {
			fmt.Fprintf(&sb, "  %s at %s: %q -> %q\n", ch.Kind, ch.Location, ch.Before, ch.After)
		}
		if len(vp.Structural.AddedSelectors) > 0 {
			fmt.Fprintf(&sb, "  added selectors: %s\n", strings.Join(vp.Structural.AddedSelectors, " "))
		}
		if len(vp.Structural.RemovedSelectors) > 0 {
			fmt.Fprintf(&sb, "  removed selectors: %s\n", strings.Join(vp.Structural.RemovedSelectors, " "))
		}
		if vp.Structural.ChangedLines > 0 {
			fmt.Fprintf(&sb, "  %d changed HTML lines\n", vp.Structural.ChangedLines)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
