package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/use-agent/pagediff/models"
)

func TestSummarize(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  The hero banner changed.  "}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.Client())
	params := models.VisionParams{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL}

	summary, err := client.Summarize(context.Background(), params,
		"# Page\n\ncopy", []byte("png1"), []byte("png2"))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "The hero banner changed." {
		t.Errorf("summary = %q", summary)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", gotReq.Model)
	}

	if len(gotReq.Messages) != 2 {
		t.Fatalf("messages = %d, want system + user", len(gotReq.Messages))
	}
	user := gotReq.Messages[1]
	images := 0
	digestSeen := false
	for _, part := range user.Content {
		switch part.Type {
		case "image_url":
			images++
			if !strings.HasPrefix(part.ImageURL.URL, "data:image/png;base64,") {
				t.Errorf("image url not a png data url: %q", part.ImageURL.URL[:32])
			}
		case "text":
			if strings.Contains(part.Text, "# Page") {
				digestSeen = true
			}
		}
	}
	if images != 2 {
		t.Errorf("user message carries %d images, want 2", images)
	}
	if !digestSeen {
		t.Error("digest text missing from user message")
	}
}

func TestSummarize_ErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusUnauthorized, models.ErrCodeVisionAuthFailure},
		{http.StatusForbidden, models.ErrCodeVisionAuthFailure},
		{http.StatusTooManyRequests, models.ErrCodeVisionRateLimited},
		{http.StatusInternalServerError, models.ErrCodeVisionFailure},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))

		client := NewClient(srv.Client())
		_, err := client.Summarize(context.Background(),
			models.VisionParams{BaseURL: srv.URL}, "", nil, nil)
		srv.Close()

		var compareErr *models.CompareError
		if !errors.As(err, &compareErr) {
			t.Errorf("status %d: error %v is not a CompareError", tt.status, err)
			continue
		}
		if compareErr.Code != tt.wantCode {
			t.Errorf("status %d: code = %q, want %q", tt.status, compareErr.Code, tt.wantCode)
		}
	}
}

func TestBuildDigest_InvalidURL(t *testing.T) {
	if d := BuildDigest("<p>hello</p>", "://bad"); d != "" {
		t.Errorf("invalid URL must yield empty digest, got %q", d)
	}
}
