package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	tls "github.com/refraction-networking/utls"

	"github.com/use-agent/pagediff/config"
)

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused for every
// connection. Some CDNs fingerprint the TLS handshake and serve Go's
// default ClientHello a challenge page instead of the stylesheet.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Fallback: if spec generation fails, use HelloChrome_Auto as-is.
		// (Should never happen with a valid utls version.)
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// stylesheetFetcher downloads external stylesheets with a Chrome-like
// TLS fingerprint.
type stylesheetFetcher struct {
	client *http.Client
	cfg    config.CaptureConfig
}

func newStylesheetFetcher(cfg config.CaptureConfig) *stylesheetFetcher {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("stylesheets: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return &stylesheetFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		cfg: cfg,
	}
}

func (f *stylesheetFetcher) fetch(ctx context.Context, sheetURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.StylesheetTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sheetURL, nil)
	if err != nil {
		return "", fmt.Errorf("stylesheets: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/css,*/*;q=0.1")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stylesheets: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("stylesheets: status %d for %s", resp.StatusCode, sheetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxStylesheetBytes))
	if err != nil {
		return "", fmt.Errorf("stylesheets: read body: %w", err)
	}
	return string(body), nil
}

// CollectCSS assembles the page's effective stylesheet text: inline
// <style> blocks and fetched <link rel="stylesheet"> bodies concatenated
// in document order, so later rules still override earlier ones the way
// the cascade saw them. A stylesheet that cannot be fetched is skipped
// with a warning rather than failing the capture.
func (c *Capturer) CollectCSS(ctx context.Context, page *PageCapture) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		slog.Warn("stylesheet collection: HTML parse failed", "url", page.URL, "error", err)
		return ""
	}

	base, err := url.Parse(page.FinalURL)
	if err != nil {
		base = nil
	}

	var parts []string
	doc.Find(`style, link[rel="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "style" {
			if text := s.Text(); strings.TrimSpace(text) != "" {
				parts = append(parts, text)
			}
			return
		}

		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		sheetURL := resolveHref(base, href)
		if sheetURL == "" {
			return
		}
		body, fetchErr := c.stylesheets.fetch(ctx, sheetURL)
		if fetchErr != nil {
			slog.Warn("stylesheet fetch failed, skipping",
				"sheet", sheetURL, "error", fetchErr)
			return
		}
		parts = append(parts, body)
	})

	return strings.Join(parts, "\n")
}

// resolveHref resolves a stylesheet href against the page URL. Data and
// javascript URLs are dropped.
func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}
