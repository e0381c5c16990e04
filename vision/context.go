package vision

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// maxDigestLength caps the content digest attached to a vision prompt.
// Two screenshots already dominate the token cost; the digest is only
// there to ground the model's description in the page's actual copy.
const maxDigestLength = 4000

// markdownConverter is reusable and goroutine-safe, so one instance
// serves all digests.
var markdownConverter = newMarkdownConverter()

// newMarkdownConverter builds a converter tuned for prompt context:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea, HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin with minimal cell padding, which keeps tabular data
//     readable without padding every column to equal width.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// BuildDigest reduces a rendered page to a short Markdown excerpt of
// its main content: readability extracts the article body, then the
// result is converted to Markdown and truncated. Any failure degrades
// to an empty digest; the vision summary then runs on screenshots alone.
func BuildDigest(rawHTML, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("digest: invalid source URL", "url", sourceURL, "error", err)
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("digest: readability extraction failed", "url", sourceURL, "error", err)
		return ""
	}

	content := article.Content
	if strings.TrimSpace(content) == "" {
		return ""
	}

	markdown, err := markdownConverter.ConvertString(content, converter.WithDomain(parsedURL.Host))
	if err != nil {
		slog.Warn("digest: markdown conversion failed", "url", sourceURL, "error", err)
		return ""
	}

	markdown = strings.TrimSpace(markdown)
	if len(markdown) > maxDigestLength {
		cut := maxDigestLength
		// Cut on a rune boundary.
		for cut > 0 && markdown[cut]&0xC0 == 0x80 {
			cut--
		}
		markdown = markdown[:cut]
	}
	if article.Title != "" {
		markdown = "# " + article.Title + "\n\n" + markdown
	}
	return markdown
}
