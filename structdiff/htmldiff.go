package structdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedHTMLDiff produces a unified line diff of the two raw documents
// (3 lines of context) and counts the changed lines, excluding the
// "---"/"+++" file-header lines. A diff failure degrades to an empty
// diff with zero changed lines.
func unifiedHTMLDiff(html1, html2 string) (string, int) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(html1),
		B:        difflib.SplitLines(html2),
		FromFile: "baseline",
		ToFile:   "candidate",
		Context:  3,
	})
	if err != nil {
		return "", 0
	}
	return diff, countChangedLines(diff)
}

func countChangedLines(diff string) int {
	count := 0
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
			count++
		}
	}
	return count
}
