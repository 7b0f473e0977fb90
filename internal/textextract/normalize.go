package textextract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses noisy whitespace from layout-preserving extraction.
// Line breaks are kept; runs of blank lines collapse into one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// joinPages renders non-empty pages with "--- Page N ---" headers. Page numbers
// keep their original position even when earlier pages are blank.
func joinPages(pages []string) (string, int) {
	parts := make([]string, 0, len(pages))
	for i, p := range pages {
		p = Normalize(p)
		if p == "" {
			continue
		}
		parts = append(parts, "--- Page "+strconv.Itoa(i+1)+" ---\n"+p)
	}
	return strings.Join(parts, "\n\n"), len(parts)
}
