package chunker

import (
	"regexp"
	"strings"

	"wellrag/internal/domain"
)

// labelPattern matches a WELL feature code such as A01 or XC12. RE2's \b
// is ASCII-only, so word boundaries are spelled out to also reject codes
// glued to non-ASCII letters or digits.
var labelPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])([A-Z]{1,2}\p{Nd}{2})(?:[^\p{L}\p{N}_]|$)`)

// FindLabel returns the first feature label found in text.
func FindLabel(text string) (string, bool) {
	m := labelPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FeatureChunker groups consecutive pages into segments, opening a new
// segment on every page that carries a feature label.
type FeatureChunker struct{}

func NewFeatureChunker() *FeatureChunker {
	return &FeatureChunker{}
}

// Segment splits pages (index 0 is page 1) into labeled segments in
// document order. Pages before the first label are dropped.
func (c *FeatureChunker) Segment(pages []string) []domain.Segment {
	var segments []domain.Segment
	var (
		open    bool
		feature string
		start   int
		buf     []string
	)
	closeAt := func(end int) {
		segments = append(segments, domain.Segment{
			Feature:   feature,
			PageStart: start,
			PageEnd:   end,
			Content:   strings.Join(buf, "\n"),
		})
	}
	for i, text := range pages {
		pageNo := i + 1
		if label, ok := FindLabel(text); ok {
			if open {
				closeAt(pageNo - 1)
			}
			open = true
			feature = label
			start = pageNo
			buf = []string{text}
			continue
		}
		if open {
			buf = append(buf, text)
		}
	}
	if open {
		closeAt(len(pages))
	}
	return segments
}
