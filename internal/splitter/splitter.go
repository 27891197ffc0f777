// Package splitter segments outbound replies into sentence-level
// chunks so they can be delivered one message at a time.
package splitter

import (
	"regexp"
	"strings"
)

// Sentence-ending marks across CJK and Latin scripts. The cut happens
// immediately after each mark, so punctuation stays attached to the
// preceding segment.
var boundary = regexp.MustCompile(`[。？！；：…—.!?;:]`)

// Split segments text after every sentence-ending mark, trims each
// segment, and drops empty ones.
func Split(text string) []string {
	var segments []string
	last := 0
	for _, loc := range boundary.FindAllStringIndex(text, -1) {
		if seg := strings.TrimSpace(text[last:loc[1]]); seg != "" {
			segments = append(segments, seg)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		segments = append(segments, tail)
	}
	return segments
}
