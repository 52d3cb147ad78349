package segment

import (
	"strings"

	"github.com/charmbracelet/log"

	"bookvoice/internal/models"
)

// paragraphFloor is how far into the character window a paragraph break must
// sit to be accepted as a cut point (80% of the budget).
const paragraphFloorPct = 80

// Split slices chapter text into paragraph-aligned segments that each fit
// the budget's input window. Segments are exact, non-overlapping slices of
// the input: their concatenation reconstructs the original text byte for
// byte. A segment boundary falls inside a paragraph only when that single
// paragraph alone exceeds the budget, and inside a sentence only as a last
// resort (logged as degraded).
func Split(text string, b Budget, est Estimator) []models.Segment {
	if text == "" {
		return nil
	}
	maxChars := b.InputChars()
	if len(text) <= maxChars {
		return []models.Segment{{
			Text:         text,
			Index:        0,
			Total:        1,
			ApproxTokens: est.Count(text),
		}}
	}

	parts := make([]string, 0, len(text)/maxChars+1)
	start := 0
	for start < len(text) {
		if len(text)-start <= maxChars {
			parts = append(parts, text[start:])
			break
		}
		cut := start + cutPoint(text[start:start+maxChars], maxChars)
		if cut <= start {
			cut = start + maxChars
		}
		parts = append(parts, text[start:cut])
		start = cut
	}

	segments := make([]models.Segment, 0, len(parts))
	for i, part := range parts {
		segments = append(segments, models.Segment{
			Text:         part,
			Index:        i,
			Total:        len(parts),
			ApproxTokens: est.Count(part),
		})
	}
	return segments
}

// cutPoint picks where to end a segment inside a full character window:
// the last paragraph break at or past 80% of the window, else the last
// sentence end, else the full window (hard cut).
func cutPoint(window string, maxChars int) int {
	floor := maxChars * paragraphFloorPct / 100
	if idx := strings.LastIndex(window, "\n\n"); idx >= floor {
		return idx + 2
	}
	if idx := lastSentenceEnd(window); idx > 0 {
		return idx
	}
	log.Warn("segment hard cut inside sentence", "window_chars", maxChars)
	return maxChars
}

// lastSentenceEnd returns the index just past the last sentence-ending
// punctuation that is followed by whitespace or a closing quote, or 0.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		c := s[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 == len(s) {
			return i + 1
		}
		switch s[i+1] {
		case ' ', '\n', '\t', '"', '\'':
			return i + 1
		}
	}
	return 0
}
