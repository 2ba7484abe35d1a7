package summarize

import "strings"

const (
	NoErrorPlaceholder = "No error to summarize"
	NoNotesPlaceholder = "No notes to summarize"

	maxSummaryWords   = 100
	floorSummaryWords = 5
	minSummaryWords   = 3
)

// Length bounds a requested summary, in words.
type Length struct {
	Min int
	Max int
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}

// TargetLength derives summary bounds from the input size. Max is clamped to
// [5, 100] and then never exceeds the input word count once the input has at
// least three words, so 3 <= Max <= 100 always holds.
func TargetLength(text string) Length {
	words := WordCount(text)
	limit := words
	if limit > maxSummaryWords {
		limit = maxSummaryWords
	}
	if limit < floorSummaryWords {
		limit = floorSummaryWords
	}
	if ceiling := max(words, minSummaryWords); limit > ceiling {
		limit = ceiling
	}
	return Length{Min: min(minSummaryWords, limit), Max: limit}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// clampWords trims a backend reply to at most n words.
func clampWords(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
