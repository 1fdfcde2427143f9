package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/dharsanguruparan/cvdrop/internal/model"
)

// Thresholds are the minimums a text must reach to be considered usable.
type Thresholds struct {
	MinTextLength int
	MinWordCount  int
}

// Analyze computes statistics for text and the quality verdict. It is pure:
// the same inputs always yield the same Stats.
func Analyze(text string, th Thresholds) model.Stats {
	if text == "" {
		return model.Stats{}
	}
	lines := strings.Split(text, "\n")
	nonEmpty := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty++
		}
	}
	words := len(strings.Fields(text))
	return model.Stats{
		CharacterCount: utf8.RuneCountInString(text),
		WordCount:      words,
		LineCount:      len(lines),
		NonEmptyLines:  nonEmpty,
		IsValid:        isUsable(text, words, th),
	}
}

func isUsable(text string, words int, th Thresholds) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if utf8.RuneCountInString(trimmed) < th.MinTextLength {
		return false
	}
	return words >= th.MinWordCount
}
