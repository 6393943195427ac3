package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultMaxWords is the sampling budget used when none is configured.
const DefaultMaxWords = 800

const sampleSeparator = "\n...\n"

// HashText returns the hex sha256 of the trimmed, lower-cased text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}

// Sample is the bounded view of an input text that gets hashed, embedded and classified.
type Sample struct {
	Text          string
	Sampled       bool
	OriginalWords int
	SampledWords  int
}

// SmartSample keeps texts within maxWords unchanged. Longer texts are reduced to the
// first 40%, a centred 20% and the last 40% of the budget, joined by "..." lines.
// Very small budgets can make the slices overlap; words are then repeated.
func SmartSample(text string, maxWords int) Sample {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	words := strings.Fields(text)
	if len(words) <= maxWords {
		return Sample{
			Text:          text,
			OriginalWords: len(words),
			SampledWords:  len(words),
		}
	}

	headSize := maxWords * 4 / 10
	midSize := maxWords * 2 / 10
	tailSize := maxWords * 4 / 10

	midStart := (len(words) - midSize) / 2

	head := words[:headSize]
	mid := words[midStart : midStart+midSize]
	tail := words[len(words)-tailSize:]

	var b strings.Builder
	b.WriteString(strings.Join(head, " "))
	b.WriteString(sampleSeparator)
	b.WriteString(strings.Join(mid, " "))
	b.WriteString(sampleSeparator)
	b.WriteString(strings.Join(tail, " "))

	return Sample{
		Text:          b.String(),
		Sampled:       true,
		OriginalWords: len(words),
		SampledWords:  headSize + midSize + tailSize,
	}
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
