package domain

import "strings"

// CEFRLevel is one of the six Common European Framework proficiency labels.
type CEFRLevel string

const (
	LevelA1 CEFRLevel = "A1"
	LevelA2 CEFRLevel = "A2"
	LevelB1 CEFRLevel = "B1"
	LevelB2 CEFRLevel = "B2"
	LevelC1 CEFRLevel = "C1"
	LevelC2 CEFRLevel = "C2"
)

// Levels lists the labels in ascending order.
var Levels = []CEFRLevel{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// ParseCEFRLevel normalises s ("b2", " B2 ") and reports whether it is a known label.
func ParseCEFRLevel(s string) (CEFRLevel, bool) {
	level := CEFRLevel(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range Levels {
		if l == level {
			return level, true
		}
	}
	return "", false
}

// Confidence labels returned by the classifier. The similarity tier always reports high.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)
