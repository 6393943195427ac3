package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/readlearn/backend/internal/domain"
)

// ParseStrategy names the extraction step that produced a parse result.
type ParseStrategy string

const (
	StrategyStrict ParseStrategy = "strict"
	StrategyFenced ParseStrategy = "fenced"
	StrategyBraces ParseStrategy = "braces"
	StrategyFailed ParseStrategy = "failed"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Classification is the level assessment returned by the model.
type Classification struct {
	CEFRLevel          domain.CEFRLevel `json:"cefr_level"`
	Confidence         string           `json:"confidence"`
	VocabularyExamples []string         `json:"vocabulary_examples"`
	GrammarFeatures    []string         `json:"grammar_features"`
	Reasoning          string           `json:"reasoning"`
}

// ParseOutcome is the tagged result of reading a model answer.
type ParseOutcome struct {
	Strategy ParseStrategy
	Result   *Classification
	Err      error
}

// OK reports whether a classification was extracted.
func (o ParseOutcome) OK() bool {
	return o.Strategy != StrategyFailed && o.Result != nil
}

// ParseClassification reads a level assessment, trying the whole answer as JSON, then a
// fenced code block, then the outermost {...} span. The level must be one of A1..C2.
func ParseClassification(raw string) ParseOutcome {
	var payload struct {
		CEFRLevel          string   `json:"cefr_level"`
		Confidence         string   `json:"confidence"`
		VocabularyExamples []string `json:"vocabulary_examples"`
		GrammarFeatures    []string `json:"grammar_features"`
		Reasoning          string   `json:"reasoning"`
	}

	strategy, err := extractJSON(raw, '{', '}', &payload)
	if err != nil {
		return ParseOutcome{Strategy: StrategyFailed, Err: err}
	}

	level, ok := domain.ParseCEFRLevel(payload.CEFRLevel)
	if !ok {
		return ParseOutcome{
			Strategy: StrategyFailed,
			Err:      fmt.Errorf("unknown cefr_level %q", payload.CEFRLevel),
		}
	}

	result := &Classification{
		CEFRLevel:          level,
		Confidence:         strings.ToLower(strings.TrimSpace(payload.Confidence)),
		VocabularyExamples: payload.VocabularyExamples,
		GrammarFeatures:    payload.GrammarFeatures,
		Reasoning:          payload.Reasoning,
	}
	if result.VocabularyExamples == nil {
		result.VocabularyExamples = []string{}
	}
	if result.GrammarFeatures == nil {
		result.GrammarFeatures = []string{}
	}
	return ParseOutcome{Strategy: strategy, Result: result}
}

// extractJSON decodes raw into out using the same three steps as ParseClassification.
// open and close delimit the span tried last: '{' '}' for objects, '[' ']' for arrays.
func extractJSON(raw string, open, close byte, out interface{}) (ParseStrategy, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StrategyFailed, errors.New("empty response")
	}

	if json.Unmarshal([]byte(trimmed), out) == nil {
		return StrategyStrict, nil
	}

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		if json.Unmarshal([]byte(strings.TrimSpace(m[1])), out) == nil {
			return StrategyFenced, nil
		}
	}

	start := strings.IndexByte(trimmed, open)
	end := strings.LastIndexByte(trimmed, close)
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err == nil {
			return StrategyBraces, nil
		}
	}

	return StrategyFailed, errors.New("no JSON found in response")
}
