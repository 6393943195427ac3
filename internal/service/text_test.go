package service

import (
	"fmt"
	"strings"
	"testing"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestHashText(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"trim and case fold", " Bonjour ", "bonjour", true},
		{"newlines trimmed", "\nLe chat\t", "le chat", true},
		{"inner whitespace kept", "le  chat", "le chat", false},
		{"different text", "bonjour", "bonsoir", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashText(tt.a) == HashText(tt.b)
			if got != tt.same {
				t.Errorf("HashText(%q) == HashText(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}

	h := HashText("bonjour")
	if len(h) != 64 {
		t.Errorf("hash length = %d, want 64", len(h))
	}
	if h != HashText("bonjour") {
		t.Error("hash is not deterministic")
	}
}

func TestSmartSample_ShortTextUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		words    int
		maxWords int
	}{
		{"well under budget", 10, 800},
		{"exactly at budget", 800, 800},
		{"small budget", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := numberedWords(tt.words)
			s := SmartSample(text, tt.maxWords)
			if s.Sampled {
				t.Error("expected sampled=false")
			}
			if s.Text != text {
				t.Error("text should be returned unchanged")
			}
			if s.OriginalWords != tt.words || s.SampledWords != tt.words {
				t.Errorf("word counts = %d/%d, want %d", s.OriginalWords, s.SampledWords, tt.words)
			}
		})
	}
}

func TestSmartSample_LongText(t *testing.T) {
	tests := []struct {
		name     string
		words    int
		maxWords int
	}{
		{"default budget", 2000, 800},
		{"just over budget", 801, 800},
		{"odd budget", 1000, 333},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SmartSample(numberedWords(tt.words), tt.maxWords)
			if !s.Sampled {
				t.Fatal("expected sampled=true")
			}
			want := tt.maxWords*4/10 + tt.maxWords*2/10 + tt.maxWords*4/10
			if s.SampledWords != want {
				t.Errorf("SampledWords = %d, want %d", s.SampledWords, want)
			}
			if s.OriginalWords != tt.words {
				t.Errorf("OriginalWords = %d, want %d", s.OriginalWords, tt.words)
			}

			parts := strings.Split(s.Text, sampleSeparator)
			if len(parts) != 3 {
				t.Fatalf("expected 3 parts, got %d", len(parts))
			}
			got := 0
			for _, p := range parts {
				got += len(strings.Fields(p))
			}
			if got != want {
				t.Errorf("sample contains %d words, want %d", got, want)
			}
		})
	}
}

func TestSmartSample_SliceBoundaries(t *testing.T) {
	s := SmartSample(numberedWords(2000), 800)
	parts := strings.Split(s.Text, sampleSeparator)

	head := strings.Fields(parts[0])
	mid := strings.Fields(parts[1])
	tail := strings.Fields(parts[2])

	if head[0] != "w0" || head[len(head)-1] != "w319" {
		t.Errorf("head = %s..%s", head[0], head[len(head)-1])
	}
	// midStart = (2000-160)/2 = 920
	if mid[0] != "w920" || mid[len(mid)-1] != "w1079" {
		t.Errorf("mid = %s..%s", mid[0], mid[len(mid)-1])
	}
	if tail[0] != "w1680" || tail[len(tail)-1] != "w1999" {
		t.Errorf("tail = %s..%s", tail[0], tail[len(tail)-1])
	}
}

func TestSmartSample_SameSampleForDifferentLengths(t *testing.T) {
	// Texts differing only in words the sampler drops collapse to one hash.
	base := strings.Fields(numberedWords(3000))
	variant := append([]string(nil), base...)
	variant[500] = "changed"

	a := SmartSample(strings.Join(base, " "), 800)
	b := SmartSample(strings.Join(variant, " "), 800)
	if HashText(a.Text) != HashText(b.Text) {
		t.Error("expected identical samples to hash identically")
	}
}

func TestSmartSample_DefaultBudget(t *testing.T) {
	s := SmartSample(numberedWords(900), 0)
	if !s.Sampled || s.SampledWords != DefaultMaxWords {
		t.Errorf("zero budget should use default: %+v", s)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("éléphant", 3); got != "élé" {
		t.Errorf("truncateRunes = %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("truncateRunes = %q", got)
	}
}
