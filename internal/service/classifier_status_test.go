package service

import (
	"context"
	"testing"
)

func TestClassifierStatus(t *testing.T) {
	tests := []struct {
		name       string
		classifier Classifier
		configured bool
		want       bool
	}{
		{"valid key", &fakeClassifier{answer: "H"}, true, true},
		{"rejected key", &fakeClassifier{err: &ClassifierError{StatusCode: 401, Message: "invalid x-api-key"}}, true, false},
		{"forbidden", &fakeClassifier{err: &ClassifierError{StatusCode: 403}}, true, false},
		{"network", &fakeClassifier{err: &ClassifierError{Message: "connection refused"}}, true, false},
		{"missing key", &fakeClassifier{answer: "H"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewClassifierStatus(tt.classifier, tt.configured)
			if s.Valid() {
				t.Fatal("status should start invalid")
			}
			if got := s.Validate(context.Background()); got != tt.want || s.Valid() != tt.want {
				t.Errorf("Validate = %v, Valid = %v, want %v", got, s.Valid(), tt.want)
			}
		})
	}
}

func TestClassifierStatus_ProbeUsesOneToken(t *testing.T) {
	c := &fakeClassifier{answer: "H"}
	NewClassifierStatus(c, true).Validate(context.Background())
	if c.calls != 1 || c.prompts[0] != "Hi" {
		t.Errorf("probe prompts = %v", c.prompts)
	}
}

func TestClassifierStatus_MarkValid(t *testing.T) {
	s := NewClassifierStatus(&fakeClassifier{}, true)
	s.MarkValid()
	if !s.Valid() {
		t.Error("configured key should be trusted")
	}
	s = NewClassifierStatus(&fakeClassifier{}, false)
	s.MarkValid()
	if s.Valid() {
		t.Error("missing key cannot be valid")
	}
}
