package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/readlearn/backend/internal/config"
)

func anthropicServer(t *testing.T, status int) (*httptest.Server, *map[string]interface{}) {
	t.Helper()
	var last map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&last)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"type":  "error",
				"error": map[string]string{"type": "authentication_error", "message": "invalid x-api-key"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content": []map[string]string{
				{"type": "text", "text": `{"cefr_level":"B1",`},
				{"type": "text", "text": `"confidence":"high"}`},
			},
			"usage": map[string]int{"input_tokens": 120, "output_tokens": 40},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestAnthropicClassifier_Complete(t *testing.T) {
	srv, last := anthropicServer(t, http.StatusOK)
	c := NewAnthropicClassifier(&config.ClassifierConfig{
		Provider: "anthropic", Model: "claude-test", APIKey: "key", BaseURL: srv.URL, Timeout: 5 * time.Second,
	})

	got, err := c.Complete(context.Background(), "Assess this", 512)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Text != `{"cefr_level":"B1","confidence":"high"}` {
		t.Errorf("text = %q", got.Text)
	}
	if got.InputTokens != 120 || got.OutputTokens != 40 || got.TotalTokens() != 160 {
		t.Errorf("usage = %d/%d", got.InputTokens, got.OutputTokens)
	}
	if (*last)["max_tokens"] != float64(512) || (*last)["model"] != "claude-test" {
		t.Errorf("request body = %v", *last)
	}
}

func TestAnthropicClassifier_HTTPError(t *testing.T) {
	srv, _ := anthropicServer(t, http.StatusUnauthorized)
	c := NewAnthropicClassifier(&config.ClassifierConfig{
		Provider: "anthropic", Model: "claude-test", APIKey: "bad", BaseURL: srv.URL,
	})

	err := ProbeClassifier(context.Background(), c)
	if !errors.Is(err, ErrClassifierTransport) {
		t.Fatalf("err = %v, want transport error", err)
	}
	var ce *ClassifierError
	if !errors.As(err, &ce) || ce.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %+v, want 401", ce)
	}
}

func TestOpenAIClassifier_Complete(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       map[string]interface{}
		wantText   string
		wantErr    bool
		wantStatus int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: map[string]interface{}{
				"choices": []map[string]interface{}{{"message": map[string]string{"content": "B2"}}},
				"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 2},
			},
			wantText: "B2",
		},
		{
			name:       "server error",
			status:     http.StatusBadGateway,
			body:       map[string]interface{}{"error": map[string]string{"message": "upstream"}},
			wantErr:    true,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "empty choices",
			status: http.StatusOK,
			body:   map[string]interface{}{"choices": []interface{}{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer key" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			c := NewOpenAIClassifier(&config.ClassifierConfig{Model: "m", APIKey: "key", BaseURL: srv.URL + "/"})
			got, err := c.Complete(context.Background(), "prompt", 10)
			if tt.wantErr {
				var ce *ClassifierError
				if !errors.As(err, &ce) || ce.StatusCode != tt.wantStatus {
					t.Fatalf("err = %v, want status %d", err, tt.wantStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if got.Text != tt.wantText {
				t.Errorf("text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}

func TestOpenAIClassifier_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOpenAIClassifier(&config.ClassifierConfig{Model: "m", APIKey: "key", BaseURL: url, Timeout: time.Second})
	_, err := c.Complete(context.Background(), "prompt", 10)
	var ce *ClassifierError
	if !errors.As(err, &ce) || ce.StatusCode != 0 {
		t.Errorf("err = %v, want transport error without status", err)
	}
}

func TestNewClassifier(t *testing.T) {
	if _, err := NewClassifier(&config.ClassifierConfig{Provider: "anthropic", Model: "m"}); err != nil {
		t.Errorf("anthropic: %v", err)
	}
	if _, err := NewClassifier(&config.ClassifierConfig{Provider: "openai-compatible", Model: "m"}); err != nil {
		t.Errorf("openai-compatible: %v", err)
	}
	if _, err := NewClassifier(&config.ClassifierConfig{Provider: "other"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
