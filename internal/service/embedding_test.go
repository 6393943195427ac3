package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/readlearn/backend/internal/config"
)

// fakeModel returns a fixed vector, or a vector chosen by vectorFor.
type fakeModel struct {
	mu        sync.Mutex
	inputs    []string
	vectorFor func(text string) []float32
	err       error
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, texts...)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.vectorFor != nil {
			out[i] = m.vectorFor(text)
		} else {
			out[i] = []float32{3, 4}
		}
	}
	return out, nil
}

func staticLoader(m EmbeddingModel) ModelLoader {
	return func(context.Context) (EmbeddingModel, error) { return m, nil }
}

func TestEmbeddingService_LazyLoadAndNormalize(t *testing.T) {
	var loads int32
	model := &fakeModel{}
	svc := NewEmbeddingService(func(context.Context) (EmbeddingModel, error) {
		atomic.AddInt32(&loads, 1)
		return model, nil
	}, 512)

	if svc.State() != EmbeddingInitialized {
		t.Fatalf("state = %s, want initialized", svc.State())
	}
	if atomic.LoadInt32(&loads) != 0 {
		t.Fatal("model must not load before first use")
	}

	v := svc.Embed(context.Background(), "Le chat dort.")
	if len(v) != 2 || math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("embedding = %v, want [0.6 0.8]", v)
	}
	if svc.State() != EmbeddingReady {
		t.Errorf("state = %s, want ready", svc.State())
	}

	svc.Embed(context.Background(), "encore")
	if atomic.LoadInt32(&loads) != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
}

func TestEmbeddingService_SingleFlightLoad(t *testing.T) {
	var loads int32
	release := make(chan struct{})
	svc := NewEmbeddingService(func(context.Context) (EmbeddingModel, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return &fakeModel{}, nil
	}, 512)

	const callers = 16
	var started, done sync.WaitGroup
	results := make([][]float32, callers)
	for i := 0; i < callers; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i] = svc.Embed(context.Background(), "texte")
		}(i)
	}
	started.Wait()
	close(release)
	done.Wait()

	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	for i, r := range results {
		if r == nil {
			t.Errorf("caller %d got nil embedding", i)
		}
	}
}

func TestEmbeddingService_LoadFailureDisablesPermanently(t *testing.T) {
	var loads int32
	svc := NewEmbeddingService(func(context.Context) (EmbeddingModel, error) {
		atomic.AddInt32(&loads, 1)
		return nil, errors.New("model download failed")
	}, 512)

	for i := 0; i < 3; i++ {
		if v := svc.Embed(context.Background(), "texte"); v != nil {
			t.Fatalf("call %d: expected nil embedding, got %v", i, v)
		}
	}
	if svc.State() != EmbeddingDisabled || svc.Available() {
		t.Errorf("state = %s, want disabled", svc.State())
	}
	if atomic.LoadInt32(&loads) != 1 {
		t.Errorf("loader retried %d times, want exactly 1 attempt", loads)
	}
	if svc.LoadError() == nil {
		t.Error("expected load error to be kept")
	}
}

func TestEmbeddingService_NilModelDisables(t *testing.T) {
	svc := NewEmbeddingService(staticLoader(nil), 512)
	if svc.Warmup(context.Background()) != EmbeddingDisabled {
		t.Error("a loader returning no model should disable the service")
	}
}

func TestEmbeddingService_TransientFailureKeepsReady(t *testing.T) {
	model := &fakeModel{err: errors.New("timeout")}
	svc := NewEmbeddingService(staticLoader(model), 512)

	if v := svc.Embed(context.Background(), "texte"); v != nil {
		t.Fatalf("expected nil on transient failure, got %v", v)
	}
	if svc.State() != EmbeddingReady {
		t.Fatalf("state = %s, transient failure must not disable", svc.State())
	}

	model.err = nil
	if v := svc.Embed(context.Background(), "texte"); v == nil {
		t.Error("expected embedding once the model recovers")
	}
}

func TestEmbeddingService_TruncatesInput(t *testing.T) {
	model := &fakeModel{}
	svc := NewEmbeddingService(staticLoader(model), 10)

	svc.Embed(context.Background(), "ééééééééééééééééééééé")
	if len(model.inputs) != 1 || utf8.RuneCountInString(model.inputs[0]) != 10 {
		t.Errorf("model input = %q, want 10 runes", model.inputs)
	}
}

func TestEmbeddingService_ZeroVector(t *testing.T) {
	model := &fakeModel{vectorFor: func(string) []float32 { return []float32{0, 0} }}
	svc := NewEmbeddingService(staticLoader(model), 512)
	if v := svc.Embed(context.Background(), "x"); v != nil {
		t.Errorf("zero vector should yield nil, got %v", v)
	}
}

func newEmbeddingServer(t *testing.T, dims int, status int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "bad key"})
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": "boom"}})
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[i%dims] = 1
			data[i] = map[string]interface{}{"embedding": vec, "index": i}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRemoteModelLoader(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		apiKey    string
		serveDims int
		status    int
		wantState EmbeddingState
	}{
		{"jina ok", "jina", "key", 8, http.StatusOK, EmbeddingReady},
		{"openai-compatible ok", "openai-compatible", "key", 8, http.StatusOK, EmbeddingReady},
		{"missing key", "jina", "", 8, http.StatusOK, EmbeddingDisabled},
		{"wrong key", "jina", "nope", 8, http.StatusOK, EmbeddingDisabled},
		{"dimension mismatch", "jina", "key", 4, http.StatusOK, EmbeddingDisabled},
		{"server error", "openai-compatible", "key", 8, http.StatusInternalServerError, EmbeddingDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newEmbeddingServer(t, tt.serveDims, tt.status)
			loader := NewRemoteModelLoader(&config.EmbeddingConfig{
				Provider:      tt.provider,
				Model:         "test-model",
				APIKey:        tt.apiKey,
				BaseURL:       srv.URL,
				Dimensions:    8,
				MaxInputChars: 512,
			})
			svc := NewEmbeddingService(loader, 512)
			if got := svc.Warmup(context.Background()); got != tt.wantState {
				t.Fatalf("state = %s, want %s (load error: %v)", got, tt.wantState, svc.LoadError())
			}
			if tt.wantState == EmbeddingReady {
				if v := svc.Embed(context.Background(), "bonjour"); len(v) != 8 {
					t.Errorf("embedding length = %d, want 8", len(v))
				}
			}
		})
	}
}
