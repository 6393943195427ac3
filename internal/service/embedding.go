package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/readlearn/backend/internal/logger"
	"golang.org/x/sync/singleflight"
)

// EmbeddingModel computes raw vectors for a batch of texts.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// ModelLoader prepares an EmbeddingModel. It runs at most once per successful or
// failed load; a failure disables embeddings for the process lifetime.
type ModelLoader func(ctx context.Context) (EmbeddingModel, error)

// EmbeddingState is the lifecycle of the embedding model.
type EmbeddingState string

const (
	EmbeddingInitialized EmbeddingState = "initialized"
	EmbeddingReady       EmbeddingState = "ready"
	EmbeddingDisabled    EmbeddingState = "disabled"
)

var errNilModel = errors.New("loader returned no model")

// EmbeddingService produces L2-normalised embeddings for text samples. The model is
// loaded lazily on first use; concurrent first calls share a single load.
type EmbeddingService struct {
	loader        ModelLoader
	maxInputChars int

	group singleflight.Group

	mu      sync.RWMutex
	state   EmbeddingState
	model   EmbeddingModel
	loadErr error
}

// NewEmbeddingService creates a service in the initialized state. Nothing is loaded
// until the first Embed or Warmup call.
func NewEmbeddingService(loader ModelLoader, maxInputChars int) *EmbeddingService {
	return &EmbeddingService{
		loader:        loader,
		maxInputChars: maxInputChars,
		state:         EmbeddingInitialized,
	}
}

// State returns the current lifecycle state.
func (s *EmbeddingService) State() EmbeddingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Available reports whether embeddings can still be produced.
func (s *EmbeddingService) Available() bool {
	return s.State() != EmbeddingDisabled
}

// Warmup loads the model ahead of the first request.
func (s *EmbeddingService) Warmup(ctx context.Context) EmbeddingState {
	s.ensureModel(ctx)
	return s.State()
}

// Embed returns the normalised embedding of text truncated to the model's input bound,
// or nil when embeddings are unavailable or this call failed. A nil result means the
// similarity tier should be skipped; it is never an error.
func (s *EmbeddingService) Embed(ctx context.Context, text string) []float32 {
	model := s.ensureModel(ctx)
	if model == nil {
		return nil
	}

	start := time.Now()
	vectors, err := model.Embed(ctx, []string{truncateRunes(text, s.maxInputChars)})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Embedding failed, skipping similarity tier")
		return nil
	}
	if len(vectors) != 1 {
		logger.CtxWarn(ctx, "Embedding model returned %d vectors for one input", len(vectors))
		return nil
	}

	vector := normalizeVector(vectors[0])
	if vector == nil {
		logger.CtxWarn(ctx, "Embedding model returned a zero vector")
		return nil
	}

	logger.With(logger.Fields{"model": model.Name(), "dimensions": len(vector)}).
		WithDuration(time.Since(start)).
		Debug(ctx, "Embedding computed")
	return vector
}

func (s *EmbeddingService) ensureModel(ctx context.Context) EmbeddingModel {
	s.mu.RLock()
	state, model := s.state, s.model
	s.mu.RUnlock()

	switch state {
	case EmbeddingReady:
		return model
	case EmbeddingDisabled:
		return nil
	}

	v, _, _ := s.group.Do("load", func() (interface{}, error) {
		s.mu.RLock()
		if s.state != EmbeddingInitialized {
			m := s.model
			s.mu.RUnlock()
			return m, nil
		}
		s.mu.RUnlock()

		// The load outlives the request that triggered it.
		loaded, err := s.loader(context.WithoutCancel(ctx))
		if err == nil && loaded == nil {
			err = errNilModel
		}

		s.mu.Lock()
		if err != nil {
			s.state = EmbeddingDisabled
			s.loadErr = err
		} else {
			s.state = EmbeddingReady
			s.model = loaded
		}
		s.mu.Unlock()

		if err != nil {
			logger.FromContext(ctx).WithError(err).Error("Embedding model failed to load, similarity cache disabled")
			return nil, nil
		}
		logger.CtxInfo(ctx, "Embedding model ready: %s", loaded.Name())
		return loaded, nil
	})

	m, _ := v.(EmbeddingModel)
	return m
}

// LoadError returns the error that disabled the service, if any.
func (s *EmbeddingService) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// normalizeVector scales v to unit length; a zero vector yields nil.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
