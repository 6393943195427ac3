package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/readlearn/backend/internal/logger"
)

// ClassifierStatus tracks whether the classifier credentials are usable.
type ClassifierStatus struct {
	classifier Classifier
	configured bool
	valid      atomic.Bool
}

// NewClassifierStatus starts out invalid until Validate or MarkValid is called.
func NewClassifierStatus(c Classifier, configured bool) *ClassifierStatus {
	return &ClassifierStatus{classifier: c, configured: configured}
}

// Configured reports whether an API key was supplied.
func (s *ClassifierStatus) Configured() bool { return s.configured }

// Valid reports the last validation result.
func (s *ClassifierStatus) Valid() bool { return s.valid.Load() }

// MarkValid skips the probe and trusts a configured key.
func (s *ClassifierStatus) MarkValid() {
	s.valid.Store(s.configured && s.classifier != nil)
}

// Validate sends a one-token probe and records the result.
func (s *ClassifierStatus) Validate(ctx context.Context) bool {
	if !s.configured || s.classifier == nil {
		logger.CtxError(ctx, "Classifier API key not configured")
		s.valid.Store(false)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	start := time.Now()
	err := ProbeClassifier(ctx, s.classifier)
	if err == nil {
		logger.With(logger.Fields{"model": s.classifier.Model()}).
			WithDuration(time.Since(start)).
			Info(ctx, "Classifier API key validated")
		s.valid.Store(true)
		return true
	}

	var apiErr *ClassifierError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		logger.CtxError(ctx, "Invalid classifier API key: authentication failed")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden:
		logger.CtxError(ctx, "Classifier API key lacks required permissions: %s", apiErr.Message)
	default:
		logger.CtxError(ctx, "Classifier API key validation failed: %v", err)
	}
	logger.CtxWarn(ctx, "Running with an invalid classifier key; classifier-dependent endpoints will return 503")
	s.valid.Store(false)
	return false
}
