package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/readlearn/backend/internal/domain"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/service"
)

// Analyzer resolves CEFR levels.
type Analyzer interface {
	Resolve(ctx context.Context, req service.AnalyzeRequest) (*service.AnalysisResult, error)
}

// AnalyzeHandler handles level assessment.
type AnalyzeHandler struct {
	analyzer        Analyzer
	maxTextLength   int
	defaultLanguage string
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(analyzer Analyzer, maxTextLength int, defaultLanguage string) *AnalyzeHandler {
	if maxTextLength <= 0 {
		maxTextLength = 50000
	}
	if defaultLanguage == "" {
		defaultLanguage = domain.DefaultLanguage
	}
	return &AnalyzeHandler{
		analyzer:        analyzer,
		maxTextLength:   maxTextLength,
		defaultLanguage: defaultLanguage,
	}
}

// AnalyzeRequest is the POST /analyze body.
type AnalyzeRequest struct {
	Text     string `json:"text"`
	URL      string `json:"url"`
	UseCache *bool  `json:"useCache"`
	Language string `json:"language"`
}

// Analyze handles POST /analyze.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		badRequest(c, "Text field is required and must be a string")
		return
	}

	trimmed := strings.TrimSpace(req.Text)
	length := utf8.RuneCountInString(trimmed)
	switch {
	case length < minTextLength:
		badRequest(c, "Text must be at least 10 characters long")
		return
	case length > h.maxTextLength:
		badRequest(c, fmt.Sprintf("Text too long. Maximum %d characters allowed (received %d)", h.maxTextLength, length))
		return
	case !wordPattern.MatchString(trimmed):
		badRequest(c, "Text must contain actual words, not just symbols or whitespace")
		return
	}

	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		language = h.defaultLanguage
	}
	if !domain.IsSupportedLanguage(language) {
		badRequest(c, "Unsupported language: "+req.Language)
		return
	}

	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	result, err := h.analyzer.Resolve(ctx, service.AnalyzeRequest{
		Text:     req.Text,
		URL:      strings.TrimSpace(req.URL),
		Language: language,
		UseCache: useCache,
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Analysis failed")
		switch {
		case errors.Is(err, service.ErrUnsupportedLanguage):
			badRequest(c, err.Error())
		case errors.Is(err, service.ErrClassifierTransport):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis service error"})
		case errors.Is(err, service.ErrClassifierParse):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse analysis"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
