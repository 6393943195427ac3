package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/service"
)

const maxBatchWords = 100

// Definer defines words.
type Definer interface {
	Define(ctx context.Context, req service.DefineRequest) (*service.Definition, error)
	DefineBatch(ctx context.Context, words []string, language string) (*service.BatchDefinitions, error)
}

// DefineHandler handles word definitions.
type DefineHandler struct {
	definer Definer
}

// NewDefineHandler creates a new define handler.
func NewDefineHandler(definer Definer) *DefineHandler {
	return &DefineHandler{definer: definer}
}

// DefineRequest is the POST /define body.
type DefineRequest struct {
	Word           string `json:"word"`
	Context        string `json:"context"`
	Language       string `json:"language"`
	TargetLanguage string `json:"targetLanguage"`
	ForceAI        bool   `json:"forceAI"`
}

// DefineBatchRequest is the POST /define-batch body. Words are strings or {"word": "..."} objects.
type DefineBatchRequest struct {
	Words    []json.RawMessage `json:"words"`
	Language string            `json:"language"`
}

// Define handles POST /define.
func (h *DefineHandler) Define(c *gin.Context) {
	var req DefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Word field is required and must be a string")
		return
	}
	word := sanitize(req.Word)
	if req.Word == "" {
		badRequest(c, "Word field is required and must be a string")
		return
	}
	if msg := validateWord(word); msg != "" {
		badRequest(c, msg)
		return
	}

	def, err := h.definer.Define(c.Request.Context(), service.DefineRequest{
		Word:           word,
		Context:        sanitize(req.Context),
		Language:       req.Language,
		TargetLanguage: req.TargetLanguage,
		ForceAI:        req.ForceAI,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	def.Word = ""
	c.JSON(http.StatusOK, def)
}

// DefineBatch handles POST /define-batch.
func (h *DefineHandler) DefineBatch(c *gin.Context) {
	var req DefineBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Words) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Words array is required"})
		return
	}
	if len(req.Words) > maxBatchWords {
		badRequest(c, "Too many words. Maximum 100 per batch")
		return
	}

	words := make([]string, 0, len(req.Words))
	for _, raw := range req.Words {
		word, ok := decodeBatchWord(raw)
		if !ok {
			badRequest(c, "Each word must be a string or an object with a word field")
			return
		}
		word = sanitize(word)
		if msg := validateWord(word); msg != "" {
			badRequest(c, msg)
			return
		}
		words = append(words, word)
	}

	result, err := h.definer.DefineBatch(c.Request.Context(), words, req.Language)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *DefineHandler) fail(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).WithError(err).Error("Definition failed")
	if errors.Is(err, service.ErrUnsupportedLanguage) {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal server error",
		"message": err.Error(),
	})
}

func decodeBatchWord(raw json.RawMessage) (string, bool) {
	var word string
	if err := json.Unmarshal(raw, &word); err == nil {
		return word, true
	}
	var obj struct {
		Word string `json:"word"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Word != "" {
		return obj.Word, true
	}
	return "", false
}
