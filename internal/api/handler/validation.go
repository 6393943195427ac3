package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	minTextLength = 10
	maxWordLength = 100
)

var (
	// at least one run of two Latin letters, accented ones included
	wordPattern   = regexp.MustCompile(`[a-zA-Z\x{00C0}-\x{024F}]{2,}`)
	htmlPattern   = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	scriptPattern = regexp.MustCompile(`(?i)(javascript:|on\w+=|<script)`)
)

// sanitize trims whitespace and strips NUL bytes.
func sanitize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\x00", "")
}

func containsHTMLOrScript(s string) bool {
	return htmlPattern.MatchString(s) || scriptPattern.MatchString(s)
}

// validateWord returns an error message, or "" when word is acceptable.
func validateWord(word string) string {
	switch {
	case word == "":
		return "Word cannot be empty"
	case len([]rune(word)) > maxWordLength:
		return "Word too long. Maximum 100 characters allowed"
	case containsHTMLOrScript(word):
		return "Word contains invalid characters (HTML or script content not allowed)"
	}
	return ""
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Bad Request",
		"message": message,
	})
}
