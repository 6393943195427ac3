package localdir

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/source"
)

const (
	// ManifestFileName is the JSONL manifest at the root of a source directory.
	ManifestFileName = "manifest.jsonl"
	// ArticlesDir holds the text files named by the manifest.
	ArticlesDir = "articles"
)

// ManifestItem is one line of manifest.jsonl.
type ManifestItem struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Language string `json:"language"`
	File     string `json:"file"`
}

// Adapter reads articles from a directory:
//
//	<dir>/manifest.jsonl
//	<dir>/articles/<file>
type Adapter struct {
	basePath string
	items    []ManifestItem
	loaded   bool
}

// NewAdapter creates an adapter over basePath. Nothing is read until the first FetchBatch.
func NewAdapter(basePath string) *Adapter {
	return &Adapter{basePath: basePath}
}

// GetSourceID returns "localdir:" plus the directory name.
func (a *Adapter) GetSourceID() string {
	return "localdir:" + filepath.Base(a.basePath)
}

// FetchBatch returns the next articles in manifest order. The cursor is a manifest index.
// Articles whose file cannot be read are skipped with a warning.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.Article, string, error) {
	if !a.loaded {
		if err := a.loadManifest(); err != nil {
			return nil, "", fmt.Errorf("failed to load manifest: %w", err)
		}
		a.loaded = true
	}

	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if start >= len(a.items) {
		return []source.Article{}, "", nil
	}

	end := start + limit
	if end > len(a.items) {
		end = len(a.items)
	}

	batch := make([]source.Article, 0, end-start)
	for _, item := range a.items[start:end] {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		text, err := os.ReadFile(filepath.Join(a.basePath, ArticlesDir, item.File))
		if err != nil {
			logger.FromContext(ctx).WithError(err).WithField("id", item.ID).Warn("Skipping unreadable article")
			continue
		}
		batch = append(batch, source.Article{
			ID:       item.ID,
			URL:      item.URL,
			Language: item.Language,
			Text:     string(text),
		})
	}

	next := ""
	if end < len(a.items) {
		next = strconv.Itoa(end)
	}
	return batch, next, nil
}

func (a *Adapter) loadManifest() error {
	path := filepath.Join(a.basePath, ManifestFileName)
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("manifest file not found: %s", path)
	}
	if err != nil {
		return err
	}
	defer file.Close()

	a.items = a.items[:0]
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var item ManifestItem
		if err := json.Unmarshal([]byte(text), &item); err != nil {
			logger.Warn("manifest line %d: %v", line, err)
			continue
		}
		if item.File == "" {
			continue
		}
		if item.ID == "" {
			item.ID = item.File
		}
		a.items = append(a.items, item)
	}
	return scanner.Err()
}
