package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/storage"
)

const parseFailurePrefix = "parse-failures"

// ResponseArchive keeps unparseable model answers so prompt drift can be inspected later.
// A nil archive or a nil store discards everything.
type ResponseArchive struct {
	store storage.ObjectStorage
	now   func() time.Time
}

// NewResponseArchive creates an archive writing to store.
func NewResponseArchive(store storage.ObjectStorage) *ResponseArchive {
	return &ResponseArchive{store: store, now: time.Now}
}

// ParseFailureKey returns the object key for a failed answer to the sample with textHash.
func ParseFailureKey(at time.Time, textHash string) string {
	return fmt.Sprintf("%s/%s/%s.txt", parseFailurePrefix, at.UTC().Format("2006/01/02"), textHash)
}

// SaveParseFailure uploads raw under ParseFailureKey once per day and sample.
// Failures are logged only.
func (a *ResponseArchive) SaveParseFailure(ctx context.Context, textHash, raw string) {
	if a == nil || a.store == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	key := ParseFailureKey(a.now(), textHash)
	if exists, err := a.store.Exists(ctx, key); err == nil && exists {
		return
	}

	body := []byte(raw)
	if err := a.store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "text/plain; charset=utf-8"); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("key", key).Warn("Failed to archive unparseable response")
		return
	}
	logger.CtxDebug(ctx, "Archived unparseable response to %s", key)
}
