package source

import "context"

// Article is one document to pre-classify.
type Article struct {
	ID       string // unique within the source
	URL      string // similarity-index key; may be empty
	Language string // ISO 639-1, empty means the default language
	Text     string
}

// Source yields articles in cursor-paged batches.
type Source interface {
	// GetSourceID returns a stable identifier for this source.
	GetSourceID() string

	// FetchBatch returns up to limit articles starting at cursor ("" for the start).
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: value returned by the previous call, or empty.
	//   - limit: maximum number of articles.
	// Returns:
	//   - items: the batch, possibly empty.
	//   - nextCursor: cursor for the next call, empty when exhausted.
	//   - err: non-nil if reading fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []Article, nextCursor string, err error)
}
