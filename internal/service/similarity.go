package service

import (
	"context"
	"math"
	"sort"

	"github.com/readlearn/backend/internal/domain"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/repository"
)

// SimilarityThreshold is the cosine similarity a stored article must exceed for its
// level to be reused.
const SimilarityThreshold = 0.90

// SimilarMatch is one article whose embedding is close to the query.
type SimilarMatch struct {
	URL        string
	CEFRLevel  domain.CEFRLevel
	WordCount  int
	Similarity float64
}

// SimilarityIndex finds previously classified articles close to an embedding.
// FindSimilar never fails: store errors are logged and yield no matches.
type SimilarityIndex interface {
	FindSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) []SimilarMatch
	Touch(ctx context.Context, url string) error
	UpsertOnConflict(ctx context.Context, entry *domain.ArticleEmbedding) error
	Count(ctx context.Context) (int64, error)
}

// ArticleStore is the relational side of the index.
type ArticleStore interface {
	UpsertOnConflict(ctx context.Context, entry *domain.ArticleEmbedding) error
	Touch(ctx context.Context, url string) error
	ScanEmbeddings(ctx context.Context, batchSize int, fn func([]domain.ArticleEmbedding) error) error
	Count(ctx context.Context) (int64, error)
}

// VectorStore is an external nearest-neighbour store.
type VectorStore interface {
	Upsert(ctx context.Context, vector []float32, payload *repository.ArticlePayload) error
	Search(ctx context.Context, vector []float32, topK int, minScore float32) ([]repository.SearchResult, error)
	Count(ctx context.Context) (int64, error)
}

// selectMatches keeps candidates strictly above threshold, best first, at most limit.
func selectMatches(candidates []SimilarMatch, threshold float64, limit int) []SimilarMatch {
	out := make([]SimilarMatch, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity > threshold {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// cosineSimilarity returns 1 - cosine distance, or false when the vectors cannot be compared.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

// DatabaseIndex scans embeddings stored in the article_embeddings table.
type DatabaseIndex struct {
	store     ArticleStore
	batchSize int
}

// NewDatabaseIndex creates an index over the relational store.
func NewDatabaseIndex(store ArticleStore) *DatabaseIndex {
	return &DatabaseIndex{store: store, batchSize: 500}
}

// FindSimilar compares embedding against every stored entry.
func (i *DatabaseIndex) FindSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) []SimilarMatch {
	if len(embedding) == 0 {
		return []SimilarMatch{}
	}

	var candidates []SimilarMatch
	err := i.store.ScanEmbeddings(ctx, i.batchSize, func(batch []domain.ArticleEmbedding) error {
		for _, entry := range batch {
			sim, ok := cosineSimilarity(embedding, entry.Embedding)
			if !ok || sim <= threshold {
				continue
			}
			candidates = append(candidates, SimilarMatch{
				URL:        entry.URL,
				CEFRLevel:  entry.CEFRLevel,
				WordCount:  entry.WordCount,
				Similarity: sim,
			})
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Similarity scan failed")
		return []SimilarMatch{}
	}
	return selectMatches(candidates, threshold, limit)
}

// Touch records an access to url.
func (i *DatabaseIndex) Touch(ctx context.Context, url string) error {
	return i.store.Touch(ctx, url)
}

// UpsertOnConflict stores or replaces the entry for its URL.
func (i *DatabaseIndex) UpsertOnConflict(ctx context.Context, entry *domain.ArticleEmbedding) error {
	return i.store.UpsertOnConflict(ctx, entry)
}

// Count returns the number of indexed URLs.
func (i *DatabaseIndex) Count(ctx context.Context) (int64, error) {
	return i.store.Count(ctx)
}

// QdrantIndex keeps vectors in Qdrant and metadata and counters in the relational store.
type QdrantIndex struct {
	vectors VectorStore
	store   ArticleStore
}

// NewQdrantIndex creates an index backed by a Qdrant collection.
func NewQdrantIndex(vectors VectorStore, store ArticleStore) *QdrantIndex {
	return &QdrantIndex{vectors: vectors, store: store}
}

// FindSimilar asks Qdrant for candidates above threshold and applies the strict boundary.
func (i *QdrantIndex) FindSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) []SimilarMatch {
	if len(embedding) == 0 {
		return []SimilarMatch{}
	}
	topK := limit
	if topK <= 0 {
		topK = 10
	}

	results, err := i.vectors.Search(ctx, embedding, topK, float32(threshold))
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Qdrant search failed")
		return []SimilarMatch{}
	}

	candidates := make([]SimilarMatch, 0, len(results))
	for _, r := range results {
		if r.Payload == nil || r.Payload.URL == "" {
			continue
		}
		candidates = append(candidates, SimilarMatch{
			URL:        r.Payload.URL,
			CEFRLevel:  domain.CEFRLevel(r.Payload.CEFRLevel),
			WordCount:  r.Payload.WordCount,
			Similarity: float64(r.Score),
		})
	}
	return selectMatches(candidates, threshold, limit)
}

// Touch records an access to url.
func (i *QdrantIndex) Touch(ctx context.Context, url string) error {
	return i.store.Touch(ctx, url)
}

// UpsertOnConflict writes the row first, then the point.
func (i *QdrantIndex) UpsertOnConflict(ctx context.Context, entry *domain.ArticleEmbedding) error {
	if err := i.store.UpsertOnConflict(ctx, entry); err != nil {
		return err
	}
	return i.vectors.Upsert(ctx, entry.Embedding, &repository.ArticlePayload{
		URL:       entry.URL,
		CEFRLevel: string(entry.CEFRLevel),
		Language:  entry.Language,
		WordCount: entry.WordCount,
	})
}

// Count returns the number of points in the collection.
func (i *QdrantIndex) Count(ctx context.Context) (int64, error) {
	return i.vectors.Count(ctx)
}
