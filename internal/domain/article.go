package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Vector stores an embedding as a JSON float array so both sqlite and postgres can hold it.
type Vector []float32

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(value interface{}) error {
	raw, err := scanText(value)
	if err != nil {
		return err
	}
	if raw == nil {
		*v = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]float32)(v))
}

// ArticleEmbedding is a similarity-index entry, one per source URL.
// Re-analysing a URL replaces its embedding and level; AccessCount only grows.
type ArticleEmbedding struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	URL          string    `gorm:"type:text;uniqueIndex:idx_article_embeddings_url;not null" json:"url"`
	URLHash      string    `gorm:"type:varchar(64);index:idx_article_embeddings_url_hash" json:"url_hash"`
	Language     string    `gorm:"type:varchar(8)" json:"language"`
	TextPreview  string    `gorm:"type:text" json:"text_preview"`
	Embedding    Vector    `gorm:"type:text" json:"-"`
	CEFRLevel    CEFRLevel `gorm:"column:cefr_level;type:varchar(2)" json:"cefr_level"`
	WordCount    int       `json:"word_count"`
	AccessCount  int       `gorm:"not null;default:0" json:"access_count"`
	LastAccessed time.Time `json:"last_accessed"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the table name for ArticleEmbedding.
func (ArticleEmbedding) TableName() string {
	return "article_embeddings"
}
