package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray stores a string slice as a JSON text column.
type StringArray []string

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	raw, err := scanText(value)
	if err != nil {
		return err
	}
	if raw == nil {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

func scanText(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported column type for JSON text")
	}
}

// Analysis is an exact-match cache entry keyed by the hash of a text sample.
// HitCount starts at 1 and only grows.
type Analysis struct {
	ID                 uint        `gorm:"primaryKey" json:"-"`
	TextHash           string      `gorm:"type:varchar(64);uniqueIndex:idx_analyses_text_hash;not null" json:"text_hash"`
	URL                *string     `gorm:"type:text" json:"url,omitempty"`
	Language           string      `gorm:"type:varchar(8);index:idx_analyses_language" json:"language"`
	CEFRLevel          CEFRLevel   `gorm:"column:cefr_level;type:varchar(2);not null" json:"cefr_level"`
	Confidence         string      `gorm:"type:varchar(16)" json:"confidence"`
	VocabularyExamples StringArray `gorm:"type:text" json:"vocabulary_examples"`
	GrammarFeatures    StringArray `gorm:"type:text" json:"grammar_features"`
	Reasoning          string      `gorm:"type:text" json:"reasoning"`
	WordCount          int         `json:"word_count"`
	HitCount           int         `gorm:"not null;default:1" json:"hit_count"`
	LastAccessed       time.Time   `json:"last_accessed"`
	CreatedAt          time.Time   `json:"created_at"`
}

// TableName returns the table name for Analysis.
func (Analysis) TableName() string {
	return "analyses"
}
