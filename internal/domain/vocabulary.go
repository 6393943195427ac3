package domain

import "time"

// VocabularyEntry caches a definition per (word, language). Word is stored lower-cased.
type VocabularyEntry struct {
	ID          uint        `gorm:"primaryKey" json:"-"`
	Word        string      `gorm:"type:varchar(100);uniqueIndex:idx_vocabulary_word_language;not null" json:"word"`
	Language    string      `gorm:"type:varchar(8);uniqueIndex:idx_vocabulary_word_language;not null" json:"language"`
	Definition  string      `gorm:"type:text" json:"definition"`
	Translation string      `gorm:"type:text" json:"translation"`
	CEFRLevel   string      `gorm:"column:cefr_level;type:varchar(2)" json:"cefr,omitempty"`
	WordType    string      `gorm:"type:varchar(32)" json:"type,omitempty"`
	Examples    StringArray `gorm:"type:text" json:"examples,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TableName returns the table name for VocabularyEntry.
func (VocabularyEntry) TableName() string {
	return "vocabulary_cache"
}

// DictionaryWord is a row of the imported French frequency dictionary.
type DictionaryWord struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	Word         string `gorm:"type:varchar(100);index:idx_french_dictionary_word" json:"word"`
	Translation  string `gorm:"type:text" json:"translation"`
	PartOfSpeech string `gorm:"type:varchar(32)" json:"part_of_speech"`
	DefinitionEN string `gorm:"column:definition_en;type:text" json:"definition_en"`
	DefinitionFR string `gorm:"column:definition_fr;type:text" json:"definition_fr"`
	Frequency    int    `json:"frequency"`
}

// TableName returns the table name for DictionaryWord.
func (DictionaryWord) TableName() string {
	return "french_dictionary"
}

// LearnedWord is a definition learned from the classifier, counted per re-learn.
type LearnedWord struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	Word         string    `gorm:"type:varchar(100);uniqueIndex:idx_learned_dictionary_word;not null" json:"word"`
	Translation  string    `gorm:"type:text" json:"translation"`
	PartOfSpeech string    `gorm:"type:varchar(32)" json:"part_of_speech"`
	DefinitionEN string    `gorm:"column:definition_en;type:text" json:"definition_en"`
	LearnCount   int       `gorm:"not null;default:1" json:"learn_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the table name for LearnedWord.
func (LearnedWord) TableName() string {
	return "learned_dictionary"
}
