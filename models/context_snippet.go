package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ContextSnippet speichert das aggregierte Rechercheergebnis einer Firma:
// pro Feld einen Insight-Text, dazu die deduplizierte Liste der Quell-URLs
// und einen gerenderten Report. Wird einmal geschrieben und danach nie mutiert.
type ContextSnippet struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	EntityType  string         `json:"entity_type" gorm:"index:idx_snippet_entity;not null"`
	EntityID    uint           `json:"entity_id" gorm:"index:idx_snippet_entity;not null"`
	SnippetType string         `json:"snippet_type" gorm:"not null"`
	Content     string         `json:"content" gorm:"type:text;not null"`
	Payload     datatypes.JSON `json:"payload" gorm:"not null"`
	SourceURLs  datatypes.JSON `json:"source_urls"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (ContextSnippet) TableName() string {
	return "context_snippets"
}

// Insights dekodiert das Payload-Feld in eine Feld→Insight-Map.
func (s *ContextSnippet) Insights() map[string]string {
	insights := map[string]string{}
	if len(s.Payload) > 0 {
		_ = json.Unmarshal(s.Payload, &insights)
	}
	return insights
}

// Sources dekodiert die gespeicherten Quell-URLs.
func (s *ContextSnippet) Sources() []string {
	var urls []string
	if len(s.SourceURLs) > 0 {
		_ = json.Unmarshal(s.SourceURLs, &urls)
	}
	return urls
}
