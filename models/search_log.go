package models

import (
	"time"

	"gorm.io/datatypes"
)

// SearchLog protokolliert eine einzelne ausgeführte Suchanfrage. Die Referenz
// auf das ContextSnippet ist bewusst nullable: die Zeilen entstehen während
// des Laufs und werden erst nach dem Anlegen des Snippets nachträglich
// verknüpft.
type SearchLog struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	ContextSnippetID *uint          `json:"context_snippet_id" gorm:"index"`
	Iteration        string         `json:"iteration" gorm:"not null"` // z.B. "3/10 pricing_model"
	Query            string         `json:"query" gorm:"type:text;not null"`
	TopResults       datatypes.JSON `json:"top_results"`
	CreatedAt        time.Time      `json:"created_at" gorm:"index"`
}

// TableName gibt explizit den Tabellennamen an.
func (SearchLog) TableName() string {
	return "search_logs"
}
