package models

import "time"

// Company repräsentiert die Firma, die recherchiert wird. Sie ist die
// Deduplizierungs-Einheit: pro Firma existiert höchstens ein ContextSnippet.
type Company struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"not null"`
	Domain     string    `json:"domain,omitempty"`
	CampaignID uint      `json:"campaign_id" gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (Company) TableName() string {
	return "companies"
}
