package models

import "time"

// Campaign repräsentiert eine Outreach-Kampagne, der genau eine Firma zugeordnet ist.
type Campaign struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Status    string    `json:"status" gorm:"not null;default:'draft'"` // draft, active, archived
	CreatedAt time.Time `json:"created_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (Campaign) TableName() string {
	return "campaigns"
}
