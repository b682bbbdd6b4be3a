package models

import "time"

// Person repräsentiert einen Kontakt bei einer Firma. Recherche-Jobs werden
// über die Person angestoßen, die Ergebnisse hängen an ihrer Firma.
type Person struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FullName  string    `json:"full_name" gorm:"not null"`
	Email     string    `json:"email" gorm:"not null"`
	Title     string    `json:"title,omitempty"`
	CompanyID uint      `json:"company_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (Person) TableName() string {
	return "people"
}
