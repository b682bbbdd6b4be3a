package services

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"prospect-hand/models"
)

// SnippetStore kapselt die Persistenz der Rechercheergebnisse: Existenz-Check,
// transaktionales Anlegen mit Verifikation und das nachträgliche Verknüpfen
// der Such-Logs.
type SnippetStore struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewSnippetStore erstellt einen neuen SnippetStore.
func NewSnippetStore(db *gorm.DB, logger *zap.Logger) *SnippetStore {
	return &SnippetStore{DB: db, Logger: logger}
}

// ExistingForCompany sucht das vorhandene ContextSnippet einer Firma.
// (nil, nil) bedeutet: noch keins vorhanden.
func (s *SnippetStore) ExistingForCompany(companyID uint) (*models.ContextSnippet, error) {
	var snippet models.ContextSnippet
	err := s.DB.Where("entity_type = ? AND entity_id = ?", "company", companyID).First(&snippet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snippet, nil
}

// CreateVerified legt ein Snippet transaktional an. Vor dem Commit bestätigt
// ein Read-after-Write, dass die Zeile mit korrekter Firmen-Verknüpfung
// existiert; schlägt irgendetwas fehl, wird alles zurückgerollt.
func (s *SnippetStore) CreateVerified(snippet *models.ContextSnippet) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snippet).Error; err != nil {
			return err
		}

		var check models.ContextSnippet
		err := tx.Where("id = ? AND entity_id = ?", snippet.ID, snippet.EntityID).First(&check).Error
		if err != nil {
			return fmt.Errorf("verification read failed for snippet %d: %w", snippet.ID, err)
		}
		if len(check.Payload) == 0 {
			return fmt.Errorf("verification read returned empty payload for snippet %d", snippet.ID)
		}
		return nil
	})
}

// CreateLog schreibt eine SearchLog-Zeile.
func (s *SnippetStore) CreateLog(entry *models.SearchLog) error {
	return s.DB.Create(entry).Error
}

// ReattachOrphanLogs verknüpft alle seit dem Cutoff entstandenen, noch nicht
// zugeordneten SearchLog-Zeilen mit dem gegebenen Snippet und gibt die Anzahl
// der aktualisierten Zeilen zurück.
func (s *SnippetStore) ReattachOrphanLogs(snippetID uint, since time.Time) (int64, error) {
	result := s.DB.Model(&models.SearchLog{}).
		Where("context_snippet_id IS NULL AND created_at >= ?", since).
		Update("context_snippet_id", snippetID)
	return result.RowsAffected, result.Error
}
