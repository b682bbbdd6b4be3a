package services

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prospect-hand/models"
)

var testDBSeq int64

// newTestDB öffnet eine frische In-Memory-Datenbank mit migriertem Schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Campaign{}, &models.Company{}, &models.Person{},
		&models.ContextSnippet{}, &models.SearchLog{},
	))
	return db
}

// seedPerson legt Kampagne, Firma und Person an und gibt die Person zurück.
func seedPerson(t *testing.T, db *gorm.DB, companyName string) models.Person {
	t.Helper()
	campaign := models.Campaign{Name: companyName + " Campaign", Status: "active"}
	require.NoError(t, db.Create(&campaign).Error)
	company := models.Company{Name: companyName, CampaignID: campaign.ID}
	require.NoError(t, db.Create(&company).Error)
	person := models.Person{FullName: "Jordan Doe", Email: "jordan@example.com", CompanyID: company.ID}
	require.NoError(t, db.Create(&person).Error)
	return person
}

func TestExistingForCompanyNotFound(t *testing.T) {
	store := NewSnippetStore(newTestDB(t), zap.NewNop())

	snippet, err := store.ExistingForCompany(42)
	require.NoError(t, err)
	assert.Nil(t, snippet)
}

func TestCreateVerifiedAndLookup(t *testing.T) {
	db := newTestDB(t)
	store := NewSnippetStore(db, zap.NewNop())

	payload, err := json.Marshal(map[string]string{"pricing_model": "subscription tiers"})
	require.NoError(t, err)
	snippet := &models.ContextSnippet{
		EntityType:  "company",
		EntityID:    7,
		SnippetType: "deep_research",
		Content:     "report text",
		Payload:     payload,
	}
	require.NoError(t, store.CreateVerified(snippet))
	require.NotZero(t, snippet.ID)

	found, err := store.ExistingForCompany(7)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, snippet.ID, found.ID)
	assert.Equal(t, map[string]string{"pricing_model": "subscription tiers"}, found.Insights())
}

func TestCreateVerifiedRejectsMissingPayload(t *testing.T) {
	db := newTestDB(t)
	store := NewSnippetStore(db, zap.NewNop())

	snippet := &models.ContextSnippet{
		EntityType:  "company",
		EntityID:    7,
		SnippetType: "deep_research",
		Content:     "report text",
	}
	require.Error(t, store.CreateVerified(snippet))

	// Die Transaktion wurde zurückgerollt, nichts ist persistiert.
	var count int64
	require.NoError(t, db.Model(&models.ContextSnippet{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReattachOrphanLogsRespectsCutoff(t *testing.T) {
	db := newTestDB(t)
	store := NewSnippetStore(db, zap.NewNop())

	cutoff := time.Now()
	older := models.SearchLog{
		Iteration: "1/3 pricing_model",
		Query:     "old query",
		CreatedAt: cutoff.Add(-time.Hour),
	}
	require.NoError(t, db.Create(&older).Error)

	attachedID := uint(99)
	foreign := models.SearchLog{
		ContextSnippetID: &attachedID,
		Iteration:        "1/3 team_size",
		Query:            "already attached",
		CreatedAt:        cutoff.Add(time.Second),
	}
	require.NoError(t, db.Create(&foreign).Error)

	fresh := models.SearchLog{
		Iteration: "2/3 pricing_model",
		Query:     "fresh query",
		CreatedAt: cutoff.Add(2 * time.Second),
	}
	require.NoError(t, db.Create(&fresh).Error)

	count, err := store.ReattachOrphanLogs(123, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var updated models.SearchLog
	require.NoError(t, db.First(&updated, fresh.ID).Error)
	require.NotNil(t, updated.ContextSnippetID)
	assert.Equal(t, uint(123), *updated.ContextSnippetID)

	// Die alte und die fremde Zeile bleiben unberührt.
	var untouched models.SearchLog
	require.NoError(t, db.First(&untouched, older.ID).Error)
	assert.Nil(t, untouched.ContextSnippetID)
	untouched = models.SearchLog{}
	require.NoError(t, db.First(&untouched, foreign.ID).Error)
	require.NotNil(t, untouched.ContextSnippetID)
	assert.Equal(t, attachedID, *untouched.ContextSnippetID)
}
