package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldsParsing(t *testing.T) {
	c := &Config{ResearchFields: "pricing_model, team_size ,, recent_news"}
	assert.Equal(t, []string{"pricing_model", "team_size", "recent_news"}, c.Fields())
}

func TestDSN(t *testing.T) {
	c := &Config{DBHost: "localhost", DBPort: 5432, DBUser: "app", DBPassword: "secret", DBName: "prospects"}
	assert.Equal(t,
		"host=localhost user=app password=secret dbname=prospects port=5432 sslmode=disable",
		c.DSN())
}

func TestArchiveEnabled(t *testing.T) {
	c := &Config{}
	assert.False(t, c.ArchiveEnabled())

	c.ArchiveS3Bucket = "reports"
	c.ArchiveS3Key = "key"
	c.ArchiveS3Secret = "secret"
	assert.True(t, c.ArchiveEnabled())
}
