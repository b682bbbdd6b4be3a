package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// SerpAPI-Konfiguration; ohne Key läuft der Dienst im synthetischen Modus.
	SerpAPIBaseURL string `envconfig:"SERPAPI_BASE_URL" default:"https://serpapi.com"`
	SerpAPIKey     string `envconfig:"SERPAPI_KEY"`
	SerpAPIEngine  string `envconfig:"SERPAPI_ENGINE" default:"google"`
	SerpAPINum     int    `envconfig:"SERPAPI_NUM" default:"10"`
	SerpAPIRegion  string `envconfig:"SERPAPI_GL" default:"us"`
	SerpAPILang    string `envconfig:"SERPAPI_HL" default:"en"`

	// Recherche-Felder in fester Reihenfolge, kommasepariert.
	ResearchFields string `envconfig:"RESEARCH_FIELDS" default:"company_value_proposition,key_products_services,pricing_model,target_market,key_competitors,recent_news,company_funding,team_size,technology_stack,business_model"`

	// Pause zwischen zwei Feld-Suchen, um externe Rate-Limits zu respektieren.
	FieldDelayMillis int `envconfig:"FIELD_DELAY_MILLIS" default:"500"`

	WorkerCount         int    `envconfig:"WORKER_COUNT" default:"3"`
	JobTimeoutSeconds   int    `envconfig:"JOB_TIMEOUT_SECONDS" default:"300"`
	JobRetentionMinutes int    `envconfig:"JOB_RETENTION_MINUTES" default:"30"`
	CronSchedule        string `envconfig:"CRON_SCHEDULE" default:"*/10 * * * *"`

	// Puffergröße des Fortschritts-Kanals.
	ProgressBuffer int `envconfig:"PROGRESS_BUFFER" default:"256"`

	// Optionales Report-Archiv in S3; ohne Bucket bleibt das Archiv deaktiviert.
	ArchiveS3Key    string `envconfig:"ARCHIVE_S3_KEY"`
	ArchiveS3Secret string `envconfig:"ARCHIVE_S3_SECRET"`
	ArchiveS3URL    string `envconfig:"ARCHIVE_S3_URL"`
	ArchiveS3Region string `envconfig:"ARCHIVE_S3_REGION"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Fields liefert die konfigurierten Recherche-Felder als Slice.
func (c *Config) Fields() []string {
	parts := strings.Split(c.ResearchFields, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// ArchiveEnabled meldet, ob das S3-Report-Archiv konfiguriert ist.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveS3Bucket != "" && c.ArchiveS3Key != "" && c.ArchiveS3Secret != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
