// Export-Tool: liest alle Rechercheergebnisse aus der Datenbank, packt sie
// als gzip-komprimiertes JSON und lädt das Archiv in einen S3-Bucket hoch.
// Alte Exporte werden rotiert.
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"prospect-hand/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ExportConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	ExportBucket    string `envconfig:"EXPORT_S3_BUCKET" required:"true"`
	ExportEndpoint  string `envconfig:"EXPORT_S3_ENDPOINT" required:"true"`
	ExportAccessKey string `envconfig:"EXPORT_S3_ACCESS_KEY" required:"true"`
	ExportSecretKey string `envconfig:"EXPORT_S3_SECRET_KEY" required:"true"`
	ExportRegion    string `envconfig:"EXPORT_S3_REGION" required:"true"`
	KeepExports     int    `envconfig:"KEEP_EXPORTS" default:"4"`
}

// companyExport fasst eine Firma mit ihrem Snippet und den Such-Logs zusammen.
type companyExport struct {
	Company    models.Company         `json:"company"`
	Snippet    *models.ContextSnippet `json:"snippet,omitempty"`
	Insights   map[string]string      `json:"insights,omitempty"`
	SourceURLs []string               `json:"source_urls,omitempty"`
	SearchLogs []models.SearchLog     `json:"search_logs,omitempty"`
}

func main() {
	log.Println("Starte Research-Export...")

	var cfg ExportConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Fehler beim Verbinden mit der Datenbank: %v", err)
	}

	data, count, err := buildExport(db)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des Exports: %v", err)
	}
	log.Printf("Export erstellt: %d Firmen, %d Bytes komprimiert", count, len(data))

	s3Client, err := createS3Client(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	fileName := fmt.Sprintf("research-export-%s.json.gz", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	if err := uploadToS3(s3Client, cfg, fileName, data); err != nil {
		log.Fatalf("Fehler beim Hochladen nach S3: %v", err)
	}
	log.Printf("Export erfolgreich nach s3://%s/%s hochgeladen", cfg.ExportBucket, fileName)

	if err := rotateExports(s3Client, cfg); err != nil {
		log.Fatalf("Fehler bei der Rotation alter Exporte: %v", err)
	}

	log.Println("Research-Export erfolgreich abgeschlossen.")
}

// buildExport sammelt alle Firmen mit Snippets und Logs und gibt das Ergebnis
// als gzip-komprimiertes JSON zurück.
func buildExport(db *gorm.DB) ([]byte, int, error) {
	var companies []models.Company
	if err := db.Order("id asc").Find(&companies).Error; err != nil {
		return nil, 0, err
	}

	exports := make([]companyExport, 0, len(companies))
	for _, company := range companies {
		entry := companyExport{Company: company}

		var snippet models.ContextSnippet
		err := db.Where("entity_type = ? AND entity_id = ?", "company", company.ID).First(&snippet).Error
		if err == nil {
			entry.Snippet = &snippet
			entry.Insights = snippet.Insights()
			entry.SourceURLs = snippet.Sources()

			var logs []models.SearchLog
			if err := db.Where("context_snippet_id = ?", snippet.ID).Order("created_at asc").Find(&logs).Error; err == nil {
				entry.SearchLogs = logs
			}
		} else if err != gorm.ErrRecordNotFound {
			return nil, 0, err
		}

		exports = append(exports, entry)
	}

	payload, err := json.MarshalIndent(map[string]any{
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"companies":   exports,
	}, "", "  ")
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := gzipWriter.Write(payload); err != nil {
		return nil, 0, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(exports), nil
}

func createS3Client(cfg ExportConfig) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.ExportEndpoint,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ExportAccessKey, cfg.ExportSecretKey, "")),
		awsconfig.WithRegion(cfg.ExportRegion),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

func uploadToS3(client *s3.Client, cfg ExportConfig, key string, data []byte) error {
	_, err := client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(cfg.ExportBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func rotateExports(client *s3.Client, cfg ExportConfig) error {
	output, err := client.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.ExportBucket),
	})
	if err != nil {
		return err
	}

	if len(output.Contents) <= cfg.KeepExports {
		log.Printf("Weniger als %d Exporte vorhanden, keine Rotation nötig.", cfg.KeepExports)
		return nil
	}

	sort.Slice(output.Contents, func(i, j int) bool {
		return output.Contents[i].LastModified.After(*output.Contents[j].LastModified)
	})

	for _, obj := range output.Contents[cfg.KeepExports:] {
		log.Printf("Lösche alten Export: %s", *obj.Key)
		_, err := client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.ExportBucket),
			Key:    obj.Key,
		})
		if err != nil {
			log.Printf("Fehler beim Löschen von %s: %v", *obj.Key, err)
		}
	}

	return nil
}
