package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"prospect-hand/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archive lädt fertige Recherche-Reports als Textobjekte in einen
// S3-kompatiblen Bucket hoch.
type Archive struct {
	client *s3.Client
	bucket string
	url    string
}

// NewArchive erstellt den S3-Client für das Report-Archiv.
func NewArchive(cfg *config.Config) (*Archive, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.ArchiveS3URL,
				SigningRegion:     cfg.ArchiveS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.ArchiveS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ArchiveS3Key, cfg.ArchiveS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return &Archive{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.ArchiveS3Bucket,
		url:    cfg.ArchiveS3URL,
	}, nil
}

// ArchiveReport lädt den Report einer Firma ins Archiv und gibt den Link zurück.
func (a *Archive) ArchiveReport(ctx context.Context, companyID uint, content string) (string, error) {
	key := fmt.Sprintf("reports/company-%d-%s.txt", companyID, time.Now().UTC().Format("20060102-150405"))
	contentType := "text/plain; charset=utf-8"
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader([]byte(content)),
		ContentType: &contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", a.url, a.bucket, key), nil
}
