package sweeper

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Archiver stores expired records before they are purged.
type Archiver interface {
	Archive(ctx context.Context, recs []models.RefreshTokenRecord, now time.Time) error
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Archiver writes one JSON-lines object per sweep to an S3-compatible
// bucket. Token values are replaced by their SHA-256 digest.
type S3Archiver struct {
	client objectPutter
	bucket string
}

// NewS3Archiver builds an archiver from the S3 settings in cfg.
func NewS3Archiver(ctx context.Context, cfg *config.Config) (*S3Archiver, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: cfg.S3Bucket}, nil
}

type archivedRecord struct {
	TokenSHA256 string    `json:"token_sha256"`
	AccountID   string    `json:"account_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ArchiveKey returns a fresh object key under the day of now.
func ArchiveKey(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("refresh-tokens/%04d/%02d/%02d/%s.jsonl", now.Year(), now.Month(), now.Day(), uuid.New())
}

func encodeRecords(recs []models.RefreshTokenRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range recs {
		sum := sha256.Sum256([]byte(r.Token))
		if err := enc.Encode(archivedRecord{
			TokenSHA256: hex.EncodeToString(sum[:]),
			AccountID:   r.AccountID,
			CreatedAt:   r.CreatedAt.UTC(),
			ExpiresAt:   r.ExpiresAt.UTC(),
		}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (a *S3Archiver) Archive(ctx context.Context, recs []models.RefreshTokenRecord, now time.Time) error {
	if len(recs) == 0 {
		return nil
	}

	body, err := encodeRecords(recs)
	if err != nil {
		return err
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ArchiveKey(now)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}
