package blob

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader stores bytes and returns a URL clients can fetch them from.
type Uploader interface {
	Upload(ctx context.Context, prefix string, data []byte, contentType string) (string, error)
}

// Config describes the S3-compatible bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base clients use to reach the bucket. Defaults to the endpoint.
	PublicURL string
}

// Storage is a MinIO backed Uploader.
type Storage struct {
	cfg    Config
	client *minio.Client
}

// New connects to the store.
func New(cfg Config) (*Storage, error) {
	cl, err := minio.New(strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &Storage{cfg: cfg, client: cl}, nil
}

// EnsureBucket creates the bucket on first start.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Upload puts data under prefix with a fresh name and returns its public URL.
func (s *Storage) Upload(ctx context.Context, prefix string, data []byte, contentType string) (string, error) {
	key := ObjectKey(prefix, contentType, time.Now())
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return PublicURL(s.cfg, key), nil
}

// ObjectKey builds prefix/yyyy/mm/<uuid><ext>.
func ObjectKey(prefix, contentType string, now time.Time) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("%s/%s/%s%s", strings.Trim(prefix, "/"), now.UTC().Format("2006/01"), uuid.NewString(), ext)
}

// PublicURL joins the public base, bucket and key.
func PublicURL(cfg Config, key string) string {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
		base = scheme + "://" + host
	}
	return fmt.Sprintf("%s/%s/%s", base, cfg.Bucket, key)
}
