package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	KindMemberPhoto = "members"
	KindGymLogo     = "logo"
)

var ErrObjectKey = errors.New("url does not belong to this bucket")

// Store keeps uploaded images in an S3-compatible bucket.
type Store interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	EnsureBucket(ctx context.Context) error
	KeyFromURL(url string) (string, error)
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base browsers use to fetch objects. Defaults to the
	// endpoint with the matching scheme.
	PublicURL string
}

type minioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinio(opts Options) (Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &minioStore{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: baseURL(opts),
	}, nil
}

func baseURL(opts Options) string {
	base := opts.PublicURL
	if base == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + opts.Endpoint
	}
	return strings.TrimRight(base, "/") + "/" + opts.Bucket
}

func (m *minioStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return m.baseURL + "/" + key, nil
}

func (m *minioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (m *minioStore) EnsureBucket(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !found {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket: %w", err)
		}
	}
	return nil
}

func (m *minioStore) KeyFromURL(url string) (string, error) {
	return keyFromURL(m.baseURL, url)
}

func keyFromURL(base, url string) (string, error) {
	prefix := base + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", ErrObjectKey
	}
	return strings.TrimPrefix(url, prefix), nil
}

// ObjectKey builds gyms/<gymID>/<kind>/<uuid><ext>.
func ObjectKey(gymID int, kind, ext string) string {
	return fmt.Sprintf("gyms/%d/%s/%s%s", gymID, kind, uuid.NewString(), ext)
}
