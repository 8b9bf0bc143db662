package services

import (
	"bytes"
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minio error code when MakeBucket races with another creator
const codeBucketAlreadyOwned = "BucketAlreadyOwnedByYou"

// Document is a rendered file ready for upload
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportObjectStore is the part of an S3-compatible store that exports are written to
type ExportObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutDocument(ctx context.Context, bucket string, doc Document) error
	// PresignDownload returns a time-limited link that downloads the object as an attachment
	PresignDownload(ctx context.Context, bucket, name string, expiry time.Duration) (string, error)
}

// MinioOptions configures the MinIO client
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type minioObjectStore struct {
	client *minio.Client

	mu      sync.Mutex
	buckets map[string]struct{}
}

func NewMinioObjectStore(opts MinioOptions) (ExportObjectStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create minio client for %s", opts.Endpoint)
	}
	return &minioObjectStore{client: client, buckets: make(map[string]struct{})}, nil
}

// EnsureBucket creates bucket on first use. Confirmed buckets are
// remembered and not looked up again.
func (m *minioObjectStore) EnsureBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[bucket]; ok {
		return nil
	}

	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Wrapf(err, "look up bucket %s", bucket)
	}
	if !exists {
		err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil && minio.ToErrorResponse(err).Code != codeBucketAlreadyOwned {
			return errors.Wrapf(err, "create bucket %s", bucket)
		}
	}

	m.buckets[bucket] = struct{}{}
	return nil
}

func (m *minioObjectStore) PutDocument(ctx context.Context, bucket string, doc Document) error {
	_, err := m.client.PutObject(ctx, bucket, doc.Name, bytes.NewReader(doc.Data), int64(len(doc.Data)), minio.PutObjectOptions{
		ContentType:        doc.ContentType,
		ContentDisposition: attachmentDisposition(doc.Name),
	})
	if err != nil {
		return errors.Wrapf(err, "upload %s to %s", doc.Name, bucket)
	}
	return nil
}

func (m *minioObjectStore) PresignDownload(ctx context.Context, bucket, name string, expiry time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", attachmentDisposition(name))

	link, err := m.client.PresignedGetObject(ctx, bucket, name, expiry, params)
	if err != nil {
		return "", errors.Wrapf(err, "presign %s", name)
	}
	return link.String(), nil
}

func attachmentDisposition(name string) string {
	return "attachment; filename=" + name
}
