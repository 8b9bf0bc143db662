package services

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

// ExportSink stores a rendered document and returns where it can be fetched
type ExportSink interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

const pdfContentType = "application/pdf"

type minioExportSink struct {
	store  ExportObjectStore
	bucket string
	expiry time.Duration
}

// NewMinioExportSink uploads exports to bucket and hands back a presigned
// download link valid for expiry
func NewMinioExportSink(store ExportObjectStore, bucket string, expiry time.Duration) ExportSink {
	return &minioExportSink{store: store, bucket: bucket, expiry: expiry}
}

func (s *minioExportSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return "", errors.Wrap(err, "export to object storage")
	}

	doc := Document{Name: name, ContentType: pdfContentType, Data: data}
	if err := s.store.PutDocument(ctx, s.bucket, doc); err != nil {
		return "", errors.Wrap(err, "export to object storage")
	}

	link, err := s.store.PresignDownload(ctx, s.bucket, name, s.expiry)
	if err != nil {
		return "", errors.Wrap(err, "export to object storage")
	}
	return link, nil
}

type localExportSink struct {
	dir string
}

// NewLocalExportSink writes exports into dir
func NewLocalExportSink(dir string) ExportSink {
	return &localExportSink{dir: dir}
}

func (s *localExportSink) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create export dir %s", s.dir)
	}

	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
