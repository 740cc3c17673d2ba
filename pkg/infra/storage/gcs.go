package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStore implements ObjectStorage with Google Cloud Storage
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a GCS client with application default credentials
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Put uploads data to bucket/key
func (s *GCSStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}
