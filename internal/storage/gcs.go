package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCSStore keeps CVs in a Cloud Storage bucket. Credentials come from the
// environment (ADC).
type GCSStore struct {
	client     *gcs.Client
	bucketName string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud Storage client: %w", err)
	}
	return &GCSStore{client: client, bucketName: bucket}, nil
}

func (s *GCSStore) Type() string { return "gcs" }

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)

	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucketName, key), nil
}

func (s *GCSStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	prefix := fmt.Sprintf("gs://%s/", s.bucketName)
	if !strings.HasPrefix(location, prefix) {
		return nil, fmt.Errorf("location %q is not in bucket %s", location, s.bucketName)
	}

	rc, err := s.client.Bucket(s.bucketName).Object(strings.TrimPrefix(location, prefix)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	return rc, nil
}
