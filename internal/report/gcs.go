package report

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// GCSStore implements ObjectStore over Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

func NewGCSStore(ctx context.Context, credentialsJSON []byte) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, errors.Wrap(err, "create storage client")
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Download(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *GCSStore) Close() error { return s.client.Close() }
