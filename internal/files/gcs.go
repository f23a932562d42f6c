package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/SomeAverageDev/konnectors/internal/logging"
)

// GCSStore writes documents as objects of a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger logging.Logger
}

// NewGCSStore opens a client with application default credentials.
func NewGCSStore(ctx context.Context, bucket, prefix string, logger logging.Logger) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	s := NewGCSStoreWithClient(client, bucket, prefix, logger)
	return s, nil
}

// NewGCSStoreWithClient uses an existing client, e.g. one pointed at an
// emulator.
func NewGCSStoreWithClient(client *storage.Client, bucket, prefix string, logger logging.Logger) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: prefix,
		logger: logging.OrDefault(logger),
	}
}

// Put uploads data only if the object does not exist yet.
func (s *GCSStore) Put(ctx context.Context, folder, name string, data []byte) (string, error) {
	object := objectPath(path.Join(s.prefix, folder), name)
	location := "gs://" + s.name + "/" + object

	w := s.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/pdf"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			s.logger.Info("Skipping existing object", logging.F(logging.FieldFile, location))
			return location, nil
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			s.logger.Info("Skipping existing object", logging.F(logging.FieldFile, location))
			return location, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	s.logger.Debug("Stored document", logging.F(logging.FieldFile, location))
	return location, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// alreadyExists reports a failed DoesNotExist precondition.
func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
