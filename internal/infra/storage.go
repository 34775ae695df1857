package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrBlobNoConfigurado is returned by image operations when no bucket is set.
var ErrBlobNoConfigurado = errors.New("almacenamiento de imágenes no configurado")

// BlobStore is where jewelry images live.
type BlobStore interface {
	Subir(ctx context.Context, nombre, contentType string, data []byte) (string, error)
	Eliminar(ctx context.Context, nombre string) error
}

var _ BlobStore = (*GCSStore)(nil)

// GCSStore keeps jewelry images in a Google Cloud Storage bucket. Every call
// goes through a circuit breaker.
type GCSStore struct {
	client *storage.Client
	bucket string
	cb     *CircuitBreaker
}

// NewGCSStore prefers explicit JSON credentials and falls back to application
// default credentials (service account, GOOGLE_APPLICATION_CREDENTIALS).
func NewGCSStore(ctx context.Context, bucket, credencialesJSON string, cb *CircuitBreaker) (*GCSStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, ErrBlobNoConfigurado
	}
	var opts []option.ClientOption
	if strings.TrimSpace(credencialesJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credencialesJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig("gcs"))
	}
	return &GCSStore{client: client, bucket: bucket, cb: cb}, nil
}

// Subir writes data under nombre and returns its public URL.
func (s *GCSStore) Subir(ctx context.Context, nombre, contentType string, data []byte) (string, error) {
	err := s.cb.Execute(func() error {
		wc := s.client.Bucket(s.bucket).Object(nombre).NewWriter(ctx)
		wc.ContentType = contentType
		wc.CacheControl = "public, max-age=86400"
		if _, err := wc.Write(data); err != nil {
			_ = wc.Close()
			return err
		}
		return wc.Close()
	})
	if err != nil {
		return "", fmt.Errorf("gcs subir %s: %w", nombre, err)
	}
	return s.URLPublica(nombre), nil
}

// Eliminar deletes the object. A missing object is not an error.
func (s *GCSStore) Eliminar(ctx context.Context, nombre string) error {
	return s.cb.Execute(func() error {
		err := s.client.Bucket(s.bucket).Object(nombre).Delete(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return err
	})
}

func (s *GCSStore) URLPublica(nombre string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, nombre)
}

func (s *GCSStore) Estado() CBState { return s.cb.State() }

func (s *GCSStore) Close() error { return s.client.Close() }
