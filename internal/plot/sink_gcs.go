package plot

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSSink uploads images to a Google Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink uses application default credentials. With an endpoint set it
// talks to that endpoint unauthenticated (emulators).
func NewGCSSink(ctx context.Context, cfg SinkConfig) (*GCSSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("GCS plots sink needs plots_bucket")
	}
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSSink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := objectKey(s.prefix, name)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "image/png"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s to gcs: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s to gcs: %w", key, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

// Close releases the underlying client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
