package helpers

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a Cloud Storage client from a service account file, or
// from Application Default Credentials when credsPath is empty.
func NewGCSClient(ctx context.Context, credsPath string, opts ...option.ClientOption) (*storage.Client, error) {
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}
	return storage.NewClient(ctx, opts...)
}

// GCSObjectURI is the gs:// address of an object.
func GCSObjectURI(bucket, objectPath string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, objectPath)
}

// WriteGCSObject streams r into bucket/objectPath in a single request and
// returns the object's gs:// URI.
func WriteGCSObject(ctx context.Context, client *storage.Client, bucket, objectPath, contentType string, r io.Reader) (string, error) {
	uri := GCSObjectURI(bucket, objectPath)
	w := client.Bucket(bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.ChunkSize = 0
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write %s: %w", uri, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", uri, err)
	}
	return uri, nil
}
