package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Target is an object-store abstraction narrow enough to cover both GCS
// and a local directory: list what's under a partition prefix, delete an
// object, upload new bytes. Grounded on the teacher's
// internal/repository/partitions.go "list what's there, ensure it, move
// on" shape, generalized from SQL partitions to object listing.
type Target interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
	Upload(ctx context.Context, name string, data []byte) error
}

// GCSTarget writes partitions to a Google Cloud Storage bucket under
// prefix, per original_source/src/exporters/gcs_exporter.py's
// gs://{bucket}/network_data/dt=.../ layout.
type GCSTarget struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSTarget wraps an already-constructed storage.Client (built by the
// caller from a service-account path per spec.md §6 configuration).
func NewGCSTarget(client *storage.Client, bucket, prefix string) *GCSTarget {
	return &GCSTarget{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (t *GCSTarget) List(ctx context.Context, partitionPrefix string) ([]string, error) {
	full := t.objectPrefix(partitionPrefix)
	it := t.client.Bucket(t.bucket).Objects(ctx, &storage.Query{Prefix: full})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: list gs://%s/%s: %w", t.bucket, full, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (t *GCSTarget) Delete(ctx context.Context, name string) error {
	if err := t.client.Bucket(t.bucket).Object(name).Delete(ctx); err != nil {
		return fmt.Errorf("export: delete gs://%s/%s: %w", t.bucket, name, err)
	}
	return nil
}

func (t *GCSTarget) Upload(ctx context.Context, name string, data []byte) error {
	w := t.client.Bucket(t.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("export: write gs://%s/%s: %w", t.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export: close gs://%s/%s: %w", t.bucket, name, err)
	}
	return nil
}

func (t *GCSTarget) objectPrefix(partitionPrefix string) string {
	if t.prefix == "" {
		return partitionPrefix
	}
	return t.prefix + "/" + partitionPrefix
}

// LocalTarget writes partitions under a local filesystem root, for
// --dry-run mode. Per spec.md §4.8, local mode never deletes prior
// artifacts — Delete is a deliberate no-op.
type LocalTarget struct {
	root string
}

func NewLocalTarget(root string) *LocalTarget {
	return &LocalTarget{root: root}
}

func (t *LocalTarget) List(ctx context.Context, prefix string) ([]string, error) {
	dir := filepath.Join(t.root, prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("export: list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Join(prefix, e.Name()))
	}
	return names, nil
}

// Delete is a no-op: local dry-run mode keeps every run's artifact.
func (t *LocalTarget) Delete(ctx context.Context, name string) error { return nil }

func (t *LocalTarget) Upload(ctx context.Context, name string, data []byte) error {
	path := filepath.Join(t.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}
