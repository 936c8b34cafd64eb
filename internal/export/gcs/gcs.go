// Package gcs uploads the provider document to a Cloud Storage object.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/embed-provider-sync/internal/export"
)

const defaultObject = "providers.json"

// Config names the destination object.
type Config struct {
	Bucket string
	Object string
}

// Object describes one upload.
type Object struct {
	Bucket      string
	Name        string
	ContentType string
	Metadata    map[string]string
}

// WriterFunc opens a writer for obj; closing it commits the upload.
type WriterFunc func(ctx context.Context, obj Object) io.WriteCloser

// Exporter writes the saved document bytes to gs://bucket/object.
type Exporter struct {
	open   WriterFunc
	close  func() error
	bucket string
	object string
}

// New builds an Exporter backed by a storage client created with default
// credentials.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	exp, err := NewWithWriter(clientWriter(client), cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	exp.close = client.Close
	return exp, nil
}

// NewWithWriter builds an Exporter over open.
func NewWithWriter(open WriterFunc, cfg Config) (*Exporter, error) {
	if open == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	object := cfg.Object
	if strings.TrimSpace(object) == "" {
		object = defaultObject
	}
	return &Exporter{open: open, bucket: cfg.Bucket, object: object}, nil
}

func clientWriter(client *storage.Client) WriterFunc {
	return func(ctx context.Context, obj Object) io.WriteCloser {
		w := client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
		w.ContentType = obj.ContentType
		w.Metadata = obj.Metadata
		return w
	}
}

// Name implements export.Exporter.
func (e *Exporter) Name() string { return "gcs" }

// URI is the gs:// location written by Export.
func (e *Exporter) URI() string {
	return fmt.Sprintf("gs://%s/%s", e.bucket, e.object)
}

// Export uploads snap.Document.
func (e *Exporter) Export(ctx context.Context, snap export.Snapshot) error {
	if len(snap.Document) == 0 {
		return fmt.Errorf("snapshot has no document")
	}
	w := e.open(ctx, Object{
		Bucket:      e.bucket,
		Name:        e.object,
		ContentType: "application/json",
		Metadata:    map[string]string{"run_id": snap.RunID.String(), "sha256": snap.Digest},
	})
	if _, err := io.Copy(w, bytes.NewReader(snap.Document)); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", e.URI(), err)
	}
	return nil
}

// Close releases the storage client, if one was created.
func (e *Exporter) Close() error {
	if e == nil || e.close == nil {
		return nil
	}
	if err := e.close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}
