// Package export mirrors a saved provider directory to external systems after
// a run. Exporters are optional and their failures never fail the run.
package export

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/embed-provider-sync/internal/store"
)

// Snapshot is the post-save view of a run handed to every exporter.
type Snapshot struct {
	RunID uuid.UUID
	At    time.Time
	// Providers is the directory exactly as saved.
	Providers *store.Providers
	// Document holds the bytes written to the local store.
	Document []byte
	// Digest is the hex SHA-256 of Document.
	Digest   string
	Pruned   []string
	Updated  int
	Failed   []string
}

// Exporter publishes a Snapshot somewhere. Implementations own their clients
// and release them in Close.
type Exporter interface {
	Name() string
	Export(ctx context.Context, snap Snapshot) error
	Close() error
}

// Notification is the JSON summary sent to message-oriented exporters.
type Notification struct {
	RunID     string    `json:"run_id"`
	At        time.Time `json:"at"`
	Providers int       `json:"providers"`
	Pruned    []string  `json:"pruned"`
	Updated   int       `json:"updated"`
	Failed    []string  `json:"failed"`
	Digest    string    `json:"sha256,omitempty"`
}

// Notification summarises the snapshot. List fields are never null.
func (s Snapshot) Notification() Notification {
	n := Notification{
		RunID:   s.RunID.String(),
		At:      s.At.UTC(),
		Updated: s.Updated,
		Digest:  s.Digest,
		Pruned:  append([]string{}, s.Pruned...),
		Failed:  append([]string{}, s.Failed...),
	}
	if s.Providers != nil {
		n.Providers = s.Providers.Len()
	}
	return n
}
