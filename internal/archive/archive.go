// Package archive captures raw payloads (fact packs, engine responses)
// for offline debugging, on local disk or an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finlens/finlens/internal/config"
)

// Store defines the interface for archive backends
type Store interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// New creates the configured archive backend.
func New(cfg config.ArchiveConfig) (Store, error) {
	switch cfg.Type {
	case "localfs", "":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}

// Capture files payloads under kind/symbol/date with unique names. It
// satisfies the analysis client's Recorder.
type Capture struct {
	store Store
	now   func() time.Time
}

// NewCapture wraps a store for payload capture.
func NewCapture(store Store) *Capture {
	return &Capture{store: store, now: time.Now}
}

// Record stores one payload. Paths look like
// analysis_response/AAPL/2026-08-29/143000-<id>.json.
func (c *Capture) Record(ctx context.Context, kind, symbol string, payload []byte) error {
	ts := c.now().UTC()
	path := fmt.Sprintf("%s/%s/%s/%s-%s.json",
		kind, symbol, ts.Format("2006-01-02"), ts.Format("150405"), uuid.NewString())
	return c.store.Write(ctx, path, payload)
}
