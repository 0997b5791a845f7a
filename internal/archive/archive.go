package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Archiver keeps a copy of each generated document.
type Archiver interface {
	// Put stores body under name, filed under the day of at, and returns
	// where it ended up.
	Put(ctx context.Context, at time.Time, name, contentType string, body []byte) (string, error)
}

// Kind selects an archive backend.
type Kind string

const (
	KindNone Kind = ""
	KindFS   Kind = "fs"
	KindS3   Kind = "s3"
)

type Config struct {
	Kind Kind
	// Dir is the filesystem archive root.
	Dir      string
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// Open returns the configured archiver, or nil for KindNone.
func Open(ctx context.Context, cfg Config) (Archiver, error) {
	switch cfg.Kind {
	case KindNone:
		return nil, nil
	case KindFS:
		return NewFileArchive(cfg.Dir)
	case KindS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("archive bucket is required for s3")
		}
		if cfg.Region == "" {
			cfg.Region = "us-east-1"
		}
		return NewS3Archive(ctx, S3Config{Bucket: cfg.Bucket, Region: cfg.Region, Endpoint: cfg.Endpoint, Prefix: cfg.Prefix})
	default:
		return nil, fmt.Errorf("unsupported archive kind: %s", cfg.Kind)
	}
}

// datedKey files documents by day: 2024/12/03/name. The day is read in at's
// own location so it matches dates printed in the document name.
func datedKey(at time.Time, name string) string {
	return at.Format("2006/01/02") + "/" + filepath.Base(name)
}

// FileArchive writes documents below a base directory.
type FileArchive struct {
	baseDir string
	mu      sync.Mutex
}

func NewFileArchive(baseDir string) (*FileArchive, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("archive dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	return &FileArchive{baseDir: baseDir}, nil
}

func (a *FileArchive) Put(ctx context.Context, at time.Time, name, contentType string, body []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	path := filepath.Join(a.baseDir, filepath.FromSlash(datedKey(at, name)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit archive: %w", err)
	}
	return path, nil
}
