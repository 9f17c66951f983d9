package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cpugovernor/debrel/internal/config"
)

// Record describes the last successful install on this host.
type Record struct {
	// Repository is the owner/name the release came from.
	Repository string `json:"repository"`
	// Tag is the release tag that was installed.
	Tag string `json:"tag"`
	// Package is the Debian package name.
	Package string `json:"package"`
	// Unit is the systemd unit that was activated.
	Unit string `json:"unit"`
	// InstalledAt is when the install completed.
	InstalledAt time.Time `json:"installed_at"`
}

// Repository defines persistence operations for the install record.
type Repository interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, record *Record) error
}

// FileRepository persists the install record to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON record file.
	path string
	// mu protects concurrent access to the record file.
	mu sync.Mutex
}

// ErrNotFound is returned when the record file does not exist yet.
var ErrNotFound = errors.New("install record not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read install record: %w", err)
	}

	var record Record
	if err = json.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("decode install record: %w", err)
	}

	return &record, nil
}

// Save writes the record to disk.
func (r *FileRepository) Save(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode install record: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write install record: %w", err)
	}

	return nil
}
