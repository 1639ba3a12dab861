package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

const (
	// JournalSchemaVersion defines the current schema version for the journal file
	JournalSchemaVersion = "1.0.0"
	// JournalFilePermissions defines the permissions for the journal file
	JournalFilePermissions = 0600
	// JournalDirPermissions defines the permissions for the state directory
	JournalDirPermissions = 0700
	// MaxJournalRecords bounds the number of records kept on disk
	MaxJournalRecords = 200
	// LockTimeout defines the maximum time to wait for a lock
	LockTimeout = 30 * time.Second
	// LockRetryInterval defines the interval between lock retry attempts
	LockRetryInterval = 100 * time.Millisecond
)

// JournalRepository stores the history of mutating deployment operations.
type JournalRepository interface {
	Append(ctx context.Context, record *domain.DeploymentRecord) error
	// List returns up to limit records, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*domain.DeploymentRecord, error)
}

// JournalMetadata contains metadata about the journal file
type JournalMetadata struct {
	SchemaVersion string    `json:"schema_version"`
	Checksum      string    `json:"checksum"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// JournalWrapper wraps the records with metadata
type JournalWrapper struct {
	Metadata JournalMetadata            `json:"metadata"`
	Records  []*domain.DeploymentRecord `json:"records"`
}

// JSONJournalRepository implements JournalRepository using a JSON file
type JSONJournalRepository struct {
	fs       afero.Fs
	stateDir string
	mu       sync.Mutex
}

// NewJSONJournalRepository creates a new JSON-based journal repository
func NewJSONJournalRepository(fs afero.Fs, stateDir string) JournalRepository {
	if stateDir == "" {
		stateDir = ".sitepublish"
	}
	return &JSONJournalRepository{
		fs:       fs,
		stateDir: stateDir,
	}
}

// Append adds record to the journal with proper locking
func (r *JSONJournalRepository) Append(ctx context.Context, record *domain.DeploymentRecord) error {
	if err := r.fs.MkdirAll(r.stateDir, JournalDirPermissions); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	unlock, err := r.lock(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()
	records, err := r.read()
	if err != nil {
		return err
	}
	records = append(records, record)
	if len(records) > MaxJournalRecords {
		records = records[len(records)-MaxJournalRecords:]
	}
	return r.write(records)
}

// List returns the newest records first
func (r *JSONJournalRepository) List(ctx context.Context, limit int) ([]*domain.DeploymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.fs.Stat(r.getJournalFilename()); err != nil {
		if os.IsNotExist(err) {
			return []*domain.DeploymentRecord{}, nil
		}
		return nil, fmt.Errorf("failed to check journal file: %w", err)
	}
	unlock, err := r.lock(ctx, true)
	if err != nil {
		return nil, err
	}
	defer unlock()
	records, err := r.read()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.DeploymentRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *JSONJournalRepository) lock(ctx context.Context, shared bool) (func(), error) {
	lock := flock.New(r.getLockFilename())
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = lock.TryRLockContext(lockCtx, LockRetryInterval)
	} else {
		locked, err = lock.TryLockContext(lockCtx, LockRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire journal lock: %w", err)
	}
	if !locked {
		return nil, errors.New("could not acquire journal lock within timeout")
	}
	return func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to unlock journal: %v\n", unlockErr)
		}
	}, nil
}

func (r *JSONJournalRepository) read() ([]*domain.DeploymentRecord, error) {
	data, err := afero.ReadFile(r.fs, r.getJournalFilename())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}
	var wrapper JournalWrapper
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal: %w", err)
	}
	if wrapper.Metadata.SchemaVersion != JournalSchemaVersion {
		return nil, fmt.Errorf("incompatible schema version: expected %s, got %s",
			JournalSchemaVersion, wrapper.Metadata.SchemaVersion)
	}
	recordsData, err := json.Marshal(wrapper.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal records for checksum validation: %w", err)
	}
	if wrapper.Metadata.Checksum != calculateChecksum(recordsData) {
		return nil, errors.New("journal checksum mismatch: data may be corrupted")
	}
	return wrapper.Records, nil
}

func (r *JSONJournalRepository) write(records []*domain.DeploymentRecord) error {
	recordsData, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records for checksum: %w", err)
	}
	wrapper := JournalWrapper{
		Metadata: JournalMetadata{
			SchemaVersion: JournalSchemaVersion,
			Checksum:      calculateChecksum(recordsData),
			UpdatedAt:     time.Now(),
		},
		Records: records,
	}
	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}
	filename := r.getJournalFilename()
	tempFile := filename + ".tmp"
	if err := afero.WriteFile(r.fs, tempFile, data, JournalFilePermissions); err != nil {
		return fmt.Errorf("failed to write temp journal file: %w", err)
	}
	if err := r.fs.Rename(tempFile, filename); err != nil {
		if removeErr := r.fs.Remove(tempFile); removeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove temp file: %v\n", removeErr)
		}
		return fmt.Errorf("failed to rename journal file: %w", err)
	}
	return nil
}

// calculateChecksum calculates SHA-256 checksum of data
func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (r *JSONJournalRepository) getJournalFilename() string {
	return filepath.Join(r.stateDir, "journal.json")
}

func (r *JSONJournalRepository) getLockFilename() string {
	return filepath.Join(r.stateDir, ".journal.lock")
}
