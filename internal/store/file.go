package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/fspec-dev/fspec/internal/util"
	"github.com/fspec-dev/fspec/internal/workunit"
)

// LockTimeout bounds how long an invocation waits for the advisory lock
// before giving up with a LockError.
const LockTimeout = 10 * time.Second

// lockRetryInterval is how often the flock acquisition is retried.
const lockRetryInterval = 50 * time.Millisecond

// Store is a handle on the persisted document file. It owns the advisory
// file lock for one read-modify-write cycle: Open acquires, Close releases.
//
// Nothing is cached between invocations; every Open→Load recomputes all
// index and validation state from the bytes on disk.
type Store struct {
	path string
	lock *flock.Flock
}

// Open acquires the advisory lock for the document at path. Lock failure
// is fatal to the invocation and propagates as a LockError.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()
	ok, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, &workunit.LockError{Path: path, Err: err}
	}
	if !ok {
		return nil, &workunit.LockError{Path: path, Err: fmt.Errorf("timed out after %s", LockTimeout)}
	}
	return &Store{path: path, lock: fl}, nil
}

// Path returns the document file path.
func (s *Store) Path() string { return s.path }

// Load reads and parses the document. A missing file yields a fresh empty
// document. Legacy collection shapes are normalized during decoding and
// never escape this boundary.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return &doc, nil
}

// Save refreshes the document header and writes it atomically.
func (s *Store) Save(doc *Document) error {
	doc.Touch()
	if err := util.AtomicWriteJSON(s.path, doc); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Close releases the advisory lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}
