// Package document implements the persistent store: the whole dataset lives
// in memory as one document and is serialized wholesale to a snapshot
// backend after every logical transaction.
package document

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/peerhive/backend/core"
)

// Snapshotter persists the serialized document. Load returns (nil, nil)
// when no snapshot exists yet.
type Snapshotter interface {
	Load() ([]byte, error)
	Save(payload []byte) error
	Close() error
}

// Store owns the dataset. All mutations take the write lock, run to
// completion and end with one snapshot commit, so a logical transaction is
// never partially visible to readers.
type Store struct {
	mu     sync.RWMutex
	doc    Dataset
	snap   Snapshotter
	logger core.Logger
}

// NewStore loads the snapshot through `snap`, seeding the demo dataset when
// the snapshot is absent or unreadable.
func NewStore(snap Snapshotter, logger core.Logger) (*Store, error) {
	s := &Store{snap: snap, logger: logger}

	payload, err := snap.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading snapshot")
	}
	if payload == nil {
		s.doc = seedDataset()
		return s, nil
	}

	doc, err := decodeDocument(payload)
	if err != nil {
		// a corrupt snapshot must not brick the app
		logger.Warn("snapshot is malformed, starting from seed data", err)
		s.doc = seedDataset()
		return s, nil
	}
	s.doc = doc
	return s, nil
}

// Open builds a Store with the snapshot backend selected by the config.
func Open(conf *core.Config, logger core.Logger) (*Store, error) {
	var (
		snap Snapshotter
		err  error
	)
	switch conf.Database.Engine {
	case "memory":
		snap = NewMemorySnapshotter()
	case "postgres":
		snap, err = NewPostgresSnapshotter(conf)
	default:
		snap, err = NewSQLiteSnapshotter(conf.Database.Path)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(snap, logger)
}

func (s *Store) Close() error {
	return s.snap.Close()
}

// commit serializes the document and hands it to the snapshot backend.
// Persistence failure degrades to a warning: the in-memory state stays
// authoritative for the rest of the session even if the durable copy falls
// behind. Callers must hold the write lock.
func (s *Store) commit() {
	s.doc.LastUpdate = time.Now().UTC()
	payload, err := json.Marshal(encodeDocument(s.doc))
	if err != nil {
		s.logger.Warn("serializing document failed, snapshot skipped", err)
		return
	}
	if err = s.snap.Save(payload); err != nil {
		s.logger.Warn("saving snapshot failed, in-memory state remains authoritative", err)
	}
}

// Export returns a serialized copy of the current document.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(encodeDocument(s.doc))
}

// memorySnapshotter holds the last snapshot in memory; for tests and for
// running without durable storage.
type memorySnapshotter struct {
	mu      sync.Mutex
	payload []byte
}

func NewMemorySnapshotter() Snapshotter {
	return &memorySnapshotter{}
}

func (m *memorySnapshotter) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload, nil
}

func (m *memorySnapshotter) Save(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = append([]byte(nil), payload...)
	return nil
}

func (m *memorySnapshotter) Close() error { return nil }
