package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"uploader/internal/uploader/domain"
	"uploader/pkg/logger"
)

// ErrNotFound indicates that no upload with the given ID is in the store.
var ErrNotFound = errors.New("upload not found in queue")

// Store is the durable upload queue. An entry exists exactly as long as its
// upload has neither been durably confirmed delivered nor permanently
// abandoned. Add and Remove stage mutations; only Commit makes them durable
// and visible to List/Get/Len. A crash between Remove and Commit leaves the
// entry intact, which is what gives queued uploads at-least-once attempt
// semantics across job runs.
type Store interface {
	// List returns the uploads of the last committed state, sorted by ID.
	List() []*domain.Upload
	// Get returns the committed upload with the given ID.
	Get(id string) (*domain.Upload, bool)
	// Add stages a new upload for insertion.
	Add(upload *domain.Upload)
	// Remove stages the removal of the upload with the given ID.
	Remove(id string)
	// Commit applies staged mutations and durably persists the result.
	Commit() error
	// Len returns the number of committed entries.
	Len() int
}

type fileStore struct {
	path string

	mu        sync.Mutex
	committed map[string]*domain.Upload
	added     map[string]*domain.Upload
	removed   map[string]struct{}

	logger *logger.Logger
}

// snapshot is the on-disk representation of the committed queue.
type snapshot struct {
	Uploads []*domain.Upload `json:"uploads"`
}

// Open loads the queue store backed by the given file, creating an empty
// store when the file does not exist yet.
func Open(path string) (Store, error) {
	s := &fileStore{
		path:      path,
		committed: make(map[string]*domain.Upload),
		added:     make(map[string]*domain.Upload),
		removed:   make(map[string]struct{}),
		logger:    logger.WithField("component", "queue"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("no queue file found, starting empty", "path", path)
			return s, nil
		}
		return nil, fmt.Errorf("failed to read queue file %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse queue file %s: %w", path, err)
	}

	for _, u := range snap.Uploads {
		s.committed[u.ID] = u
	}

	s.logger.Debug("queue loaded", "path", path, "entries", len(s.committed))
	return s, nil
}

func (s *fileStore) List() []*domain.Upload {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploads := make([]*domain.Upload, 0, len(s.committed))
	for _, u := range s.committed {
		uploads = append(uploads, u.DeepCopy())
	}
	sort.Slice(uploads, func(i, j int) bool { return uploads[i].ID < uploads[j].ID })

	return uploads
}

func (s *fileStore) Get(id string) (*domain.Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.committed[id]
	if !exists {
		return nil, false
	}
	return u.DeepCopy(), true
}

func (s *fileStore) Add(upload *domain.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.added[upload.ID] = upload.DeepCopy()
	delete(s.removed, upload.ID)

	s.logger.Debug("upload staged for add", "uploadId", upload.ID, "file", upload.FilePath)
}

func (s *fileStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removed[id] = struct{}{}
	delete(s.added, id)

	s.logger.Debug("upload staged for removal", "uploadId", id)
}

func (s *fileStore) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.added) == 0 && len(s.removed) == 0 {
		return nil
	}

	next := make(map[string]*domain.Upload, len(s.committed)+len(s.added))
	for id, u := range s.committed {
		next[id] = u
	}
	for id, u := range s.added {
		next[id] = u
	}
	for id := range s.removed {
		delete(next, id)
	}

	if err := s.persist(next); err != nil {
		return err
	}

	// the snapshot is durable, make the staged state the committed state
	s.committed = next
	s.added = make(map[string]*domain.Upload)
	s.removed = make(map[string]struct{})

	s.logger.Debug("queue committed", "entries", len(s.committed))
	return nil
}

func (s *fileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.committed)
}

// persist writes the snapshot with a temp file, fsync and rename so that a
// crash mid-write never corrupts the committed queue.
func (s *fileStore) persist(entries map[string]*domain.Upload) error {
	snap := snapshot{Uploads: make([]*domain.Upload, 0, len(entries))}
	for _, u := range entries {
		snap.Uploads = append(snap.Uploads, u)
	}
	sort.Slice(snap.Uploads, func(i, j int) bool { return snap.Uploads[i].ID < snap.Uploads[j].ID })

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queue snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create queue directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".queue-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp queue file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write queue snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync queue snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp queue file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace queue file %s: %w", s.path, err)
	}

	return nil
}
