package state

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/safeio"
)

// staleLockAge is how old a lock may be before another opener takes it
// over. Migration runs are expected to finish well inside this bound.
const staleLockAge = 30 * time.Minute

// lockInfo is the payload written into the sidecar lock file so operators
// can see who holds a state file.
type lockInfo struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// FileStore is a Store backed by a JSON file. Open acquires an exclusive
// sidecar lock (<path>.lock); a second opener gets ErrStateLocked instead
// of racing the first. Every Put rewrites the file atomically.
type FileStore struct {
	path     string
	lockPath string

	mu  sync.Mutex
	doc document
}

// Open loads the ledger at path, creating an empty one if the file does
// not exist. A corrupt ledger is a fatal error; silently starting fresh
// would re-migrate everything.
func Open(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		lockPath: path + ".lock",
		doc:      document{ProcessedFiles: make(map[string]Entry)},
	}

	if err := s.acquireLock(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		s.releaseLock()
		return nil, errors.Wrapf(err, "failed to read state file %s", path)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		s.releaseLock()
		return nil, errors.Wrapf(err, "state file %s is corrupt", path)
	}
	if s.doc.ProcessedFiles == nil {
		s.doc.ProcessedFiles = make(map[string]Entry)
	}
	return s, nil
}

// Close releases the lock. The ledger itself is already durable; Put
// persists on every call.
func (s *FileStore) Close() error {
	s.releaseLock()
	return nil
}

func (s *FileStore) Get(path string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.doc.ProcessedFiles[path]
	return e, ok
}

// Put records an entry and rewrites the ledger atomically. The previous
// ledger content is never observable half-written.
func (s *FileStore) Put(path string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.ProcessedFiles[path] = e
	s.doc.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal state")
	}
	if err := safeio.WriteFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write state file %s", s.path)
	}
	return nil
}

func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.ProcessedFiles)
}

func (s *FileStore) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.doc.ProcessedFiles))
	for p := range s.doc.ProcessedFiles {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// LastUpdated returns the timestamp of the most recent Put, zero if the
// ledger has never been written.
func (s *FileStore) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.LastUpdated
}

// acquireLock creates the sidecar lock file with O_EXCL. An existing lock
// older than staleLockAge is taken over; otherwise ErrStateLocked.
func (s *FileStore) acquireLock() error {
	err := s.tryCreateLock()
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return errors.Wrapf(err, "failed to create lock %s", s.lockPath)
	}

	holder, stale := s.inspectLock()
	if !stale {
		if holder != nil {
			return errors.Wrapf(errors.ErrStateLocked,
				"%s held by pid %d on %s since %s",
				s.lockPath, holder.PID, holder.Hostname, holder.AcquiredAt.Format(time.RFC3339))
		}
		return errors.Wrapf(errors.ErrStateLocked, "%s exists", s.lockPath)
	}

	// Stale lock: remove it and retry the exclusive create once. Losing
	// the retry means another process won the takeover.
	if err := os.Remove(s.lockPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove stale lock %s", s.lockPath)
	}
	if err := s.tryCreateLock(); err != nil {
		return errors.Wrapf(errors.ErrStateLocked, "%s recreated during takeover", s.lockPath)
	}
	return nil
}

// tryCreateLock returns the raw create error so callers can os.IsExist it.
func (s *FileStore) tryCreateLock() error {
	f, err := os.OpenFile(s.lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	hostname, _ := os.Hostname()
	info := lockInfo{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().UTC()}
	data, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "failed to marshal lock info")
	}
	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write lock %s", s.lockPath)
	}
	return nil
}

// inspectLock reads the current lock payload and decides staleness. A lock
// whose payload cannot be parsed (crashed writer) falls back to file mtime.
func (s *FileStore) inspectLock() (*lockInfo, bool) {
	data, err := os.ReadFile(s.lockPath)
	if err == nil {
		var info lockInfo
		if json.Unmarshal(data, &info) == nil && !info.AcquiredAt.IsZero() {
			return &info, time.Since(info.AcquiredAt) > staleLockAge
		}
	}
	fi, err := os.Stat(s.lockPath)
	if err != nil {
		return nil, false
	}
	return nil, time.Since(fi.ModTime()) > staleLockAge
}

func (s *FileStore) releaseLock() {
	_ = os.Remove(s.lockPath)
}
