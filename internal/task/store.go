// Package task provides the task graph store for maestro: CRUD over
// tasks, dependency edge management with cycle rejection, the status
// lifecycle state machine, and whole-document persistence.
//
// The store serializes all graph mutations through a single mutex so
// that every invariant check (dependency existence, acyclicity, status
// consistency) observes a stable graph. Persistence is whole-document:
// every successful mutation atomically rewrites the graph file under an
// advisory file lock.
package task

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/maestro/internal/clock"
	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
	"github.com/mrz1836/maestro/internal/flock"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750 // Secure directory permissions
	filePerm = 0o600 // Secure file permissions
)

// lockRetryInterval is the pause between file lock acquisition attempts.
const lockRetryInterval = 50 * time.Millisecond

// document is the persisted shape of the graph file:
// a metadata envelope plus the flat task list.
type document struct {
	Metadata metadata       `json:"metadata"`
	Tasks    []*domain.Task `json:"tasks"`
}

// metadata is the graph document envelope.
type metadata struct {
	SchemaVersion int       `json:"schema_version"`
	UpdatedAt     time.Time `json:"updated_at"`
	NextSeq       int64     `json:"next_seq"`
}

// Options configures a Store.
type Options struct {
	// Path is the graph document location. Empty resolves to
	// ~/.maestro/tasks.json.
	Path string

	// LockTimeout bounds acquisition of the document file lock.
	// Zero uses constants.DefaultLockTimeout.
	LockTimeout time.Duration

	// Clock supplies timestamps. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives store events. Zero value discards them.
	Logger zerolog.Logger
}

// Store is the in-memory task graph backed by a single JSON document.
// All public methods are safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	tasks       map[string]*domain.Task
	nextSeq     int64
	path        string
	lockTimeout time.Duration
	clock       clock.Clock
	logger      zerolog.Logger
}

// NewStore creates a Store and loads the graph document at the
// configured path. A missing document yields an empty graph; a
// malformed or invariant-violating one is an error.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	path := opts.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, maestroerrors.Wrap(err, "failed to resolve home directory")
		}
		path = filepath.Join(home, constants.MaestroHome, constants.GraphFileName)
	}

	lockTimeout := opts.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = constants.DefaultLockTimeout
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	s := &Store{
		tasks:       make(map[string]*domain.Task),
		nextSeq:     1,
		path:        path,
		lockTimeout: lockTimeout,
		clock:       clk,
		logger:      opts.Logger,
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the graph document location.
func (s *Store) Path() string {
	return s.path
}

// load reads the graph document from disk into memory. Called once at
// construction; the in-memory graph is authoritative afterwards.
func (s *Store) load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path) //#nosec G304 -- path is operator-configured
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("path", s.path).Msg("no graph document, starting empty")
			return nil
		}
		return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to read graph document %s: %v", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "malformed graph document %s: %v", s.path, err)
	}

	tasks := make(map[string]*domain.Task, len(doc.Tasks))
	maxSeq := int64(0)
	for _, t := range doc.Tasks {
		tasks[t.ID] = t
		if t.Seq > maxSeq {
			maxSeq = t.Seq
		}
	}

	s.tasks = tasks
	s.nextSeq = maxSeq + 1
	if doc.Metadata.NextSeq > s.nextSeq {
		s.nextSeq = doc.Metadata.NextSeq
	}

	// Reject documents that violate graph invariants; a corrupt document
	// must not silently become the working state.
	report := s.validateLocked()
	if !report.Valid {
		s.tasks = make(map[string]*domain.Task)
		s.nextSeq = 1
		return maestroerrors.Wrapf(maestroerrors.ErrValidation,
			"graph document %s violates invariants: %s", s.path, report.summary())
	}

	s.logger.Debug().Int("tasks", len(tasks)).Str("path", s.path).Msg("graph document loaded")
	return nil
}

// flushLocked persists the in-memory graph to disk. Caller holds mu.
// The write is atomic (temp file + rename) and serialized across
// processes by an advisory lock file.
func (s *Store) flushLocked(ctx context.Context) error {
	doc := document{
		Metadata: metadata{
			SchemaVersion: constants.GraphSchemaVersion,
			UpdatedAt:     s.clock.Now(),
			NextSeq:       s.nextSeq,
		},
		Tasks: s.sortedTasksLocked(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return maestroerrors.Wrap(err, "failed to marshal graph document")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to create graph directory: %v", err)
	}

	lockFile, err := s.acquireFileLock(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.releaseFileLock(lockFile) }()

	if err := atomicWrite(s.path, data); err != nil {
		return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to write graph document: %v", err)
	}

	return nil
}

// acquireFileLock acquires the advisory lock file with retry until the
// configured timeout. It respects context cancellation between attempts.
func (s *Store) acquireFileLock(ctx context.Context) (*os.File, error) {
	lockPath := filepath.Join(filepath.Dir(s.path), constants.GraphLockFileName)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerm) //#nosec G304 -- path derived from configured graph path
	if err != nil {
		return nil, maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to open lock file: %v", err)
	}

	deadline := s.clock.Now().Add(s.lockTimeout)
	for {
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		default:
		}

		if err := flock.Exclusive(f.Fd()); err == nil {
			return f, nil
		}

		if s.clock.Now().After(deadline) {
			_ = f.Close()
			return nil, maestroerrors.Wrap(maestroerrors.ErrLockTimeout, "failed to acquire graph lock")
		}

		time.Sleep(lockRetryInterval)
	}
}

// releaseFileLock releases the advisory lock and closes the file.
func (s *Store) releaseFileLock(f *os.File) error {
	if f == nil {
		return nil
	}
	unlockErr := flock.Unlock(f.Fd())
	closeErr := f.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

// atomicWrite writes data to path atomically using write-then-rename.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	// Sync before rename so a crash never leaves a torn document.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// withWrite runs fn under the write lock and flushes on success.
// If the flush fails, the in-memory graph is rolled back to its
// pre-mutation snapshot so memory and disk never diverge.
func (s *Store) withWrite(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapTasks, snapSeq := s.snapshotLocked()

	if err := fn(); err != nil {
		s.tasks, s.nextSeq = snapTasks, snapSeq
		return err
	}

	if err := s.flushLocked(ctx); err != nil {
		s.tasks, s.nextSeq = snapTasks, snapSeq
		return err
	}

	return nil
}

// snapshotLocked deep-copies the graph state. Caller holds mu.
func (s *Store) snapshotLocked() (map[string]*domain.Task, int64) {
	cp := make(map[string]*domain.Task, len(s.tasks))
	for id, t := range s.tasks {
		cp[id] = t.Clone()
	}
	return cp, s.nextSeq
}

// sortedTasksLocked returns the task list ordered by creation sequence.
// Caller holds mu.
func (s *Store) sortedTasksLocked() []*domain.Task {
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
