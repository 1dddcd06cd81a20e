package store

import (
	"sort"
	"sync"
	"time"

	"memvfs/internal/logging"
	"memvfs/internal/metrics"
	"memvfs/internal/vpath"
)

// FileType tells files and directories apart.
type FileType int

const (
	// TypeFile is a regular file with a payload
	TypeFile FileType = iota + 1
	// TypeDirectory is a directory marker
	TypeDirectory
)

func (t FileType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// MarshalText lets file types serialize by name.
func (t FileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Stat describes a single entry. Directories report a zero size.
type Stat struct {
	Type  FileType  `json:"type"`
	Size  int64     `json:"size"`
	Ctime time.Time `json:"ctime"`
	Mtime time.Time `json:"mtime"`
}

// DirEntry is one direct child returned by List.
type DirEntry struct {
	Name string   `json:"name"`
	Type FileType `json:"type"`
}

// WriteOptions controls whether Write may create and/or replace a file.
type WriteOptions struct {
	Create    bool
	Overwrite bool
}

// DeleteOptions controls whether Delete removes descendants of a directory.
type DeleteOptions struct {
	Recursive bool
}

// RenameOptions controls whether Rename may replace an existing file.
type RenameOptions struct {
	Overwrite bool
}

// WatchOptions is accepted by Watch for interface compatibility.
type WatchOptions struct {
	Recursive bool
	Excludes  []string
}

type file struct {
	data  []byte
	ctime time.Time
	mtime time.Time
}

type dir struct {
	ctime time.Time
}

// Store is an in-memory hierarchy of files and directories kept in two flat
// maps keyed by absolute path. Parent/child relations are derived from the
// keys on every call; no tree is maintained.
//
// Mutations are serialized by a single lock. Reads may run concurrently with
// each other and always see the latest completed mutation.
type Store struct {
	mu    sync.RWMutex
	files map[string]*file
	dirs  map[string]*dir

	// emitMu serializes mutations end to end, event delivery included. It is
	// always acquired before mu.
	emitMu  sync.Mutex
	emitter *emitter

	now     func() time.Time
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for ctime and mtime.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMetrics records operations and entry counts in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates an empty store holding only the root directory.
func New(opts ...Option) *Store {
	s := &Store{
		files:   make(map[string]*file),
		dirs:    make(map[string]*dir),
		emitter: newEmitter(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetLogger().WithPrefix("store")
	}

	s.dirs[vpath.Root] = &dir{ctime: s.now()}
	s.metrics.SetEntries(0, 1)

	s.logger.Debug("Created new store")
	return s
}

// Stat returns metadata for the file or directory at p.
func (s *Store) Stat(p string) (Stat, error) {
	p = vpath.Clean(p)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.dirs[p]; ok {
		s.metrics.RecordOperation(OpStat, "ok")
		return Stat{Type: TypeDirectory, Ctime: d.ctime, Mtime: d.ctime}, nil
	}
	if f, ok := s.files[p]; ok {
		s.metrics.RecordOperation(OpStat, "ok")
		return Stat{
			Type:  TypeFile,
			Size:  int64(len(f.data)),
			Ctime: f.ctime,
			Mtime: f.mtime,
		}, nil
	}

	s.logger.Trace("Stat miss: %q", p)
	return Stat{}, s.fail(OpStat, p, ErrNotFound)
}

// List returns the direct children of the directory at p, sorted by name.
func (s *Store) List(p string) ([]DirEntry, error) {
	p = vpath.Clean(p)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.dirs[p]; !ok {
		return nil, s.fail(OpList, p, ErrNotFound)
	}

	var entries []DirEntry
	for fp := range s.files {
		if vpath.IsDirectChild(p, fp) {
			entries = append(entries, DirEntry{Name: vpath.Base(fp), Type: TypeFile})
		}
	}
	for dp := range s.dirs {
		if vpath.IsDirectChild(p, dp) {
			entries = append(entries, DirEntry{Name: vpath.Base(dp), Type: TypeDirectory})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	s.logger.Trace("Directory %q contains %d entries", p, len(entries))
	s.metrics.RecordOperation(OpList, "ok")
	return entries, nil
}

// Read returns a copy of the payload of the file at p.
func (s *Store) Read(p string) ([]byte, error) {
	p = vpath.Clean(p)

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[p]
	if !ok {
		return nil, s.fail(OpRead, p, ErrNotFound)
	}

	out := make([]byte, len(f.data))
	copy(out, f.data)
	s.metrics.RecordOperation(OpRead, "ok")
	return out, nil
}

// Write stores data at p. An existing file is only replaced with Overwrite
// and a missing file is only created with Create. A directory at p is never
// replaced.
func (s *Store) Write(p string, data []byte, opts WriteOptions) error {
	p = vpath.Clean(p)

	return s.mutate(OpWrite, p, func() ([]Event, error) {
		if _, isDir := s.dirs[p]; isDir {
			return nil, ErrAlreadyExists
		}

		existing, exists := s.files[p]
		if exists && !opts.Overwrite {
			return nil, ErrAlreadyExists
		}
		if !exists && !opts.Create {
			return nil, ErrNotFound
		}

		buf := make([]byte, len(data))
		copy(buf, data)
		now := s.now()

		if exists {
			existing.data = buf
			existing.mtime = now
			s.logger.Debug("Updated file %q (%d bytes)", p, len(buf))
			return []Event{{Type: Changed, Path: p}}, nil
		}

		s.files[p] = &file{data: buf, ctime: now, mtime: now}
		s.logger.Debug("Created file %q (%d bytes)", p, len(buf))
		return []Event{{Type: Created, Path: p}}, nil
	})
}

// CreateDirectory adds a directory marker at p. The parent need not exist.
func (s *Store) CreateDirectory(p string) error {
	p = vpath.Clean(p)

	return s.mutate(OpMkdir, p, func() ([]Event, error) {
		if _, ok := s.dirs[p]; ok {
			return nil, ErrAlreadyExists
		}
		if _, ok := s.files[p]; ok {
			return nil, ErrAlreadyExists
		}

		s.dirs[p] = &dir{ctime: s.now()}
		s.logger.Debug("Created directory %q", p)
		return []Event{{Type: Created, Path: p}}, nil
	})
}

// Delete removes the file or directory at p. Without Recursive only the
// directory marker goes; entries below it stay reachable by path. With
// Recursive every entry under p+"/" is removed too. One Deleted event is
// emitted either way.
func (s *Store) Delete(p string, opts DeleteOptions) error {
	p = vpath.Clean(p)

	return s.mutate(OpDelete, p, func() ([]Event, error) {
		if vpath.IsRoot(p) {
			return nil, ErrRootImmutable
		}

		if _, ok := s.files[p]; ok {
			delete(s.files, p)
			s.logger.Debug("Deleted file %q", p)
			return []Event{{Type: Deleted, Path: p}}, nil
		}

		if _, ok := s.dirs[p]; !ok {
			return nil, ErrNotFound
		}

		if opts.Recursive {
			removed := 0
			for fp := range s.files {
				if vpath.IsDescendant(fp, p) {
					delete(s.files, fp)
					removed++
				}
			}
			for dp := range s.dirs {
				if vpath.IsDescendant(dp, p) {
					delete(s.dirs, dp)
					removed++
				}
			}
			s.logger.Debug("Removed %d entries below %q", removed, p)
		}
		delete(s.dirs, p)

		s.logger.Debug("Deleted directory %q (recursive=%v)", p, opts.Recursive)
		return []Event{{Type: Deleted, Path: p}}, nil
	})
}

// Rename moves the file at oldPath to newPath. Directories cannot be renamed.
func (s *Store) Rename(oldPath, newPath string, opts RenameOptions) error {
	oldPath = vpath.Clean(oldPath)
	newPath = vpath.Clean(newPath)

	return s.mutate(OpRename, oldPath, func() ([]Event, error) {
		if vpath.IsRoot(oldPath) {
			return nil, ErrRootImmutable
		}

		f, ok := s.files[oldPath]
		if !ok {
			return nil, ErrNotFound
		}
		if oldPath == newPath {
			return nil, nil
		}

		if _, isDir := s.dirs[newPath]; isDir {
			return nil, newError(OpRename, newPath, ErrAlreadyExists)
		}
		if _, exists := s.files[newPath]; exists && !opts.Overwrite {
			return nil, newError(OpRename, newPath, ErrAlreadyExists)
		}

		s.files[newPath] = f
		delete(s.files, oldPath)

		s.logger.Debug("Renamed %q to %q", oldPath, newPath)
		return []Event{
			{Type: Deleted, Path: oldPath},
			{Type: Created, Path: newPath},
		}, nil
	})
}

// Watch satisfies the host's watch contract without observing anything.
// Live notifications are available through Subscribe.
func (s *Store) Watch(p string, _ WatchOptions) Subscription {
	s.logger.Trace("Watch requested for %q (not observed)", vpath.Clean(p))
	return nopSubscription{}
}

// Subscribe registers fn for every change event. Events are delivered in
// emission order before the mutating call returns.
func (s *Store) Subscribe(fn Listener) Subscription {
	return s.emitter.subscribe(fn)
}

// Subscribers returns the number of registered listeners.
func (s *Store) Subscribers() int {
	return s.emitter.count()
}

// FilePaths returns a sorted snapshot of every file path.
func (s *Store) FilePaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DirectoryPaths returns a sorted snapshot of every directory path,
// including the root.
func (s *Store) DirectoryPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.dirs))
	for p := range s.dirs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of files and directories.
func (s *Store) Len() (files, dirs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files), len(s.dirs)
}

// mutate runs fn under the write lock and then delivers its events with mu
// released, so listeners may read the store. emitMu is always taken before
// mu and is held until delivery ends, which keeps events in mutation order.
func (s *Store) mutate(op, p string, fn func() ([]Event, error)) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	events, err := fn()
	if err != nil {
		s.mu.Unlock()
		return s.fail(op, p, err)
	}
	s.metrics.SetEntries(len(s.files), len(s.dirs))
	s.metrics.RecordOperation(op, "ok")
	s.mu.Unlock()

	for _, ev := range events {
		s.metrics.RecordEvent(ev.Type.String())
	}
	s.emitter.fire(events)
	return nil
}

func (s *Store) fail(op, p string, err error) error {
	s.metrics.RecordOperation(op, Kind(err))
	if e, ok := err.(*Error); ok {
		return e
	}
	return newError(op, p, err)
}
