package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/uber/mzn-playground/src/playground/internal/clock"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
	"github.com/uber/mzn-playground/src/playground/internal/fs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_fileExt         = ".json"
	_debounceTimeout = 10 * time.Millisecond
)

// File stores each key as a JSON file in a directory. Writes made to the directory by
// other processes are reported to OnExternalWrite listeners.
type File struct {
	dir     string
	fs      fs.PlaygroundFS
	clock   clock.Clock
	logger  *zap.SugaredLogger
	watcher *fsnotify.Watcher

	mu             sync.Mutex
	lastSeen       map[string]string
	listeners      map[string]map[uint64]func(string)
	nextID         uint64
	debounceTimers map[string]clock.Timer
	closed         bool

	// deliverMu keeps listener calls for the backend on one goroutine at a time.
	deliverMu sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ Backend = (*File)(nil)

// NewFile creates a File backend rooted at dir, creating the directory if needed.
func NewFile(dir string, fsys fs.PlaygroundFS, clk clock.Clock, logger *zap.SugaredLogger) (*File, error) {
	if err := fsys.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher for storage: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return nil, multierr.Append(fmt.Errorf("watching %s: %w", dir, err), watcher.Close())
	}

	f := &File{
		dir:            dir,
		fs:             fsys,
		clock:          clk,
		logger:         logger.With("plugin", "storage"),
		watcher:        watcher,
		lastSeen:       make(map[string]string),
		listeners:      make(map[string]map[uint64]func(string)),
		debounceTimers: make(map[string]clock.Timer),
		done:           make(chan struct{}),
	}
	f.wg.Add(1)
	go f.handleChanges()
	return f, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+_fileExt)
}

func (f *File) keyForPath(name string) (string, bool) {
	if filepath.Dir(name) != filepath.Clean(f.dir) || !strings.HasSuffix(name, _fileExt) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(filepath.Base(name), _fileExt))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// Read implements Backend.
func (f *File) Read(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, perrors.EmptyStorageKeyError
	}
	name := f.path(key)
	exists, err := f.fs.FileExists(name)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return "", false, nil
	}
	data, err := f.fs.ReadFile(name)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", name, err)
	}

	f.mu.Lock()
	f.lastSeen[key] = string(data)
	f.mu.Unlock()
	return string(data), true, nil
}

// Write implements Backend.
func (f *File) Write(_ context.Context, key string, value string) error {
	if key == "" {
		return perrors.EmptyStorageKeyError
	}

	// Recorded before writing so the resulting watcher event is recognised as our own.
	f.mu.Lock()
	f.lastSeen[key] = value
	f.mu.Unlock()

	if err := f.fs.WriteFileAtomic(f.path(key), []byte(value)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// OnExternalWrite implements Backend.
func (f *File) OnExternalWrite(key string, fn func(string)) (func(), error) {
	if key == "" {
		return nil, perrors.EmptyStorageKeyError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.listeners[key] == nil {
		f.listeners[key] = make(map[uint64]func(string))
	}
	f.listeners[key][id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners[key], id)
	}, nil
}

// Close stops watching the directory and cancels pending notifications.
func (f *File) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		for key, timer := range f.debounceTimers {
			if timer.Stop() {
				f.wg.Done()
			}
			delete(f.debounceTimers, key)
		}
		f.mu.Unlock()

		close(f.done)
		err = multierr.Append(err, f.watcher.Close())
	})
	f.wg.Wait()
	return err
}

func (f *File) handleChanges() {
	defer f.wg.Done()
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if key, ok := f.keyForPath(event.Name); ok {
				f.handleDebounce(key)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warnf("Failure in storage watcher: %v", err)
		case <-f.done:
			return
		}
	}
}

// handleDebounce collapses bursts of events for a key into a single read.
func (f *File) handleDebounce(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	if timer, exists := f.debounceTimers[key]; exists && timer.Stop() {
		f.wg.Done()
	}

	f.wg.Add(1)
	f.debounceTimers[key] = f.clock.AfterFunc(_debounceTimeout, func() {
		defer f.wg.Done()
		f.mu.Lock()
		delete(f.debounceTimers, key)
		f.mu.Unlock()

		f.reload(key)
	})
}

func (f *File) reload(key string) {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	data, err := f.fs.ReadFile(f.path(key))
	if err != nil {
		f.logger.Warnf("Failed to read external write for %q: %v", key, err)
		return
	}
	value := string(data)

	f.mu.Lock()
	if f.closed || f.lastSeen[key] == value {
		f.mu.Unlock()
		return
	}
	f.lastSeen[key] = value
	fns := make([]func(string), 0, len(f.listeners[key]))
	for _, fn := range f.listeners[key] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
