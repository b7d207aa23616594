// Package watch hosts a model file on disk as a live document and keeps its annotations
// current as the file is edited.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/uuid"
	"github.com/uber/mzn-playground/src/playground/controller/annotations"
	"github.com/uber/mzn-playground/src/playground/controller/check"
	"github.com/uber/mzn-playground/src/playground/entity"
	"github.com/uber/mzn-playground/src/playground/internal/clock"
	"github.com/uber/mzn-playground/src/playground/internal/document"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
	"github.com/uber/mzn-playground/src/playground/internal/fs"
	"github.com/uber/mzn-playground/src/playground/mapper"
	"github.com/uber/mzn-playground/src/playground/repository/settings"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_nameKey         = "watch"
	_documentKey     = "playground.document"
	_debounceTimeout = 10 * time.Millisecond
	_sessionFileKey  = "file"
)

// Module provides the watch handler and ties it to the application lifecycle.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, h Handler) {
		lc.Append(fx.Hook{
			OnStart: h.Start,
			OnStop:  h.Stop,
		})
	}),
)

// Handler follows a model file on disk.
type Handler interface {
	// Start loads the configured file and begins following changes to it. It does nothing
	// when no file is configured.
	Start(ctx context.Context) error
	// Stop stops following the file.
	Stop(ctx context.Context) error
	// Document returns the live document, or nil before Start.
	Document() *document.Document
}

// Params are inbound parameters to initialize the handler.
type Params struct {
	fx.In

	Config      config.Provider
	FS          fs.PlaygroundFS
	Clock       clock.Clock
	Check       check.Controller
	Annotations annotations.Controller
	Settings    settings.Repository
	Logger      *zap.SugaredLogger
}

type handler struct {
	path        string
	fs          fs.PlaygroundFS
	clock       clock.Clock
	check       check.Controller
	annotations annotations.Controller
	settings    settings.Repository
	logger      *zap.SugaredLogger

	mu            sync.Mutex
	doc           *document.Document
	watcher       *fsnotify.Watcher
	debounceTimer clock.Timer
	stopWatch     func()
	unsubscribe   func()
	closer        chan bool
	wg            sync.WaitGroup
}

// New creates the watch Handler.
func New(p Params) (Handler, error) {
	var path string
	if err := p.Config.Get(_documentKey).Populate(&path); err != nil {
		return nil, fmt.Errorf("reading %s: %w", _documentKey, err)
	}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		path = abs
	}

	return &handler{
		path:        path,
		fs:          p.FS,
		clock:       p.Clock,
		check:       p.Check,
		annotations: p.Annotations,
		settings:    p.Settings,
		logger:      p.Logger.With("plugin", _nameKey),
	}, nil
}

func (h *handler) Start(ctx context.Context) error {
	if err := h.settings.Hydrate(ctx); err != nil {
		return err
	}
	if h.path == "" {
		h.logger.Info("no document configured, not watching")
		return nil
	}

	data, err := h.fs.ReadFile(h.path)
	if err != nil {
		return fmt.Errorf("unable to open file %q: %w", h.path, err)
	}
	docURI := uri.File(h.path)
	doc := document.New(docURI, string(data))

	if err := h.touchSession(ctx, docURI); err != nil {
		if perrors.IsMisuse(err) {
			return fmt.Errorf("recording session for %s: %w", h.path, err)
		}
		h.logger.Warnw("failed to record session", zap.Error(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fs watcher for %s: %w", h.path, err)
	}
	// Editors often replace the file, so the directory is watched rather than the file.
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		return multierr.Append(fmt.Errorf("watching %s: %w", h.path, err), watcher.Close())
	}

	h.mu.Lock()
	h.doc = doc
	h.watcher = watcher
	h.closer = make(chan bool)
	h.unsubscribe = doc.OnUpdate(h.report)
	h.stopWatch = h.check.Watch(doc)
	h.mu.Unlock()

	h.wg.Add(1)
	go h.handleChanges(watcher, h.closer)
	h.logger.Infow("watching document", "path", h.path)
	return nil
}

func (h *handler) Stop(ctx context.Context) error {
	h.mu.Lock()
	if h.closer == nil {
		h.mu.Unlock()
		return nil
	}
	close(h.closer)
	h.closer = nil
	if h.debounceTimer != nil {
		if h.debounceTimer.Stop() {
			h.wg.Done()
		}
		h.debounceTimer = nil
	}
	stopWatch, unsubscribe := h.stopWatch, h.unsubscribe
	h.mu.Unlock()

	h.wg.Wait()
	stopWatch()
	unsubscribe()
	return nil
}

func (h *handler) Document() *document.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc
}

// touchSession records the document in a session keyed by its URI, so repeated runs on the
// same file reuse one session.
func (h *handler) touchSession(ctx context.Context, docURI uri.URI) error {
	key := uuid.NewV5(uuid.NamespaceURL, string(docURI)).String()
	file, err := json.Marshal(h.path)
	if err != nil {
		return err
	}
	return h.settings.TouchSession(ctx, key, entity.SessionRecord{
		Extra: map[string]json.RawMessage{_sessionFileKey: file},
	})
}

func (h *handler) handleChanges(watcher *fsnotify.Watcher, closer chan bool) {
	defer h.wg.Done()
	for {
		select {
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != h.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			h.handleDebounce()
		case err := <-watcher.Errors:
			h.logger.Warnf("Failure in document watcher: %v", err)
		case <-closer:
			if err := watcher.Close(); err != nil {
				h.logger.Warnf("Failed to close document watcher: %v", err)
			}
			return
		}
	}
}

// handleDebounce collapses bursts of file events into a single reload.
func (h *handler) handleDebounce() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closer == nil {
		return
	}

	if h.debounceTimer != nil && h.debounceTimer.Stop() {
		h.wg.Done()
	}
	h.wg.Add(1)
	h.debounceTimer = h.clock.AfterFunc(_debounceTimeout, func() {
		defer h.wg.Done()
		if err := h.reload(); err != nil {
			h.logger.Warnf("Failed to reload document: %v", err)
		}
	})
}

func (h *handler) reload() error {
	data, err := h.fs.ReadFile(h.path)
	if err != nil {
		return fmt.Errorf("unable to open file %q: %w", h.path, err)
	}
	doc := h.Document()
	if doc == nil || doc.Text() == string(data) {
		return nil
	}
	return doc.ReplaceText(string(data))
}

// report logs the rendered annotations whenever a batch of diagnostics is applied.
func (h *handler) report(u document.Update) {
	if len(u.Effects) == 0 {
		return
	}
	decorations := h.annotations.Decorations(u.Document)
	params := mapper.DocumentToPublishParams(u.Document)
	h.logger.Infow("diagnostics updated",
		"path", h.path,
		"version", params.Version,
		"count", len(decorations),
	)
	for _, d := range params.Diagnostics {
		h.logger.Infof("%s:%d:%d: %s", filepath.Base(h.path), d.Range.Start.Line+1, d.Range.Start.Character+1, d.Message)
	}
}
