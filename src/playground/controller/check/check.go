// Package check runs the checker on watched documents once editing pauses.
package check

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/mzn-playground/src/playground/controller/annotations"
	"github.com/uber/mzn-playground/src/playground/gateway/checker"
	"github.com/uber/mzn-playground/src/playground/internal/clock"
	"github.com/uber/mzn-playground/src/playground/internal/document"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey     = "check"
	_debounceKey = "check.debounceMs"

	// DefaultDebounce is how long editing must pause before a check runs.
	DefaultDebounce = 250 * time.Millisecond
)

// Module provides the check controller.
var Module = fx.Provide(New)

// Controller schedules checks for documents.
type Controller interface {
	// Watch schedules a check now and after every burst of edits to doc. The returned
	// function stops watching.
	Watch(doc *document.Document) (stop func())
	// Trigger checks doc immediately, cancelling any pending scheduled check.
	Trigger(ctx context.Context, doc *document.Document) error
	// Close stops every pending check and waits for running ones to finish.
	Close() error
}

// Params are inbound parameters to initialize the controller.
type Params struct {
	fx.In

	Config      config.Provider
	Checker     checker.Gateway
	Annotations annotations.Controller
	Clock       clock.Clock
	Logger      *zap.SugaredLogger
	Stats       tally.Scope
}

type controller struct {
	checker     checker.Gateway
	annotations annotations.Controller
	clock       clock.Clock
	logger      *zap.SugaredLogger
	stats       tally.Scope
	debounce    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	debounceTimers map[uuid.UUID]clock.Timer
	watches        map[uuid.UUID]map[uint64]func()
	started        map[uuid.UUID]uint64 // sequence of the latest check per document
	nextWatch      uint64
	nextSeq        uint64
	closed         bool
	wg             sync.WaitGroup
}

// New creates a check Controller.
func New(p Params) Controller {
	var debounceMs int
	debounce := DefaultDebounce
	if err := p.Config.Get(_debounceKey).Populate(&debounceMs); err == nil && debounceMs > 0 {
		debounce = time.Duration(debounceMs) * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &controller{
		checker:        p.Checker,
		annotations:    p.Annotations,
		clock:          p.Clock,
		logger:         p.Logger.With("plugin", _nameKey),
		stats:          p.Stats.SubScope(_nameKey),
		debounce:       debounce,
		ctx:            ctx,
		cancel:         cancel,
		debounceTimers: make(map[uuid.UUID]clock.Timer),
		watches:        make(map[uuid.UUID]map[uint64]func()),
		started:        make(map[uuid.UUID]uint64),
	}
}

func (c *controller) Watch(doc *document.Document) func() {
	unsubscribe := doc.OnUpdate(func(u document.Update) {
		if u.DocChanged {
			c.handleDebounce(u.Document)
		}
	})

	id := doc.ID()
	c.mu.Lock()
	c.nextWatch++
	watchID := c.nextWatch
	if c.watches[id] == nil {
		c.watches[id] = make(map[uint64]func())
	}
	c.watches[id][watchID] = unsubscribe
	c.mu.Unlock()

	c.handleDebounce(doc)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			c.mu.Lock()
			defer c.mu.Unlock()
			watches, ok := c.watches[id]
			if !ok {
				return
			}
			delete(watches, watchID)
			if len(watches) > 0 {
				return
			}
			// Last watch gone: forget the document. A check still running is dropped.
			delete(c.watches, id)
			delete(c.started, id)
			c.stopTimerLocked(id)
		})
	}
}

func (c *controller) Trigger(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return &perrors.NilDocumentError{}
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("check controller closed")
	}
	c.stopTimerLocked(doc.ID())
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	return c.run(ctx, doc)
}

func (c *controller) Close() error {
	c.mu.Lock()
	c.closed = true
	for id := range c.debounceTimers {
		c.stopTimerLocked(id)
	}
	watches := c.watches
	c.watches = make(map[uuid.UUID]map[uint64]func())
	c.mu.Unlock()

	for _, unsubscribes := range watches {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}
	c.cancel()
	c.wg.Wait()
	return nil
}

// handleDebounce re-arms the timer for doc so that a check runs once edits pause.
func (c *controller) handleDebounce(doc *document.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	id := doc.ID()
	c.stopTimerLocked(id)

	c.wg.Add(1)
	var timer clock.Timer
	timer = c.clock.AfterFunc(c.debounce, func() {
		defer c.wg.Done()
		c.mu.Lock()
		if c.debounceTimers[id] == timer {
			delete(c.debounceTimers, id)
		}
		c.mu.Unlock()

		// Failures are logged by run and never stop the watch.
		_ = c.run(c.ctx, doc)
	})
	c.debounceTimers[id] = timer
}

func (c *controller) stopTimerLocked(id uuid.UUID) {
	timer, ok := c.debounceTimers[id]
	if !ok {
		return
	}
	delete(c.debounceTimers, id)
	if timer.Stop() {
		c.wg.Done()
	}
}

// run checks a snapshot of doc. Results from a check that has since been superseded by a
// newer one, or whose document is no longer watched, are dropped.
func (c *controller) run(ctx context.Context, doc *document.Document) error {
	id := doc.ID()
	c.mu.Lock()
	c.nextSeq++
	seq := c.nextSeq
	c.started[id] = seq
	c.mu.Unlock()

	text := doc.Text()
	start := c.clock.Now()
	diagnostics, err := c.checker.Check(ctx, text)
	c.stats.Timer("latency").Record(c.clock.Now().Sub(start))

	c.mu.Lock()
	superseded := c.started[id] != seq
	if !superseded && len(c.watches[id]) == 0 {
		delete(c.started, id)
	}
	c.mu.Unlock()

	if err != nil {
		c.stats.Counter("failed").Inc(1)
		c.logger.Warnw("checker failed", "document", doc.URI(), zap.Error(err))
		return fmt.Errorf("checking %s: %w", doc.URI(), err)
	}
	if superseded {
		c.stats.Counter("superseded").Inc(1)
		return nil
	}

	c.stats.Counter("checks").Inc(1)
	return c.annotations.ApplyDiagnostics(ctx, text, diagnostics, doc)
}
