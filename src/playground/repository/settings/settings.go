// Package settings holds the persisted playground settings and keeps them consistent with
// every other context sharing the same storage.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/mzn-playground/src/playground/entity"
	"github.com/uber/mzn-playground/src/playground/gateway/storage"
	"github.com/uber/mzn-playground/src/playground/internal/clock"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
	"github.com/uber/mzn-playground/src/playground/internal/store"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey        = "settings"
	_storageKeyKey  = "settings.storageKey"
	_maxSessionsKey = "settings.maxSessions"
)

// Module provides the settings repository.
var Module = fx.Provide(New)

// State is the lifecycle state of the repository.
type State int

const (
	// StateUninitialized is the state before Hydrate is called.
	StateUninitialized State = iota
	// StateHydrating is the state while stored settings are being loaded.
	StateHydrating
	// StateLive is the state once settings are loaded and external writes are followed.
	StateLive
)

func (s State) String() string {
	switch s {
	case StateHydrating:
		return "hydrating"
	case StateLive:
		return "live"
	default:
		return "uninitialized"
	}
}

//go:generate mockgen -source=settings.go -destination=repositorymock/settings_mock.go -package=repositorymock

// Repository is the settings store shared by the playground.
//
// Subscribers are called synchronously while the store is locked and must not call
// back into the Repository.
type Repository interface {
	// Hydrate loads stored settings and starts following writes from other contexts.
	Hydrate(ctx context.Context) error
	State() State
	// Get returns a copy of the current settings.
	Get() entity.Settings
	// Update applies fn to a copy of the current settings, then publishes and persists the result.
	Update(ctx context.Context, fn func(*entity.Settings)) error
	// Set replaces the current settings.
	Set(ctx context.Context, s entity.Settings) error
	// Subscribe calls fn with each new value. It is not called with the current value.
	Subscribe(fn func(entity.Settings)) (unsubscribe func())
	// TouchSession stores record under key, stamped with the current time.
	TouchSession(ctx context.Context, key string, record entity.SessionRecord) error
	// NewSessionKey returns a key for a new session.
	NewSessionKey() (string, error)
	// Close stops following external writes.
	Close() error
}

// Params are inbound parameters to initialize the repository.
type Params struct {
	fx.In

	Storage storage.Backend
	Config  config.Provider
	Clock   clock.Clock
	Logger  *zap.SugaredLogger
	Stats   tally.Scope
}

type repository struct {
	// mu serializes every mutation, local or external.
	mu    sync.Mutex
	state State
	value *store.Writable[entity.Settings]

	// suppressEcho is set while applying values that came from storage so that they are
	// not written back.
	suppressEcho bool
	mutationCtx  context.Context
	persistErr   error

	storage        storage.Backend
	key            string
	capacity       int
	clock          clock.Clock
	logger         *zap.SugaredLogger
	stats          tally.Scope
	cancelExternal func()
}

// New returns a settings Repository backed by the configured storage.
func New(p Params) Repository {
	var key string
	if err := p.Config.Get(_storageKeyKey).Populate(&key); err != nil || key == "" {
		key = entity.SettingsStorageKey
	}
	var capacity int
	if err := p.Config.Get(_maxSessionsKey).Populate(&capacity); err != nil || capacity <= 0 {
		capacity = entity.MaxSessions
	}

	r := &repository{
		value:    store.NewWritable(entity.DefaultSettings()),
		storage:  p.Storage,
		key:      key,
		capacity: capacity,
		clock:    p.Clock,
		logger:   p.Logger.With("plugin", _nameKey),
		stats:    p.Stats.SubScope(_nameKey),
	}
	// Registered first so storage is written before any other subscriber runs.
	r.value.Subscribe(r.persist)
	return r
}

func (r *repository) Hydrate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUninitialized {
		return nil
	}
	r.state = StateHydrating

	raw, ok, err := r.storage.Read(ctx, r.key)
	if err != nil {
		r.state = StateUninitialized
		return fmt.Errorf("reading stored settings: %w", err)
	}
	if ok && raw != "" {
		r.mergeLocked(raw, "hydrate")
	}

	cancel, err := r.storage.OnExternalWrite(r.key, r.onExternalWrite)
	if err != nil {
		r.state = StateUninitialized
		return fmt.Errorf("following settings writes: %w", err)
	}
	r.cancelExternal = cancel
	r.state = StateLive
	r.logger.Debugw("settings hydrated", "key", r.key, "sessions", len(r.value.Get().Sessions))
	return nil
}

func (r *repository) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *repository) Get() entity.Settings {
	return r.value.Get().Clone()
}

func (r *repository) Update(ctx context.Context, fn func(*entity.Settings)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateLive {
		return perrors.StoreNotLiveError
	}
	return r.publishLocked(ctx, func(cur entity.Settings) entity.Settings {
		next := cur.Clone()
		fn(&next)
		return next
	})
}

func (r *repository) Set(ctx context.Context, s entity.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateLive {
		return perrors.StoreNotLiveError
	}
	next := s.Clone()
	return r.publishLocked(ctx, func(entity.Settings) entity.Settings { return next })
}

func (r *repository) Subscribe(fn func(entity.Settings)) func() {
	return r.value.Subscribe(func(s entity.Settings) {
		fn(s.Clone())
	})
}

func (r *repository) TouchSession(ctx context.Context, key string, record entity.SessionRecord) error {
	if key == "" {
		return perrors.EmptyStorageKeyError
	}
	record.Timestamp = clock.UnixMilli(r.clock)
	return r.Update(ctx, func(s *entity.Settings) {
		if record.Extra == nil {
			record.Extra = s.Sessions[key].Extra
		}
		s.Sessions[key] = record
	})
}

func (r *repository) NewSessionKey() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generating session key: %w", err)
	}
	return id.String(), nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancelExternal != nil {
		r.cancelExternal()
		r.cancelExternal = nil
	}
	return nil
}

// publishLocked derives the next value from the current one, evicts the oldest sessions
// over capacity and publishes it. The value is persisted by the first subscriber.
func (r *repository) publishLocked(ctx context.Context, mutate func(entity.Settings) entity.Settings) error {
	r.mutationCtx = ctx
	r.persistErr = nil
	r.value.Update(func(cur entity.Settings) entity.Settings {
		next := mutate(cur)
		if next.Sessions == nil {
			next.Sessions = map[string]entity.SessionRecord{}
		}
		next, dropped := next.Evict(r.capacity)
		if len(dropped) > 0 {
			r.logger.Debugw("evicting sessions", "dropped", dropped, "capacity", r.capacity)
			r.stats.Counter("evicted").Inc(int64(len(dropped)))
		}
		return next
	})
	err := r.persistErr
	r.mutationCtx = nil
	r.persistErr = nil
	return err
}

// mergeLocked shallow-merges a stored payload into the current value without persisting it.
func (r *repository) mergeLocked(raw string, source string) {
	next, err := r.value.Get().MergeJSON([]byte(raw))
	if err != nil {
		r.logger.Warnw("ignoring malformed stored settings", "source", source, zap.Error(err))
		r.stats.Counter("malformed").Inc(1)
		return
	}

	r.suppressEcho = true
	r.value.Set(next)
	r.suppressEcho = false
	r.stats.Counter("merged").Inc(1)
}

func (r *repository) onExternalWrite(raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if raw == "" || r.state != StateLive {
		return
	}
	r.mergeLocked(raw, "external")
}

func (r *repository) persist(s entity.Settings) {
	if r.suppressEcho {
		return
	}

	data, err := json.Marshal(s)
	if err != nil {
		r.persistErr = fmt.Errorf("encoding settings: %w", err)
		return
	}

	ctx := r.mutationCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.storage.Write(ctx, r.key, string(data)); err != nil {
		r.logger.Warnw("failed to persist settings", "key", r.key, zap.Error(err))
		r.persistErr = fmt.Errorf("persisting settings: %w", err)
		return
	}
	r.stats.Counter("persisted").Inc(1)
}
