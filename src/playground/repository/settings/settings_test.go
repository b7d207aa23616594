package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/mzn-playground/src/playground/entity"
	"github.com/uber/mzn-playground/src/playground/gateway/storage"
	"github.com/uber/mzn-playground/src/playground/gateway/storage/storagemock"
	"github.com/uber/mzn-playground/src/playground/internal/clock"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
	"go.uber.org/config"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock advances by one millisecond on every call to Now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return time.AfterFunc(d, f)
}

type testRepo struct {
	*repository
	stats    tally.TestScope
	recorded *observer.ObservedLogs
}

func newTestRepository(t *testing.T, backend storage.Backend, cfg map[string]interface{}) testRepo {
	if cfg == nil {
		cfg = map[string]interface{}{}
	}
	provider, err := config.NewStaticProvider(cfg)
	require.NoError(t, err)

	core, recorded := observer.New(zap.DebugLevel)
	stats := tally.NewTestScope("", nil)
	r := New(Params{
		Storage: backend,
		Config:  provider,
		Clock:   &fakeClock{now: time.UnixMilli(1000)},
		Logger:  zap.New(core).Sugar(),
		Stats:   stats,
	})
	return testRepo{repository: r.(*repository), stats: stats, recorded: recorded}
}

func counter(scope tally.TestScope, name string) int64 {
	c, ok := scope.Snapshot().Counters()["settings."+name+"+"]
	if !ok {
		return 0
	}
	return c.Value()
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)

	r := newTestRepository(t, backend, nil)
	assert.Equal(t, entity.SettingsStorageKey, r.key)
	assert.Equal(t, entity.MaxSessions, r.capacity)
	assert.Equal(t, StateUninitialized, r.State())
	assert.Equal(t, entity.DefaultSettings(), r.Get())

	r = newTestRepository(t, backend, map[string]interface{}{
		"settings": map[string]interface{}{"storageKey": "custom", "maxSessions": 2},
	})
	assert.Equal(t, "custom", r.key)
	assert.Equal(t, 2, r.capacity)
}

func TestHydrate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		stored    string
		found     bool
		readErr   error
		want      func() entity.Settings
		wantErr   bool
		wantState State
		wantWarns int
	}{
		{
			name:      "nothing stored",
			want:      entity.DefaultSettings,
			wantState: StateLive,
		},
		{
			name:   "stored keys replace defaults",
			stored: `{"splitterSize":40,"sessions":{"s1":{"timestamp":10}}}`,
			found:  true,
			want: func() entity.Settings {
				s := entity.DefaultSettings()
				s.SplitterSize = 40
				s.Sessions["s1"] = entity.SessionRecord{Timestamp: 10}
				return s
			},
			wantState: StateLive,
		},
		{
			name:      "empty payload",
			stored:    "",
			found:     true,
			want:      entity.DefaultSettings,
			wantState: StateLive,
		},
		{
			name:      "malformed payload",
			stored:    `{"splitterSize":`,
			found:     true,
			want:      entity.DefaultSettings,
			wantState: StateLive,
			wantWarns: 1,
		},
		{
			name:      "read failure",
			readErr:   errors.New("disk on fire"),
			want:      entity.DefaultSettings,
			wantErr:   true,
			wantState: StateUninitialized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			backend := storagemock.NewMockBackend(ctrl)
			r := newTestRepository(t, backend, nil)

			backend.EXPECT().Read(gomock.Any(), entity.SettingsStorageKey).Return(tt.stored, tt.found, tt.readErr)
			if !tt.wantErr {
				backend.EXPECT().OnExternalWrite(entity.SettingsStorageKey, gomock.Any()).Return(func() {}, nil)
			}
			backend.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			err := r.Hydrate(ctx)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantState, r.State())
			assert.Equal(t, tt.want(), r.Get())
			assert.Equal(t, tt.wantWarns, r.recorded.FilterMessage("ignoring malformed stored settings").Len())
		})
	}
}

func TestHydrateIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r := newTestRepository(t, backend, nil)

	backend.EXPECT().Read(gomock.Any(), gomock.Any()).Return("", false, nil).Times(1)
	backend.EXPECT().OnExternalWrite(gomock.Any(), gomock.Any()).Return(func() {}, nil).Times(1)

	require.NoError(t, r.Hydrate(context.Background()))
	require.NoError(t, r.Hydrate(context.Background()))
}

func TestUpdateBeforeHydrate(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r := newTestRepository(t, backend, nil)

	err := r.Update(context.Background(), func(s *entity.Settings) { s.SplitterSize = 10 })
	assert.ErrorIs(t, err, perrors.StoreNotLiveError)
	assert.ErrorIs(t, r.Set(context.Background(), entity.DefaultSettings()), perrors.StoreNotLiveError)
}

func hydrated(t *testing.T, backend *storagemock.MockBackend, stored string) (testRepo, func(string)) {
	r := newTestRepository(t, backend, nil)

	var external func(string)
	backend.EXPECT().Read(gomock.Any(), entity.SettingsStorageKey).Return(stored, stored != "", nil)
	backend.EXPECT().OnExternalWrite(entity.SettingsStorageKey, gomock.Any()).DoAndReturn(
		func(_ string, fn func(string)) (func(), error) {
			external = fn
			return func() {}, nil
		})
	require.NoError(t, r.Hydrate(context.Background()))
	return r, external
}

func TestUpdatePersists(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r, _ := hydrated(t, backend, "")

	var order []string
	backend.EXPECT().Write(ctx, entity.SettingsStorageKey, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, value string) error {
			order = append(order, "persist")
			assert.JSONEq(t, `{"autoClearOutput":true,"splitterDirection":"vertical","splitterSize":75,"sessions":{}}`, value)
			return nil
		})

	var published []entity.Settings
	unsubscribe := r.Subscribe(func(s entity.Settings) {
		order = append(order, "subscriber")
		published = append(published, s)
	})
	defer unsubscribe()

	require.NoError(t, r.Update(ctx, func(s *entity.Settings) { s.AutoClearOutput = true }))
	assert.Equal(t, []string{"persist", "subscriber"}, order)
	require.Len(t, published, 1)
	assert.True(t, published[0].AutoClearOutput)
	assert.Equal(t, int64(1), counter(r.stats, "persisted"))
}

func TestUpdatePersistFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r, _ := hydrated(t, backend, "")

	backend.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("quota exceeded"))

	err := r.Update(ctx, func(s *entity.Settings) { s.SplitterSize = 20 })
	assert.ErrorContains(t, err, "quota exceeded")
	// The in-memory value still changes.
	assert.Equal(t, float64(20), r.Get().SplitterSize)
	assert.Equal(t, 1, r.recorded.FilterMessage("failed to persist settings").Len())
}

func TestEviction(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r, _ := hydrated(t, backend, "")

	var written []string
	backend.EXPECT().Write(gomock.Any(), entity.SettingsStorageKey, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, value string) error {
			written = append(written, value)
			return nil
		}).AnyTimes()

	var published []int
	r.Subscribe(func(s entity.Settings) { published = append(published, len(s.Sessions)) })

	for i := 1; i <= 7; i++ {
		require.NoError(t, r.TouchSession(ctx, fmt.Sprintf("s%d", i), entity.SessionRecord{}))
	}

	got := r.Get()
	assert.Len(t, got.Sessions, entity.MaxSessions)
	for _, k := range []string{"s3", "s4", "s5", "s6", "s7"} {
		assert.Contains(t, got.Sessions, k)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 5, 5}, published, "no subscriber sees more than five sessions")

	require.Len(t, written, 7, "one write per mutation")
	var last entity.Settings
	require.NoError(t, json.Unmarshal([]byte(written[6]), &last))
	assert.Equal(t, got, last)
	assert.Equal(t, int64(2), counter(r.stats, "evicted"))
}

func TestEvictionInOneUpdate(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r, _ := hydrated(t, backend, "")

	backend.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	require.NoError(t, r.Update(ctx, func(s *entity.Settings) {
		for i := 0; i < 7; i++ {
			s.Sessions[fmt.Sprintf("s%d", i)] = entity.SessionRecord{Timestamp: int64(i)}
		}
	}))
	got := r.Get()
	assert.Len(t, got.Sessions, 5)
	assert.NotContains(t, got.Sessions, "s0")
	assert.NotContains(t, got.Sessions, "s1")
}

func TestTouchSessionKeepsExtra(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r, _ := hydrated(t, backend, `{"sessions":{"s1":{"timestamp":1,"name":"model"}}}`)

	backend.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, r.TouchSession(ctx, "s1", entity.SessionRecord{}))

	record := r.Get().Sessions["s1"]
	assert.Equal(t, int64(1001), record.Timestamp)
	assert.JSONEq(t, `"model"`, string(record.Extra["name"]))

	assert.ErrorIs(t, r.TouchSession(ctx, "", entity.SessionRecord{}), perrors.EmptyStorageKeyError)
}

func TestExternalWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r, external := hydrated(t, backend, `{"a":1,"sessions":{}}`)
	require.NotNil(t, external)

	backend.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	var published int
	r.Subscribe(func(entity.Settings) { published++ })

	external(`{"a":2,"sessions":{"s1":{"timestamp":10}}}`)
	got := r.Get()
	assert.JSONEq(t, `2`, string(got.Extra["a"]))
	assert.Equal(t, map[string]entity.SessionRecord{"s1": {Timestamp: 10}}, got.Sessions)
	assert.Equal(t, 1, published)
	assert.Equal(t, int64(2), counter(r.stats, "merged"))

	// Malformed and empty payloads leave the value untouched.
	external(`{"a":`)
	external("")
	assert.Equal(t, got, r.Get())
	assert.Equal(t, 1, published)
	assert.Equal(t, 1, r.recorded.FilterMessage("ignoring malformed stored settings").Len())
	assert.Equal(t, int64(1), counter(r.stats, "malformed"))
}

func TestNewSessionKey(t *testing.T) {
	r := newTestRepository(t, storagemock.NewMockBackend(gomock.NewController(t)), nil)
	a, err := r.NewSessionKey()
	require.NoError(t, err)
	b, err := r.NewSessionKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := storagemock.NewMockBackend(ctrl)
	r := newTestRepository(t, backend, nil)

	cancelled := 0
	backend.EXPECT().Read(gomock.Any(), gomock.Any()).Return("", false, nil)
	backend.EXPECT().OnExternalWrite(gomock.Any(), gomock.Any()).Return(func() { cancelled++ }, nil)
	require.NoError(t, r.Hydrate(context.Background()))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, cancelled)
}

func TestContextsConverge(t *testing.T) {
	ctx := context.Background()
	area := storage.NewMemory()
	defer area.Close()

	first := newTestRepository(t, area.Context(), nil)
	second := newTestRepository(t, area.Context(), nil)
	require.NoError(t, first.Hydrate(ctx))
	require.NoError(t, second.Hydrate(ctx))

	require.NoError(t, first.Update(ctx, func(s *entity.Settings) {
		s.SplitterDirection = entity.SplitterHorizontal
	}))
	assert.Eventually(t, func() bool {
		return second.Get().SplitterDirection == entity.SplitterHorizontal
	}, time.Second, time.Millisecond)

	require.NoError(t, second.TouchSession(ctx, "s1", entity.SessionRecord{}))
	assert.Eventually(t, func() bool {
		_, ok := first.Get().Sessions["s1"]
		return ok
	}, time.Second, time.Millisecond)

	// Merged values are not written back, so each context persisted exactly once.
	assert.Equal(t, int64(1), counter(first.stats, "persisted"))
	assert.Equal(t, int64(1), counter(second.stats, "persisted"))
	assert.Equal(t, first.Get(), second.Get())

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
}
