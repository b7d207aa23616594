package watch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/mzn-playground/src/playground/controller/annotations"
	"github.com/uber/mzn-playground/src/playground/controller/check"
	"github.com/uber/mzn-playground/src/playground/entity"
	"github.com/uber/mzn-playground/src/playground/gateway/checker/checkermock"
	"github.com/uber/mzn-playground/src/playground/gateway/storage"
	"github.com/uber/mzn-playground/src/playground/internal/clock"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
	"github.com/uber/mzn-playground/src/playground/internal/fs"
	"github.com/uber/mzn-playground/src/playground/repository/settings"
	"github.com/uber/mzn-playground/src/playground/repository/settings/repositorymock"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	handler  *handler
	checker  *checkermock.MockGateway
	settings settings.Repository
	check    check.Controller
	recorded *observer.ObservedLogs
	area     *storage.Memory
}

func newFixture(t *testing.T, path string) fixture {
	ctrl := gomock.NewController(t)
	provider, err := config.NewStaticProvider(map[string]interface{}{
		"playground": map[string]interface{}{"document": path},
		"check":      map[string]interface{}{"debounceMs": 5},
	})
	require.NoError(t, err)

	core, recorded := observer.New(zap.InfoLevel)
	logger := zap.New(core).Sugar()
	stats := tally.NewTestScope("testing", make(map[string]string, 0))
	clk := clock.New()

	area := storage.NewMemory()
	repo := settings.New(settings.Params{
		Storage: area.Context(),
		Config:  provider,
		Clock:   clk,
		Logger:  logger,
		Stats:   stats,
	})
	ann := annotations.New(annotations.Params{Config: provider, Logger: logger, Stats: stats})
	gateway := checkermock.NewMockGateway(ctrl)
	checks := check.New(check.Params{
		Config:      provider,
		Checker:     gateway,
		Annotations: ann,
		Clock:       clk,
		Logger:      logger,
		Stats:       stats,
	})

	h, err := New(Params{
		Config:      provider,
		FS:          fs.New(),
		Clock:       clk,
		Check:       checks,
		Annotations: ann,
		Settings:    repo,
		Logger:      logger,
	})
	require.NoError(t, err)

	f := fixture{
		handler:  h.(*handler),
		checker:  gateway,
		settings: repo,
		check:    checks,
		recorded: recorded,
		area:     area,
	}
	t.Cleanup(func() {
		assert.NoError(t, checks.Close())
		assert.NoError(t, repo.Close())
		assert.NoError(t, area.Close())
	})
	return f
}

func TestStartWithoutDocument(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	require.NoError(t, f.handler.Start(ctx))
	assert.Nil(t, f.handler.Document())
	assert.Equal(t, settings.StateLive, f.settings.State())
	assert.Equal(t, 1, f.recorded.FilterMessage("no document configured, not watching").Len())
	require.NoError(t, f.handler.Stop(ctx))
}

func TestStartMissingFile(t *testing.T) {
	f := newFixture(t, filepath.Join(t.TempDir(), "missing.mzn"))
	assert.Error(t, f.handler.Start(context.Background()))
}

func TestWatchDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "model.mzn")
	require.NoError(t, os.WriteFile(path, []byte("x = 1;"), 0644))

	f := newFixture(t, path)

	f.checker.EXPECT().Check(gomock.Any(), "x = 1;").Return(nil, nil).AnyTimes()
	f.checker.EXPECT().Check(gomock.Any(), "x = 1;\nx = 2;").Return([]entity.Diagnostic{{
		Severity: entity.SeverityError,
		What:     "redefinition",
		Message:  "x already defined",
		Location: entity.Location{FirstLine: 2, FirstColumn: 1, LastLine: 2, LastColumn: 1},
	}}, nil).MinTimes(1)

	require.NoError(t, f.handler.Start(ctx))
	doc := f.handler.Document()
	require.NotNil(t, doc)
	assert.Equal(t, "x = 1;", doc.Text())
	assert.Equal(t, uri.File(path), doc.URI())

	key := uuid.NewV5(uuid.NamespaceURL, string(uri.File(path))).String()
	session, ok := f.settings.Get().Sessions[key]
	require.True(t, ok)
	var file string
	require.NoError(t, json.Unmarshal(session.Extra["file"], &file))
	assert.Equal(t, path, file)

	require.NoError(t, fs.New().WriteFileAtomic(path, []byte("x = 1;\nx = 2;")))
	assert.Eventually(t, func() bool {
		return f.recorded.FilterMessageSnippet("model.mzn:2:1: Error: redefinition: x already defined").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "x = 1;\nx = 2;", doc.Text())

	require.NoError(t, f.handler.Stop(ctx))
	require.NoError(t, f.handler.Stop(ctx))
}

func TestSessionFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "model.mzn")
	require.NoError(t, os.WriteFile(path, []byte("solve satisfy;"), 0644))

	ctrl := gomock.NewController(t)
	repo := repositorymock.NewMockRepository(ctrl)
	repo.EXPECT().Hydrate(ctx).Return(nil)
	repo.EXPECT().TouchSession(ctx, gomock.Any(), gomock.Any()).Return(errors.New("quota exceeded"))

	core, recorded := observer.New(zap.WarnLevel)
	checks := check.New(check.Params{
		Config:      mustProvider(t),
		Checker:     checkermock.NewMockGateway(ctrl),
		Annotations: annotations.New(annotations.Params{Config: mustProvider(t), Logger: zap.NewNop().Sugar(), Stats: tally.NoopScope}),
		Clock:       clock.New(),
		Logger:      zap.NewNop().Sugar(),
		Stats:       tally.NoopScope,
	})
	defer checks.Close()

	h := &handler{
		path:        path,
		fs:          fs.New(),
		clock:       clock.New(),
		check:       checks,
		annotations: annotations.New(annotations.Params{Config: mustProvider(t), Logger: zap.NewNop().Sugar(), Stats: tally.NoopScope}),
		settings:    repo,
		logger:      zap.New(core).Sugar(),
	}
	require.NoError(t, h.Start(ctx))
	assert.Equal(t, 1, recorded.FilterMessage("failed to record session").Len())
	require.NoError(t, h.Stop(ctx))
}

func TestSessionMisuseIsFatal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "model.mzn")
	require.NoError(t, os.WriteFile(path, []byte("solve satisfy;"), 0644))

	ctrl := gomock.NewController(t)
	repo := repositorymock.NewMockRepository(ctrl)
	repo.EXPECT().Hydrate(ctx).Return(nil)
	repo.EXPECT().TouchSession(ctx, gomock.Any(), gomock.Any()).Return(perrors.StoreNotLiveError)

	h := &handler{
		path:     path,
		fs:       fs.New(),
		clock:    clock.New(),
		settings: repo,
		logger:   zap.NewNop().Sugar(),
	}
	err := h.Start(ctx)
	assert.ErrorIs(t, err, perrors.StoreNotLiveError)
	assert.Nil(t, h.Document())
	require.NoError(t, h.Stop(ctx))
}

func mustProvider(t *testing.T) config.Provider {
	p, err := config.NewStaticProvider(map[string]interface{}{
		"check": map[string]interface{}{"debounceMs": 10000},
	})
	require.NoError(t, err)
	return p
}
