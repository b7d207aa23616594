// Package storage provides durable key/value backends shared between playground contexts.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/uber/mzn-playground/src/playground/internal/clock"
	"github.com/uber/mzn-playground/src/playground/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_backendKey    = "settings.backend"
	_storageDirKey = "settings.storageDir"

	// BackendFile stores each key in its own file and watches for writes from other processes.
	BackendFile = "file"
	// BackendMemory keeps values in memory for the lifetime of the process.
	BackendMemory = "memory"

	_defaultDirName = "mzn-playground"
)

// Module provides the Backend selected by configuration.
var Module = fx.Provide(New)

//go:generate mockgen -source=storage.go -destination=storagemock/storage_mock.go -package=storagemock

// Backend is a string key/value store. Writes made through one Backend are reported to
// listeners registered on every other Backend sharing the same storage, never to the writer.
type Backend interface {
	// Read returns the value stored at key and whether it was present.
	Read(ctx context.Context, key string) (string, bool, error)
	// Write stores value at key.
	Write(ctx context.Context, key string, value string) error
	// OnExternalWrite calls fn with the new value each time another context writes key.
	// Calls are made from a single goroutine per backend, in write order.
	OnExternalWrite(key string, fn func(value string)) (cancel func(), err error)
}

// Params are inbound parameters to initialize the configured backend.
type Params struct {
	fx.In

	Config    config.Provider
	FS        fs.PlaygroundFS
	Clock     clock.Clock
	Logger    *zap.SugaredLogger
	Lifecycle fx.Lifecycle
}

// New creates the Backend named by settings.backend, closing it when the app stops.
func New(p Params) (Backend, error) {
	var backend string
	if err := p.Config.Get(_backendKey).Populate(&backend); err != nil || backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendMemory:
		m := NewMemory()
		p.Lifecycle.Append(fx.StopHook(m.Close))
		return m.Context(), nil
	case BackendFile:
		dir, err := storageDir(p.Config, p.FS)
		if err != nil {
			return nil, err
		}
		f, err := NewFile(dir, p.FS, p.Clock, p.Logger)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.StopHook(f.Close))
		return f, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func storageDir(cfg config.Provider, fsys fs.PlaygroundFS) (string, error) {
	var dir string
	if err := cfg.Get(_storageDirKey).Populate(&dir); err == nil && dir != "" {
		return dir, nil
	}
	base, err := fsys.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating storage directory: %w", err)
	}
	return filepath.Join(base, _defaultDirName), nil
}
