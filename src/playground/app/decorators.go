package app

import (
	"fmt"
	"os"

	"github.com/uber/mzn-playground/src/playground/gateway/storage"
	"github.com/uber/mzn-playground/src/playground/internal/core"
	"github.com/uber/mzn-playground/src/playground/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
)

// Context describes where the playground runs.
type Context struct {
	Environment string `yaml:"environment"`
}

const (
	// EnvLocal indicates that the playground is running locally.
	EnvLocal = "local"

	// EnvDevelopment indicates that the playground is being developed on.
	EnvDevelopment = "development"

	// Environment variables
	_envPlaygroundEnvironment = "PLAYGROUND_ENVIRONMENT"
)

func decorateEnvContext(env Context) Context {
	if os.Getenv(_envPlaygroundEnvironment) == EnvDevelopment {
		env.Environment = EnvDevelopment
	} else {
		env.Environment = EnvLocal
	}
	return env
}

// DecorateConfigParams is the set of dependencies required to decorate the config.Provider.
type DecorateConfigParams struct {
	fx.In

	Env Context
	Cfg config.Provider
	FS  fs.PlaygroundFS
}

// decorateConfigProvider includes any steps that modify the config.Provider before it is used, or use its data for any startup related activities.
func decorateConfigProvider(p DecorateConfigParams) (config.Provider, error) {
	cfg, err := applyEnvironment(p.Env, p.Cfg)
	if err != nil {
		return nil, fmt.Errorf("applying environment: %v", err)
	}

	combined, err := ensureStorageFolder(cfg, p.FS)
	if err != nil {
		return nil, fmt.Errorf("ensuring storage folder: %v", err)
	}

	return combined, nil
}

// applyEnvironment switches logging to debug output while developing.
func applyEnvironment(env Context, cfg config.Provider) (config.Provider, error) {
	if env.Environment != EnvDevelopment {
		return cfg, nil
	}

	var raw map[string]interface{}
	if err := cfg.Get(config.Root).Populate(&raw); err != nil {
		return nil, fmt.Errorf("loading config: %v", err)
	}
	var logging core.LoggingConfig
	if err := cfg.Get("logging").Populate(&logging); err != nil {
		return nil, fmt.Errorf("loading logging config: %v", err)
	}
	logging.Level = "debug"
	logging.Development = true

	if raw == nil {
		raw = make(map[string]interface{})
	}
	raw["logging"] = logging
	return config.NewStaticProvider(raw)
}

// Ensure that an explicitly configured settings directory exists or create it if necessary.
func ensureStorageFolder(cfg config.Provider, fs fs.PlaygroundFS) (config.Provider, error) {
	var backend, dir string
	if err := cfg.Get("settings.backend").Populate(&backend); err != nil {
		return nil, fmt.Errorf("loading settings backend: %v", err)
	}
	if backend == storage.BackendMemory {
		return cfg, nil
	}
	if err := cfg.Get("settings.storageDir").Populate(&dir); err != nil {
		return nil, fmt.Errorf("loading settings directory: %v", err)
	}
	if dir == "" {
		return cfg, nil
	}

	if err := fs.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("creating settings directory: %v", err)
	}

	return cfg, nil
}
