package core

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/config"
	"go.uber.org/fx"
)

const (
	_providerName = "playground"
	_metaFile     = "meta.yaml"

	_envConfigDir  = "PLAYGROUND_CONFIG_DIR"
	_envConfigFile = "PLAYGROUND_CONFIG_FILE"

	// Relative to the workspace root, where the binary is expected to run.
	_defaultConfigDir = "src/playground/config"
)

// ConfigModule provides the configuration provider.
var ConfigModule = fx.Options(
	fx.Provide(NewConfig),
)

// Meta lists the configuration files to merge, in order. Every file in Files must exist;
// Optional files are merged when present.
type Meta struct {
	Files    []string `yaml:"files"`
	Optional []string `yaml:"optional"`
}

// _defaults apply when no configuration file sets a value.
var _defaults = map[string]interface{}{
	"logging": map[string]interface{}{
		"level":    "info",
		"encoding": "console",
	},
}

// NewConfig merges the built-in defaults, the files named by meta.yaml and finally the
// file named by PLAYGROUND_CONFIG_FILE, expanding environment variables in all of them.
func NewConfig() (config.Provider, error) {
	dir := getConfigDir()
	meta, err := readMeta(dir)
	if err != nil {
		return nil, err
	}

	options := []config.YAMLOption{
		config.Name(_providerName),
		config.Static(_defaults),
	}
	for _, file := range meta.Files {
		path := filepath.Join(dir, file)
		if !exists(path) {
			return nil, fmt.Errorf("config file %s listed in %s does not exist", path, _metaFile)
		}
		options = append(options, config.File(path))
	}
	for _, file := range meta.Optional {
		if path := filepath.Join(dir, file); exists(path) {
			options = append(options, config.File(path))
		}
	}
	if override := os.Getenv(_envConfigFile); override != "" {
		if !exists(override) {
			return nil, fmt.Errorf("config file %s set by %s does not exist", override, _envConfigFile)
		}
		options = append(options, config.File(override))
	}
	options = append(options, config.Expand(os.LookupEnv))

	provider, err := config.NewYAML(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return provider, nil
}

func readMeta(dir string) (Meta, error) {
	var meta Meta
	provider, err := config.NewYAML(
		config.File(filepath.Join(dir, _metaFile)),
		config.Expand(os.LookupEnv),
	)
	if err != nil {
		return meta, fmt.Errorf("failed to load meta configuration: %w", err)
	}
	if err := provider.Get(config.Root).Populate(&meta); err != nil {
		return meta, fmt.Errorf("failed to read %s: %w", _metaFile, err)
	}
	return meta, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// getConfigDir returns the path to the configuration directory
func getConfigDir() string {
	if dir := os.Getenv(_envConfigDir); dir != "" {
		return dir
	}
	return _defaultConfigDir
}
