package config

import (
	"github.com/yndnr/ssess-go/internal/infra/confloader"
)

// Load builds a ServerConfig from Default, the YAML file at path (skipped
// when path is empty), SSESS_* environment variables and overrides, in
// increasing precedence. The result is not verified.
//
// The returned loader can be reused to reload the same sources.
func Load(path string, overrides map[string]any) (*ServerConfig, *confloader.Loader, error) {
	opts := []confloader.Option{confloader.WithConfigFile(path)}
	if len(overrides) > 0 {
		opts = append(opts, confloader.WithOverrides(overrides))
	}
	loader := confloader.NewLoader(opts...)

	cfg := Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// Reload re-reads the sources of loader into a fresh default config.
func Reload(loader *confloader.Loader) (*ServerConfig, error) {
	cfg := Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
