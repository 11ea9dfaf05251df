package confloader

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "SSESS_"

// envLevelSeparator separates nesting levels in environment variable names.
const envLevelSeparator = "__"

// Loader merges the configuration sources into a target struct. A Loader
// can be loaded any number of times; each Load starts from scratch, so a
// file change is picked up by loading again.
type Loader struct {
	envPrefix string
	filePath  string
	overrides map[string]any

	mu      sync.Mutex
	k       *koanf.Koanf
	sources []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML file path. An empty path skips the file.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets values that take precedence over every other source.
// Keys are dotted paths such as "log.level".
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a loader. Nothing is read until Load.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file path, or "" if none.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load reads file, environment and overrides in that order and unmarshals
// the merged result into target. Fields no source sets keep their current
// values, so callers pass a struct already filled with defaults.
func (l *Loader) Load(target any) error {
	k := koanf.New(".")
	var sources []string

	if l.filePath != "" {
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
		sources = append(sources, "file:"+l.filePath)
	}

	if l.hasEnv() {
		cb := func(name string) string { return envKey(l.envPrefix, name) }
		if err := k.Load(env.Provider(l.envPrefix, ".", cb), nil); err != nil {
			return fmt.Errorf("load env: %w", err)
		}
		sources = append(sources, "env:"+l.envPrefix+"*")
	}

	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
		sources = append(sources, "overrides")
	}

	if err := k.UnmarshalWithConf("", target, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.mu.Lock()
	l.k, l.sources = k, sources
	l.mu.Unlock()
	return nil
}

func (l *Loader) hasEnv() bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, l.envPrefix) {
			return true
		}
	}
	return false
}

// envKey maps an environment variable name to a dotted config key:
// SSESS_SESSION__MAX_LIFE becomes session.max_life.
func envKey(prefix, name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, prefix))
	return strings.ReplaceAll(name, envLevelSeparator, ".")
}

// Sources lists the sources applied by the last Load, lowest priority
// first. It is empty before the first Load and when only defaults apply.
func (l *Loader) Sources() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sources...)
}

// Value returns the merged value at a dotted key from the last Load, or
// nil if no source set it.
func (l *Loader) Value(key string) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.k == nil {
		return nil
	}
	return l.k.Get(key)
}
