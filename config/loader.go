package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const DefaultEnvPrefix = "MINIREDIS_"

var errReadBytesNotSupported = errors.New("config: ReadBytes not supported by map provider")

// Loader layers configuration sources with koanf. Later loads win.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	flags     map[string]any
}

type Option func(*Loader)

func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadMap records values, typically from command line flags, that override
// every other source. Keys use dotted paths such as "log.level".
func (l *Loader) LoadMap(values map[string]any) {
	if l.flags == nil {
		l.flags = make(map[string]any, len(values))
	}
	for k, v := range values {
		l.flags[k] = v
	}
}

// Load fills target from defaults, the config file, the environment and
// recorded flags.
func (l *Loader) Load(target *Config) error {
	if err := l.k.Load(mapProvider(defaultMap()), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("load file %s: %w", l.filePath, err)
		}
	}

	// MINIREDIS_LOG__LEVEL -> log.level, MINIREDIS_READ_TIMEOUT -> read_timeout
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if len(l.flags) > 0 {
		if err := l.k.Load(mapProvider(unflatten(l.flags)), nil); err != nil {
			return fmt.Errorf("load flags: %w", err)
		}
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Get returns the merged value at a dotted key, after Load.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// unflatten turns {"log.level": x} into {"log": {"level": x}}.
func unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, v := range flat {
		parts := strings.Split(key, ".")
		cur := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	return out
}

// mapProvider is a koanf.Provider over an in-memory map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytesNotSupported
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
