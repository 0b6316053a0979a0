package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"
)

// Manager holds the shared configuration and handles updates. Sessions poll
// Version once per tick and re-read the config when it changes.
type Manager struct {
	config  Config
	mu      sync.RWMutex
	version atomic.Uint64

	// Callback when config changes
	OnConfigChange func(cfg Config)
}

// NewManager creates a manager. An invalid initial config is rejected.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	m := &Manager{config: cfg.Clone()}
	m.version.Store(1)
	return m, nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Clone()
}

// Version increases on every accepted change.
func (m *Manager) Version() uint64 {
	return m.version.Load()
}

// Set replaces the configuration. On validation failure the current one is kept.
func (m *Manager) Set(cfg Config) error {
	if err := cfg.Check(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg.Clone()
	m.version.Add(1)
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		callback(cfg.Clone())
	}
	return nil
}

// Patch applies a partial update given as field name to value, using the json
// field names. A "preset" key selects a base configuration before the other keys
// are applied.
func (m *Manager) Patch(params map[string]interface{}) error {
	cfg := m.Get()

	if raw, ok := params["preset"]; ok {
		name, _ := raw.(string)
		preset, found := Preset(name)
		if !found {
			return &ConfigError{Problems: []string{fmt.Sprintf("unknown preset %q", name)}}
		}
		cfg = preset
		rest := make(map[string]interface{}, len(params))
		for k, v := range params {
			if k != "preset" {
				rest[k] = v
			}
		}
		params = rest
	}

	if err := decodeInto(&cfg, params); err != nil {
		return &ConfigError{Problems: []string{err.Error()}}
	}
	return m.Set(cfg)
}

func decodeInto(cfg *Config, params map[string]interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}
