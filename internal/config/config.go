// Package config loads gazed settings from the environment and from a YAML or
// JSON file layered over the engine defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-gaze/pkg/engine"
)

// Defaults.
const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"
)

// Port returns the listen port from GAZE_PORT or the default.
func Port() string {
	return env("GAZE_PORT", DefaultPort)
}

// LogLevel returns the log level from GAZE_LOG_LEVEL or the default.
func LogLevel() string {
	return env("GAZE_LOG_LEVEL", DefaultLogLevel)
}

// ConfigPath returns the config file path from GAZE_CONFIG, or "".
func ConfigPath() string {
	return os.Getenv("GAZE_CONFIG")
}

// StaticDir returns the browser client directory from GAZE_STATIC, or "".
func StaticDir() string {
	return os.Getenv("GAZE_STATIC")
}

// ICEServers returns the comma-separated GAZE_ICE_SERVERS list.
func ICEServers() []string {
	raw := os.Getenv("GAZE_ICE_SERVERS")
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Server holds the service settings a file may carry.
type Server struct {
	Port       string   `yaml:"port" json:"port"`
	LogLevel   string   `yaml:"log_level" json:"log_level"`
	StaticDir  string   `yaml:"static_dir" json:"static_dir"`
	ICEServers []string `yaml:"ice_servers" json:"ice_servers"`
}

// File is the on-disk layout. Preset picks the base engine configuration that
// the engine section is applied over.
type File struct {
	Preset string        `yaml:"preset" json:"preset"`
	Server Server        `yaml:"server" json:"server"`
	Engine engine.Config `yaml:"engine" json:"engine"`
}

// LoadFile reads a YAML file (or JSON, by .json extension). Engine fields the file
// omits keep the preset's or the default values. The result is validated.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config: %w", err)
	}

	unmarshal := yaml.Unmarshal
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		unmarshal = json.Unmarshal
	}

	var head struct {
		Preset string `yaml:"preset" json:"preset"`
	}
	if err := unmarshal(data, &head); err != nil {
		return File{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	base := engine.DefaultConfig()
	if head.Preset != "" {
		preset, ok := engine.Preset(head.Preset)
		if !ok {
			return File{}, &engine.ConfigError{Problems: []string{fmt.Sprintf("unknown preset %q", head.Preset)}}
		}
		base = preset
	}

	f := File{Engine: base}
	if err := unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if err := f.Engine.Check(); err != nil {
		return File{}, err
	}
	return f, nil
}
