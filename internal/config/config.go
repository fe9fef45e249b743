// Package config loads the TOML configuration file described in spec.md §6:
// proto include paths and files, server defaults, TLS, history and logging
// settings. Shell/environment expansion mirrors wireman-config's use of
// shellexpand — here via os.ExpandEnv plus a leading "~" expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ConfigDirEnvVar names the environment variable that overrides the default
// config directory (spec.md §6, "Environment").
const ConfigDirEnvVar = "GRPCTUI_CONFIG_DIR"

// Error wraps a configuration load/parse failure (the `ConfigError` kind of
// spec.md §7). Fatal at startup.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// File is the decoded shape of the TOML config file.
type File struct {
	Includes []string `toml:"includes"`
	Files    []string `toml:"files"`

	Server  ServerConfig  `toml:"server"`
	TLS     TLSConfig     `toml:"tls"`
	History HistoryConfig `toml:"history"`
	Logging LoggingConfig `toml:"logging"`
	UI      UIConfig      `toml:"ui"`
}

// ServerConfig holds pre-filled Headers Model defaults.
type ServerConfig struct {
	DefaultAddress    string `toml:"default_address"`
	DefaultAuthHeader string `toml:"default_auth_header"`
}

// TLSConfig names an optional custom CA bundle.
type TLSConfig struct {
	CustomCert string `toml:"custom_cert"`
}

// HistoryConfig controls the on-disk request history.
type HistoryConfig struct {
	Directory string `toml:"directory"`
	Disabled  bool   `toml:"disabled"`
	Autosave  bool   `toml:"autosave"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Directory string `toml:"directory"`
	Level     string `toml:"level"`
}

// UIConfig is passed through untouched — the UI is an external collaborator.
type UIConfig struct {
	HideFooterHelp bool `toml:"hide_footer_help"`
}

// Load reads and parses the config file at path, shell-expanding path-like
// fields after decode.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(expand(path))
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	f.Includes = expandAll(f.Includes)
	f.Files = expandAll(f.Files)
	f.History.Directory = expand(f.History.Directory)
	f.Logging.Directory = expand(f.Logging.Directory)

	return &f, nil
}

// Dir resolves the config directory: the GRPCTUI_CONFIG_DIR environment
// variable if set, otherwise $XDG_CONFIG_HOME/grpctui or ~/.config/grpctui.
func Dir() (string, error) {
	if dir := os.Getenv(ConfigDirEnvVar); dir != "" {
		return expand(dir), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "grpctui"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "grpctui"), nil
}

func expandAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = expand(s)
	}
	return out
}

// expand performs the same two expansions wireman-config's shellexpand::env
// does: $VAR / ${VAR} substitution and a leading "~" to the home directory.
func expand(s string) string {
	if s == "" {
		return s
	}
	s = os.ExpandEnv(s)
	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, strings.TrimPrefix(s, "~"))
		}
	}
	return s
}
