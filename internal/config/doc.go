// Package config loads, normalizes, and validates Platen's TOML
// configuration.
//
// Load resolves the config path (explicit flag, then the default under
// ~/.config/platen), decodes it over the compiled-in defaults, expands ~ in
// every path field, and validates the result. Components receive a *Config
// and read plain fields; nothing re-reads the file at runtime.
package config
