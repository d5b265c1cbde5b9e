// Package config loads, normalizes, and validates gleaner's TOML
// configuration. Defaults are applied first, then the config file, then
// environment fallbacks for secrets.
package config
