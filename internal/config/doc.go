// Package config loads, normalizes, and validates payloadkeeper configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours the
// host's setting names (API_DISPLAY_INCLUDE_BASE64_IMAGES,
// API_DISPLAY_STARTUP_DEDUPLICATE) as environment overrides. The Config type is
// passed explicitly to the components that need it; nothing reads settings from
// ambient globals.
package config
