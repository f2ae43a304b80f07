// Package config provides centralized configuration management for the user
// directory service. It loads settings from multiple sources, validates them,
// and exposes a single type-safe Config struct to the rest of the application.
//
// # Configuration Sources
//
// Configuration is resolved from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. An optional config.yaml file
//	3. Compiled-in defaults (lowest priority)
//
// # Environment Variables
//
// All environment variables carry the USERDIR_ prefix:
//
//	USERDIR_SERVER_PORT=3000
//	USERDIR_LOGGING_LEVEL=info
//	USERDIR_STORE_SEED_FILE=seed.json
//	USERDIR_SECURITY_RATE_LIMIT_ENABLED=true
//
// # File Overlay
//
// If a config.yaml is found next to the binary or under configs/, its values
// replace the defaults before the environment is applied. Missing files are
// not an error; a file that exists but fails to parse is.
package config
