// Package config handles configuration loading for ember.
//
// Configuration is loaded from a YAML file with environment variable
// expansion (${VAR_NAME} syntax) and validation. Duration values use Go's
// time.ParseDuration syntax:
//
//	ollama:
//	  timeout: "120s"
//	watchdog:
//	  interval: "1h"
//	  threshold: "2h"
//
// Secrets belong in the environment, not the file:
//
//	matrix:
//	  access_token: "${EMBER_MATRIX_TOKEN}"
//
// Persona definitions live in a separate TOML file referenced by
// chat.personas_path; see internal/persona.
package config
