// Package config loads the YAML configuration shared by the resultset
// commands.
//
// A Config has one section per concern: log, output, scaffold, postgres,
// tracing and metrics. Default fills every section, and Load layers a YAML
// file on top, so files only carry overrides.
//
// # Environment Variable Substitution
//
// Values may reference the environment with ${VAR_NAME}, or
// ${VAR_NAME:-fallback} to supply a default:
//
//	postgres:
//	  dsn: ${RESULTSET_PG_DSN}
//	  query_timeout: ${QUERY_TIMEOUT:-30s}
//
// Substitution is textual and happens before YAML parsing.
//
// # Command Line Overrides
//
// The resultset CLI binds its flags and RESULTSET_* environment variables
// through viper and applies them after the file is loaded.
package config
