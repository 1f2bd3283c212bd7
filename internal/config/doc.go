// Package config defines the application configuration structure and
// loading logic. Configuration is sourced from environment variables with
// the TICKLER_ prefix and an optional config.yaml, then validated before
// the application starts.
package config
