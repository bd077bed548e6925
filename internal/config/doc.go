// Package config defines the application configuration structure and
// loading logic. Configuration comes from environment variables with
// the MURMUR_ prefix, optionally layered over a config.yaml file.
package config
