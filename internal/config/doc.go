// Package config loads and validates the harness configuration from YAML.
package config
