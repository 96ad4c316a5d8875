// Package cli constructs the stackmigrate command-line interface. It layers the embedded
// defaults, an optional config.yaml, STACKMIGRATE_* environment variables, and command flags
// into one configuration, builds the structured logger, and registers the questions-copy and
// articles-copy commands.
package cli
