// Package cli constructs the secretmigrate command-line interface, wiring the
// Cobra command hierarchy, the Viper configuration loader with its embedded
// defaults, and structured zap logging.
package cli
