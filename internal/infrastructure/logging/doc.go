// Package logging provides structured logging for the simulator.
//
// This package wraps Go's standard log/slog package so every component
// logs through the same handler with the same default fields.
//
// # Features
//
//   - Text output for the console (default), JSON for log shippers
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stdout"   # stdout, stderr
//
// The --verbose flag forces level debug.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("UDP server listening", "address", addr)
//	logger.Warn("unknown zone id", "id", 99999)
package logging
