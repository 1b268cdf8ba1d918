// Package config handles loading and validating simulator configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with CRESTRONSIM_* environment variables
//   - Overriding with command-line flags
//   - Validation of enabled subsystems
//
// Every optional subsystem (status API, journal, MQTT, InfluxDB) is disabled
// by default, so running with no file at all yields the bare UDP simulator
// on 0.0.0.0:50000.
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The status API binds to 127.0.0.1 by default and is read-only
//
// Usage:
//
//	cfg, err := config.Load("configs/crestronsim.yaml", config.Overrides{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
