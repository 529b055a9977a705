// Package config provides configuration management for carepath.
//
// This package handles loading, validating, and defaulting configuration
// from YAML files with environment variable overrides. Configuration is an
// explicit value passed to constructors; there is no package-level instance.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("carepath.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("carepath.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CAREPATH_SECTION_FIELD.
// For example:
//
//   - CAREPATH_LIBRARY_PATH overrides library.path
//   - CAREPATH_AUDIT_SQLITE_DRIVER overrides audit.sqlite.driver
//   - CAREPATH_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
//	engine:
//	  socioeconomic_status:
//	    weighting: {income: 0.2, education: 0.7, occupation: 0.1}
//	    categories:
//	      low: {min: 0.0, max: 0.33}
//	      middle: {min: 0.33, max: 0.66}
//	      high: {min: 0.66, max: 1.0}
//	library:
//	  path: ./modules
//	  watch: true
//	audit:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    path: data/audit.db
//	  retention:
//	    max_age: 720h
//	    schedule: "0 3 * * *"
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
