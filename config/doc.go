// Package config provides configuration loading and validation for davgate.
//
// The package handles YAML configuration files, environment variables, and
// CLI flags with automatic merging and validation using
// go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (DAVGATE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with DAVGATE_ prefix:
//   - server.port → DAVGATE_SERVER_PORT
//   - auth.realm → DAVGATE_AUTH_REALM
//   - compression.enable_gzip → DAVGATE_COMPRESSION_ENABLE_GZIP
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, storage root, public access, listing toggle
//   - Auth: realm, accounts (inline and file), digest challenge rules
//   - Compression: gzip/brotli enablement, level, content-type rule
//   - HideFile: directory-entry hiding rules
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Realm must be non-empty
//   - Compression level must be fast, default, or best
//   - Log level must be debug, info, warn, or error
package config
