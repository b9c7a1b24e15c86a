// Package config provides configuration loading and validation for the
// web-sync gateway.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (WEBSYNC_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with the WEBSYNC_ prefix:
//   - server.port → WEBSYNC_SERVER_PORT
//   - storage.bucket → WEBSYNC_STORAGE_BUCKET
//   - storage.keys.secret_key → WEBSYNC_STORAGE_KEYS_SECRET_KEY
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, timeouts and CORS origins
//   - Storage: endpoint, region, bucket, addressing style, public base URL and keys
//   - Layout: notepad object key and upload prefix
//   - Grants: presigned upload and download validity
//   - Notepad, Catalog: size and paging limits
//   - Metrics, Log, Env: observability switches
//
// # Validation
//
// Besides struct tags, Validate rejects more than one credential source,
// an upload prefix without a trailing slash and a notepad key that lies
// under the upload prefix. Storage keys are optional: the gateway starts
// without them and reports a configuration error on each storage call.
package config
