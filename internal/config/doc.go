// Package config loads, normalizes, and validates shelfscan configuration.
//
// Settings are read from a TOML file (default ~/.config/shelfscan/config.toml
// or ./shelfscan.toml), layered over Default(), with "~" expanded in every
// path. Environment fallbacks cover the values most often injected by
// deployments: SHELFSCAN_DATABASE_DSN and SHELFSCAN_S3_BUCKET.
package config
