// Package config provides configuration management for the cloud metrics exporter.
//
// This package handles loading configuration from an optional YAML file,
// applying per-mode defaults, applying environment variable overrides and
// validating the result.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values for the selected Mode (lowest priority)
//
// The two modes differ only in their defaults:
//   - ModeCloud: port 8001, refresh every 300 seconds
//   - ModeMock:  port 8000, refresh every 5 seconds, four default random walks
//
// Supported environment variables:
//   - EXPORTER_HTTP_PORT: HTTP server port (1-65535)
//   - EXPORTER_REFRESH_INTERVAL: Poll interval in seconds (minimum: 1)
//   - EXPORTER_LOG_LEVEL: Log level (debug, info, warn, error)
//   - EXPORTER_API_TIMEOUT: Per upstream call timeout in seconds (1-300)
//   - EXPORTER_COLLECT_TIMEOUT: Per collector timeout in seconds
//   - AWS_REGION: AWS region (default us-east-1)
//   - AWS_PROFILE: Shared config profile (default: SDK credential chain)
//   - AZURE_COST_SUBSCRIPTIONS: Comma-separated subscription IDs or id:name pairs
//
// Example configuration file (config.yaml):
//
//	http_port: 8001
//	refresh_interval: 300
//	log_level: "info"
//	api_timeout: 30
//	collect_timeout: 120
//
//	aws:
//	  region: "us-east-1"
//	  profile: "billing"
//
//	azure:
//	  subscriptions:
//	    - id: "sub-123"
//	      name: "Production"
//
//	fortune:
//	  enabled: true
//	  format: json
//
// Field-level rules are expressed as validator struct tags and reported with
// their yaml key; cross-field rules (a cloud source must be enabled, walk
// names must be unique) are checked by hand.
package config
