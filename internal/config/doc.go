// Package config handles configuration loading for strand.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults; every field is
// optional except database.path, which Default() also supplies.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  path: "${STRAND_DB_PATH}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	context:
//	  cache_ttl: "30m"
//	  evict_after: "1h"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server (serve command):
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//
// Database:
//
//	database:
//	  path: "/var/lib/strand/strand.db"
//
// Conversation context:
//
//	context:
//	  strategy: "sliding_window"  # sliding_window, summarize, hybrid
//	  max_messages: 20
//	  cache_size: 256
//	  cache_ttl: "30m"
//	  evict_after: "1h"
//
// Tools:
//
//	tools:
//	  timeout: "30s"
//	  max_history: 1000
//	  history_max_age: "24h"
//	  rules_file: "/etc/strand/rules.toml"  # optional, built-ins if empty
//
// Generation:
//
//	generation:
//	  endpoint: "http://localhost:8000/v1/completions"
//	  model: "local-model"
//	  api_key: "${STRAND_API_KEY}"
//	  max_tokens: 512
//	  temperature: 0.7
//	  max_retries: 3
//	  retry_interval: "200ms"
//	  breaker_trips: 5
//	  breaker_timeout: "30s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/strand/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
