// Package config loads runtime configuration for the zkkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config, or $ZKKEEPER_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-f string   path of the local SQLite database
//	-r int      request timeout (seconds)
//	-s int      session TTL (seconds)
//	-k string   key derivation algorithm for new accounts (argon2id, pbkdf2-sha256)
//	-i int      online status check interval (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds. Fields absent from the file keep their defaults:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "zkkeeper/client.db",
//	  "request_timeout": "10s",
//	  "session_ttl": "5m",
//	  "kdf_algorithm": "argon2id",
//	  "online_check_interval": "3s",
//	  "log_level": "warn"
//	}
package config
