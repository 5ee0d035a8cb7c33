// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants defines global constants used throughout the messaging sync service.
package constants

// Service constants
const (
	// ServiceName is the name of this service
	ServiceName = "messaging-sync"
)

// HTTP header constants
const (
	// RequestIDHeader is the HTTP header name for request ID
	RequestIDHeader = "X-Request-Id"
)

// Environment variables
const (
	// EnvNATSURL is the environment variable for NATS server URL
	EnvNATSURL = "NATS_URL"
	// EnvNATSTimeout is the NATS connection timeout (Go duration)
	EnvNATSTimeout = "NATS_TIMEOUT"
	// EnvNATSMaxReconnect is the number of NATS reconnect attempts
	EnvNATSMaxReconnect = "NATS_MAX_RECONNECT"
	// EnvNATSReconnectWait is the wait between NATS reconnect attempts (Go duration)
	EnvNATSReconnectWait = "NATS_RECONNECT_WAIT"
	// EnvRepositorySource selects the record store implementation (postgres, sqlite, mock)
	EnvRepositorySource = "REPOSITORY_SOURCE"
	// EnvDatabaseURL is the DSN handed to the SQL record store
	EnvDatabaseURL = "DATABASE_URL"
	// EnvJobPayloadEncoding selects the job payload encoding (json, msgpack)
	EnvJobPayloadEncoding = "JOB_PAYLOAD_ENCODING"
	// EnvConfigFile points at an optional YAML file with defaults
	EnvConfigFile = "CONFIG_FILE"
	// EnvHealthPort is the port of the liveness and readiness endpoints
	EnvHealthPort = "HEALTH_PORT"

	EnvImportMaxAttempts    = "IMPORT_MAX_ATTEMPTS"
	EnvImportRetryBaseDelay = "IMPORT_RETRY_BASE_DELAY"
	EnvImportRetryMaxDelay  = "IMPORT_RETRY_MAX_DELAY"
)

// Repository sources
const (
	RepositorySourcePostgres = "postgres"
	RepositorySourceSQLite   = "sqlite"
	RepositorySourceMock     = "mock"
)
