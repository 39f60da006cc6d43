// Package config provides configuration helpers for go-mattersim commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by the commands.
const (
	EnvConnectivityDir = "MATTERSIM_CONNECTIVITY_DIR"
	EnvDatasetDir      = "MATTERSIM_DATASET_DIR"
	EnvPort            = "MATTERSIM_PORT"
	EnvGraphDB         = "MATTERSIM_GRAPH_DB"
	EnvMaxSessions     = "MATTERSIM_MAX_SESSIONS"
	EnvLogLevel        = "LOG_LEVEL"
)

// Defaults used when the environment is silent.
const (
	DefaultConnectivityDir = "connectivity"
	DefaultDatasetDir      = "data/v1/scans"
	DefaultPort            = "8080"
	DefaultLogLevel        = "info"
	DefaultMaxSessions     = 64
)

// Env returns the value of key, or def if it is unset or empty.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ConnectivityDir returns the directory holding <scan>_connectivity.json files.
func ConnectivityDir() string {
	return Env(EnvConnectivityDir, DefaultConnectivityDir)
}

// DatasetDir returns the root of the skybox image dataset.
func DatasetDir() string {
	return Env(EnvDatasetDir, DefaultDatasetDir)
}

// Port returns the HTTP port of the server.
func Port() string {
	return Env(EnvPort, DefaultPort)
}

// GraphDB returns the sqlite graph store path, or "" to read JSON files.
func GraphDB() string {
	return os.Getenv(EnvGraphDB)
}

// LogLevel returns the configured log level name.
func LogLevel() string {
	return Env(EnvLogLevel, DefaultLogLevel)
}

// MaxSessions returns the server's concurrent session cap.
func MaxSessions() (int, error) {
	return IntEnv(EnvMaxSessions, DefaultMaxSessions)
}

// IntEnv parses an integer variable, falling back to def when unset.
func IntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
