// Package config loads the coven-console YAML configuration: backend URL
// and credentials, resume-cursor persistence path, the backlog-drain rate
// heuristic, logging, and the optional local metrics endpoint. Values may
// reference environment variables as ${VAR_NAME}.
package config
