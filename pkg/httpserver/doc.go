// Package httpserver wraps net/http.Server with environment-driven
// configuration, structured logging, and graceful shutdown on context
// cancellation or SIGINT/SIGTERM.
package httpserver
