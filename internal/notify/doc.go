// Package notify fans admitted events out to per-channel notifications
// and feeds the live UI stream consumed by the SSE endpoint.
package notify
