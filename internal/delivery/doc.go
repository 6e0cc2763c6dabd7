// Package delivery pushes notifications out through external channels.
// The orchestrator looks up the recipient, runs the channel's sender
// with retry and backoff, and records the outcome as a monotonic status
// transition on the notification.
package delivery
