// Package api exposes the HTTP surface: registration and login with
// JWT bearer auth, subscription and rule management, notification
// history, the SSE live stream, and monitoring endpoints.
package api
