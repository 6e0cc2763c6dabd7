// Package store defines the persistence interfaces for events,
// subscriptions, rules, notifications, and users, plus two
// implementations: Postgres on pgx/v5 with goose migrations for
// production, and Memory for tests and local development.
//
// Both implementations assign IDs and timestamps on create when the
// caller leaves them unset, and both enforce the monotonic notification
// status transitions through UpdateNotificationStatus.
package store
