// Package mailer provides the outbound email transport contract and a
// Postmark-backed implementation, plus a log-only DevSender for local
// development. Mail transports block, so sends are expected to run on
// a workerpool.Pool rather than on orchestration goroutines.
package mailer
