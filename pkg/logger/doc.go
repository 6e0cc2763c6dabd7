// Package logger builds configured log/slog loggers.
//
// The factory supports JSON and text handlers, level selection from the
// environment, and static attributes attached to every record. Attribute
// helpers (Component, Error, UserID) keep field names consistent across
// the codebase.
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	log := logger.NewFromConfig(cfg, logger.WithAttr(slog.String("app", "notifyhub")))
package logger
