// Package logger provides structured logging for wallheaven-sync.
//
// It wraps zerolog behind a small interface so components can take a Logger
// and tests can swap in a TestLogger that captures messages.
//
//	cfg := &config.LoggingConfig{Level: "info", File: "/var/log/wallheaven-sync.log"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//	logger.WithField("collection", "Favorites").Info("Sync started")
//
// Console output is written to stderr. User-facing progress lines are not log
// records; they go through ui.Notifier.
package logger
