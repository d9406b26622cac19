// Package logging provides structured logging configuration for uidgen.
//
// It wraps log/slog so every component logs the same way:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("server started", "addr", ":8080")
//
// Components accept a *slog.Logger through an option and fall back to
// Nop() when none is given. Component() tags a child logger with the
// owning package so records can be filtered per subsystem.
//
// Setting Config.File mirrors every record, as JSON, to a second writer
// through a Fanout handler.
package logging
