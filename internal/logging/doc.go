// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout (or Config.Output) and, when journald is reachable,
// to the systemd journal under the identifier "streamctl".
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"importer": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("importer")
//	logger.Info("Import finished", "batch_id", id, "failed", n)
//
// Levels are held in slog.LevelVar values, so SetLevel and a later
// Initialize apply to loggers that were already handed out.
//
// Source addresses can carry credentials. Pass them through
// streams.RedactAddress before logging.
//
// Viewing logs:
//
//	journalctl -t streamctl -f
//	journalctl -t streamctl MODULE=importer
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	importer = "debug"
//	engine = "warn"
package logging
