// Package logging provides structured logging for snapkeep using slog.
//
// The package supports both text and JSON output formats, verbosity-derived
// levels, a colorized terminal handler and helpers for testing. All loggers
// are based on the standard library's [log/slog] package.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//		Level:  slog.LevelInfo,
//		Format: logging.FormatText,
//		Output: os.Stderr,
//	})
//	logger.Info("version created", "path", v.Path)
//
// # Context
//
// The CLI stores the configured logger on the command context with
// [NewContext]; packages retrieve it with [FromContext].
//
// # Runs and color
//
// [ForRun] tags a logger with a backup run's id and version so records from
// one run can be grouped. [ColorMode] implements the --color flag; auto
// defers to [SupportsColor].
//
// # Testing
//
// For tests, use [ForTest] to capture log output via the testing framework.
package logging
