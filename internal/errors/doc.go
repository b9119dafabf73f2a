// Package errors provides error handling conventions for the snapkeep CLI.
//
// This package defines sentinel errors for common failure conditions,
// an ExitError type for CLI exit code handling, and exit code constants
// following standard Unix conventions. Construction and wrapping helpers
// forward to github.com/cockroachdb/errors.
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed, including backup runs with per-file failures
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): Fatal backup error (no version created, destination busy)
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional suggestion:
//
//	err := skerrors.NewSystemError(err, "Check that the destination is writable")
//	os.Exit(skerrors.ExitCode(err))
package errors
