package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// MaxWorkers bounds the workers setting.
const MaxWorkers = 64

// Validation errors for configuration fields.
var (
	// ErrVersionTooLow indicates the version field is below the minimum.
	ErrVersionTooLow = errors.New("version must be >= 1")

	// ErrUnsupportedVersion indicates a config written by a newer snapkeep.
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrOutOfRange indicates a numeric field outside its allowed range.
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	switch {
	case cfg.Version < 1:
		errs = append(errs, ErrVersionTooLow)
	case cfg.Version > CurrentVersion:
		errs = append(errs, errors.Wrapf(ErrUnsupportedVersion, "%d", cfg.Version))
	}

	if cfg.MaxVersions < 1 {
		errs = append(errs, &FieldError{Field: "max_versions", Value: strconv.Itoa(cfg.MaxVersions), Err: ErrOutOfRange})
	}
	if cfg.Workers < 1 || cfg.Workers > MaxWorkers {
		errs = append(errs, &FieldError{Field: "workers", Value: strconv.Itoa(cfg.Workers), Err: ErrOutOfRange})
	}

	if cfg.DestinationRoot == "" {
		errs = append(errs, &PathError{Field: "destination_root", Path: cfg.DestinationRoot, Err: ErrInvalidPath})
	} else if err := validatePath(cfg.DestinationRoot); err != nil {
		errs = append(errs, &PathError{Field: "destination_root", Path: cfg.DestinationRoot, Err: err})
	}

	if strings.ContainsRune(cfg.IgnoreFile, os.PathSeparator) || strings.ContainsRune(cfg.IgnoreFile, '\x00') {
		errs = append(errs, &PathError{Field: "ignore_file", Path: cfg.IgnoreFile, Err: ErrInvalidPath})
	}

	for _, src := range cfg.Sources {
		if src == "" {
			errs = append(errs, &PathError{Field: "sources", Path: src, Err: ErrInvalidPath})
			continue
		}
		if err := validatePath(src); err != nil {
			errs = append(errs, &PathError{Field: "sources", Path: src, Err: err})
		}
	}

	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	if path == "" {
		return nil
	}
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}
	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}
	return nil
}

// FieldError represents an invalid scalar field.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Value
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func isNotExist(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr) && os.IsNotExist(pathErr)
}
