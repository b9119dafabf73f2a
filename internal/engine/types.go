package engine

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/snapkeep/internal/paths"
)

// Sentinel errors for engine operations.
var (
	// ErrRunInProgress rejects a run while another run on the same engine or
	// destination has not finished.
	ErrRunInProgress = errors.New("backup run already in progress")

	// ErrInvalidSettings marks settings rejected by Settings.Validate.
	ErrInvalidSettings = errors.New("invalid backup settings")
)

// MessageNothingToBackUp is the Result message for an empty selection.
const MessageNothingToBackUp = "nothing to back up"

// State is the lifecycle stage of the current or last run.
type State int32

const (
	StateIdle State = iota
	StatePreparing
	StateCopying
	StateRotating
	StateCompleted
	StateFailed
)

var stateNames = [...]string{"idle", "preparing", "copying", "rotating", "completed", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Selection is the ordered list of roots to back up. Duplicates are kept
// and produce duplicate copy attempts.
type Selection []string

// Resolve expands "~" and makes every root absolute.
func (s Selection) Resolve() (Selection, error) {
	out := make(Selection, 0, len(s))
	for _, p := range s {
		abs, err := paths.Resolve(p)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %q", p)
		}
		out = append(out, abs)
	}
	return out, nil
}

// Settings is the immutable per-run configuration snapshot.
type Settings struct {
	// DestinationRoot holds the version directories.
	DestinationRoot string

	// MaxVersions is the number of versions kept after rotation. Must be >= 1.
	MaxVersions int

	// Incremental links files unchanged since the previous version instead of
	// copying them.
	Incremental bool

	// Workers bounds parallel copies. Values below 2 copy sequentially.
	Workers int
}

// Validate reports the first problem with the settings.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.DestinationRoot) == "" {
		return errors.Wrap(ErrInvalidSettings, "destination root is required")
	}
	if s.MaxVersions < 1 {
		return errors.Wrapf(ErrInvalidSettings, "max versions must be at least 1, got %d", s.MaxVersions)
	}
	if s.Workers < 0 {
		return errors.Wrapf(ErrInvalidSettings, "workers must not be negative, got %d", s.Workers)
	}
	return nil
}

// Result summarizes a completed run. FilesTotal always equals
// FilesSucceeded + FilesFailed; FilesSkipped is the subset of
// FilesSucceeded linked unchanged from the previous version.
type Result struct {
	FilesTotal      int      `json:"files_total"`
	FilesSucceeded  int      `json:"files_succeeded"`
	FilesFailed     int      `json:"files_failed"`
	FilesSkipped    int      `json:"files_skipped"`
	BytesCopied     int64    `json:"bytes_copied"`
	VersionID       string   `json:"version_id,omitempty"`
	OutputDirectory string   `json:"output_directory,omitempty"`
	Removed         []string `json:"removed_versions,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	Message         string   `json:"message"`
}

// ProgressReporter observes per-file progress. Calls are never concurrent
// and current increases by one from 1 to total.
type ProgressReporter interface {
	Notify(name string, current, total int)
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(name string, current, total int)

// Notify calls f.
func (f ProgressFunc) Notify(name string, current, total int) {
	f(name, current, total)
}

// NopReporter discards progress.
type NopReporter struct{}

// Notify does nothing.
func (NopReporter) Notify(string, int, int) {}
