package version

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/juju/clock"

	"github.com/thoreinstein/snapkeep/internal/logging"
)

// TimeLayout is the timestamp part of a version name (YYYYMMDD_HHMMSS).
const TimeLayout = "20060102_150405"

// MaxSuffix is the highest collision suffix tried before Begin gives up.
const MaxSuffix = 99

const dirPerm = 0o755

// Sentinel errors for version operations.
var (
	// ErrVersionCreate marks failures to allocate a new version directory.
	ErrVersionCreate = errors.New("cannot create version")

	// ErrNotFound indicates no matching version exists.
	ErrNotFound = errors.New("version not found")
)

var namePattern = regexp.MustCompile(`^(\d{8}_\d{6})(?:_(\d{2}))?$`)

// Version is one timestamped directory under a destination root.
type Version struct {
	// ID is the directory name, e.g. "20260123_100712" or "20260123_100712_01".
	ID string

	// Path is the absolute directory path.
	Path string

	// CreatedAt is parsed from ID in the local time zone.
	CreatedAt time.Time

	// Seq is the collision suffix, 0 when absent.
	Seq int
}

// ParseID parses a version directory name.
func ParseID(id string) (created time.Time, seq int, ok bool) {
	m := namePattern.FindStringSubmatch(id)
	if m == nil {
		return time.Time{}, 0, false
	}
	created, err := time.ParseInLocation(TimeLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	if m[2] != "" {
		seq, _ = strconv.Atoi(m[2])
	}
	return created, seq, true
}

// Warning reports a version that could not be removed during rotation.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) Error() string {
	return w.Path + ": " + w.Err.Error()
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Manager creates, lists and rotates versions.
type Manager struct {
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to name new versions.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger for rotation messages.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager using the wall clock unless overridden.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clock:  clock.WallClock,
		logger: logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin allocates a new version directory under root, creating root if
// needed. When the timestamp name exists it retries with suffixes _01 to
// _99. All failures are marked with ErrVersionCreate.
func (m *Manager) Begin(root string) (*Version, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "creating destination root"), ErrVersionCreate)
	}

	now := m.clock.Now()
	base := now.Format(TimeLayout)
	created, _ := time.ParseInLocation(TimeLayout, base, time.Local)

	for seq := 0; seq <= MaxSuffix; seq++ {
		id := base
		if seq > 0 {
			id = fmt.Sprintf("%s_%02d", base, seq)
		}
		path := filepath.Join(root, id)

		err := os.Mkdir(path, dirPerm)
		if err == nil {
			m.logger.Debug("version created", "id", id, "path", path)
			return &Version{ID: id, Path: path, CreatedAt: created, Seq: seq}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "creating version %s", id), ErrVersionCreate)
		}
		m.logger.Debug("version name taken", "id", id)
	}

	return nil, errors.Mark(
		errors.Newf("no free version name for %s after %d attempts", base, MaxSuffix+1),
		ErrVersionCreate,
	)
}

// List returns the versions under root, oldest first. A missing root has
// no versions.
func (m *Manager) List(root string) ([]Version, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading destination root")
	}

	versions := make([]Version, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		created, seq, ok := ParseID(e.Name())
		if !ok {
			continue
		}
		versions = append(versions, Version{
			ID:        e.Name(),
			Path:      filepath.Join(root, e.Name()),
			CreatedAt: created,
			Seq:       seq,
		})
	}

	slices.SortFunc(versions, func(a, b Version) int {
		return strings.Compare(a.ID, b.ID)
	})
	return versions, nil
}

// Get returns the version with the given id.
func (m *Manager) Get(root, id string) (*Version, error) {
	created, seq, ok := ParseID(id)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q is not a version name", id)
	}
	path := filepath.Join(root, id)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, errors.Wrapf(ErrNotFound, "version %s", id)
	}
	return &Version{ID: id, Path: path, CreatedAt: created, Seq: seq}, nil
}

// Latest returns the newest version whose ID differs from exclude.
func (m *Manager) Latest(root, exclude string) (*Version, error) {
	versions, err := m.List(root)
	if err != nil {
		return nil, err
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].ID != exclude {
			return &versions[i], nil
		}
	}
	return nil, ErrNotFound
}

// Rotate removes the oldest versions under root so that at most keep remain.
// Versions named in protect are never removed and count toward keep.
// Versions that vanish before removal are ignored; removal failures are
// returned as warnings and do not stop the rotation.
func (m *Manager) Rotate(root string, keep int, protect ...string) (removed []Version, warnings []Warning) {
	versions, err := m.List(root)
	if err != nil {
		return nil, []Warning{{Path: root, Err: err}}
	}
	keep = max(keep, 0)

	retained := 0
	for _, v := range versions {
		if slices.Contains(protect, v.ID) {
			retained++
		}
	}

	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		if slices.Contains(protect, v.ID) {
			continue
		}
		if retained < keep {
			retained++
			continue
		}

		if err := os.RemoveAll(v.Path); err != nil {
			m.logger.Warn("could not remove old version", "id", v.ID, "error", err)
			warnings = append(warnings, Warning{Path: v.Path, Err: errors.Wrap(err, "removing version")})
			continue
		}
		m.logger.Info("removed old version", "id", v.ID)
		removed = append(removed, v)
	}

	slices.Reverse(removed)
	return removed, warnings
}
