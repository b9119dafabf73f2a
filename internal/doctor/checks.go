package doctor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"

	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/lock"
	"github.com/thoreinstein/snapkeep/internal/paths"
	"github.com/thoreinstein/snapkeep/internal/version"
)

// ConfigCheck reports whether the configuration loaded cleanly.
type ConfigCheck struct {
	path    string
	loadErr error
}

var _ Check = (*ConfigCheck)(nil)

// NewConfigCheck creates a config check. path is the file that was read, or
// "" when running on defaults; loadErr is the error from loading it.
func NewConfigCheck(path string, loadErr error) *ConfigCheck {
	return &ConfigCheck{path: path, loadErr: loadErr}
}

// Name returns the unique identifier for this check.
func (c *ConfigCheck) Name() string {
	return "config"
}

// Category returns the grouping for this check.
func (c *ConfigCheck) Category() string {
	return "config"
}

// Run executes the config check.
func (c *ConfigCheck) Run(context.Context) *CheckResult {
	switch {
	case c.loadErr != nil:
		return &CheckResult{
			Status:  SeverityError,
			Message: c.loadErr.Error(),
			FixHint: "fix the file or run: snapkeep config init --force",
		}
	case c.path == "":
		return &CheckResult{
			Status:  SeverityInfo,
			Message: "no config file found, using defaults",
			FixHint: "run: snapkeep config init",
		}
	default:
		return &CheckResult{
			Status:  SeverityPass,
			Message: "loaded " + c.path,
			Details: map[string]any{"path": c.path},
		}
	}
}

// DestinationCheck verifies that versions can be created under the
// destination root.
type DestinationCheck struct {
	root string
}

var _ Check = (*DestinationCheck)(nil)

// NewDestinationCheck creates a destination check for root.
func NewDestinationCheck(root string) *DestinationCheck {
	return &DestinationCheck{root: root}
}

// Name returns the unique identifier for this check.
func (c *DestinationCheck) Name() string {
	return "destination-writable"
}

// Category returns the grouping for this check.
func (c *DestinationCheck) Category() string {
	return "destination"
}

// Run executes the destination check.
func (c *DestinationCheck) Run(context.Context) *CheckResult {
	details := map[string]any{"path": c.root}

	info, err := os.Stat(c.root)
	switch {
	case os.IsNotExist(err):
		parent, perr := existingAncestor(c.root)
		if perr != nil {
			return &CheckResult{Status: SeverityError, Message: perr.Error(), Details: details}
		}
		if err := probeWritable(parent); err != nil {
			return &CheckResult{
				Status:  SeverityError,
				Message: "cannot create " + c.root + ": " + err.Error(),
				Details: details,
				FixHint: "choose a writable destination_root",
			}
		}
		return &CheckResult{
			Status:  SeverityInfo,
			Message: c.root + " does not exist yet and will be created on the first run",
			Details: details,
		}
	case err != nil:
		return &CheckResult{Status: SeverityError, Message: err.Error(), Details: details}
	case !info.IsDir():
		return &CheckResult{
			Status:  SeverityError,
			Message: c.root + " is not a directory",
			Details: details,
			FixHint: "point destination_root at a directory",
		}
	}

	if err := probeWritable(c.root); err != nil {
		return &CheckResult{
			Status:  SeverityError,
			Message: c.root + " is not writable: " + err.Error(),
			Details: details,
			FixHint: "fix the directory permissions or choose another destination_root",
		}
	}
	return &CheckResult{Status: SeverityPass, Message: c.root + " is writable", Details: details}
}

// HardLinkCheck verifies that the destination filesystem supports hard
// links, which incremental runs use for unchanged files.
type HardLinkCheck struct {
	root        string
	incremental bool
}

var _ Check = (*HardLinkCheck)(nil)

// NewHardLinkCheck creates a hard link check for root.
func NewHardLinkCheck(root string, incremental bool) *HardLinkCheck {
	return &HardLinkCheck{root: root, incremental: incremental}
}

// Name returns the unique identifier for this check.
func (c *HardLinkCheck) Name() string {
	return "hard-links"
}

// Category returns the grouping for this check.
func (c *HardLinkCheck) Category() string {
	return "destination"
}

// Run executes the hard link check.
func (c *HardLinkCheck) Run(context.Context) *CheckResult {
	if !c.incremental {
		return &CheckResult{Status: SeverityInfo, Message: "incremental mode is off"}
	}

	dir, err := existingAncestor(c.root)
	if err != nil {
		return &CheckResult{Status: SeverityWarning, Message: err.Error()}
	}
	if err := probeLink(dir); err != nil {
		return &CheckResult{
			Status:  SeverityWarning,
			Message: "hard links are not supported under " + dir + "; unchanged files will be copied",
			Details: map[string]any{"error": err.Error()},
		}
	}
	return &CheckResult{Status: SeverityPass, Message: "unchanged files can be linked from the previous version"}
}

// SourcesCheck verifies that every configured source exists.
type SourcesCheck struct {
	sources []string
}

var _ Check = (*SourcesCheck)(nil)

// NewSourcesCheck creates a check over the configured sources.
func NewSourcesCheck(sources []string) *SourcesCheck {
	return &SourcesCheck{sources: sources}
}

// Name returns the unique identifier for this check.
func (c *SourcesCheck) Name() string {
	return "sources"
}

// Category returns the grouping for this check.
func (c *SourcesCheck) Category() string {
	return "config"
}

// Run executes the sources check.
func (c *SourcesCheck) Run(context.Context) *CheckResult {
	if len(c.sources) == 0 {
		return &CheckResult{
			Status:  SeverityWarning,
			Message: "no sources configured",
			FixHint: "add paths to sources in the config file or pass them to snapkeep run",
		}
	}

	var missing []string
	for _, src := range c.sources {
		p, err := paths.Resolve(src)
		if err != nil {
			missing = append(missing, src)
			continue
		}
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, src)
		}
	}

	if len(missing) > 0 {
		return &CheckResult{
			Status:  SeverityError,
			Message: "sources not found",
			Details: map[string]any{"missing": missing},
			FixHint: "remove or correct the missing entries in sources",
		}
	}
	return &CheckResult{
		Status:  SeverityPass,
		Message: "all sources exist",
		Details: map[string]any{"count": len(c.sources)},
	}
}

// LockCheck reports whether another backup currently holds the destination.
type LockCheck struct {
	root    string
	timeout time.Duration
}

var _ Check = (*LockCheck)(nil)

// NewLockCheck creates a lock check for root. The lock is tried for at most
// timeout.
func NewLockCheck(root string, timeout time.Duration) *LockCheck {
	return &LockCheck{root: root, timeout: timeout}
}

// Name returns the unique identifier for this check.
func (c *LockCheck) Name() string {
	return "run-lock"
}

// Category returns the grouping for this check.
func (c *LockCheck) Category() string {
	return "destination"
}

// Run executes the lock check.
func (c *LockCheck) Run(ctx context.Context) *CheckResult {
	l, err := lock.Acquire(ctx, c.root, clock.WallClock, c.timeout)
	switch {
	case errors.Is(err, lock.ErrHeld):
		return &CheckResult{
			Status:  SeverityWarning,
			Message: "a backup into " + c.root + " is running",
		}
	case err != nil:
		return &CheckResult{Status: SeverityError, Message: err.Error()}
	}
	defer l.Release()

	return &CheckResult{
		Status:  SeverityPass,
		Message: "no backup is running",
		Details: map[string]any{"lock": l.Name()},
	}
}

// VersionsCheck inspects the versions stored under the destination root.
type VersionsCheck struct {
	root        string
	maxVersions int
	manager     *version.Manager
}

var _ Check = (*VersionsCheck)(nil)

// NewVersionsCheck creates a versions check. A nil manager uses defaults.
func NewVersionsCheck(root string, maxVersions int, m *version.Manager) *VersionsCheck {
	if m == nil {
		m = version.NewManager()
	}
	return &VersionsCheck{root: root, maxVersions: maxVersions, manager: m}
}

// Name returns the unique identifier for this check.
func (c *VersionsCheck) Name() string {
	return "versions"
}

// Category returns the grouping for this check.
func (c *VersionsCheck) Category() string {
	return "versions"
}

// Run executes the versions check.
func (c *VersionsCheck) Run(context.Context) *CheckResult {
	versions, err := c.manager.List(c.root)
	if err != nil {
		return &CheckResult{Status: SeverityError, Message: err.Error()}
	}
	if len(versions) == 0 {
		return &CheckResult{Status: SeverityInfo, Message: "no versions yet"}
	}

	var incomplete []string
	for i := range versions {
		if _, err := version.ReadManifest(&versions[i]); err != nil {
			incomplete = append(incomplete, versions[i].ID)
		}
	}

	details := map[string]any{
		"count":  len(versions),
		"newest": versions[len(versions)-1].ID,
	}
	if len(incomplete) > 0 {
		details["incomplete"] = incomplete
		return &CheckResult{
			Status:  SeverityWarning,
			Message: "some versions have no readable manifest",
			Details: details,
			FixHint: "these were interrupted; remove them or run: snapkeep versions prune",
		}
	}
	if len(versions) > c.maxVersions {
		return &CheckResult{
			Status:  SeverityInfo,
			Message: "more versions than max_versions; the next run removes the oldest",
			Details: details,
		}
	}
	return &CheckResult{Status: SeverityPass, Message: "versions are complete", Details: details}
}

// existingAncestor returns path or its nearest existing parent directory.
func existingAncestor(path string) (string, error) {
	p := filepath.Clean(path)
	for {
		info, err := os.Stat(p)
		if err == nil {
			if !info.IsDir() {
				return "", errors.Newf("%s is not a directory", p)
			}
			return p, nil
		}
		if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "checking %s", p)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", errors.Newf("no existing parent for %s", path)
		}
		p = parent
	}
}

// probeWritable creates and removes a temporary file in dir.
func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".snapkeep-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Remove(name)
}

// probeLink creates a file in a temporary directory under dir and hard-links it.
func probeLink(dir string) error {
	tmp, err := os.MkdirTemp(dir, ".snapkeep-probe-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	src := filepath.Join(tmp, "a")
	if err := os.WriteFile(src, nil, 0o600); err != nil {
		return err
	}
	return os.Link(src, filepath.Join(tmp, "b"))
}
