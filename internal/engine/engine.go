package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/juju/clock"
	"golang.org/x/sync/errgroup"

	"github.com/thoreinstein/snapkeep/internal/copier"
	"github.com/thoreinstein/snapkeep/internal/lock"
	"github.com/thoreinstein/snapkeep/internal/logging"
	"github.com/thoreinstein/snapkeep/internal/session"
	"github.com/thoreinstein/snapkeep/internal/traverse"
	"github.com/thoreinstein/snapkeep/internal/version"
)

// Engine runs backups. The zero value is not usable; use New.
type Engine struct {
	logger      *slog.Logger
	clock       clock.Clock
	reporter    ProgressReporter
	versions    *version.Manager
	processLock bool
	lockTimeout time.Duration
	toolVersion string

	running atomic.Bool
	state   atomic.Int32
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Without it the logger is taken from the
// Run context.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the clock used for version names and session timestamps.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithReporter sets the progress observer.
func WithReporter(r ProgressReporter) Option {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithVersionManager replaces the version manager built from the engine's
// clock and logger.
func WithVersionManager(m *version.Manager) Option {
	return func(e *Engine) {
		e.versions = m
	}
}

// WithoutProcessLock disables the machine-wide destination lock.
func WithoutProcessLock() Option {
	return func(e *Engine) {
		e.processLock = false
	}
}

// WithLockTimeout sets how long Run waits for another process holding the
// destination lock.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.lockTimeout = d
	}
}

// WithToolVersion sets the version string recorded in manifests.
func WithToolVersion(v string) Option {
	return func(e *Engine) {
		e.toolVersion = v
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:       clock.WallClock,
		reporter:    NopReporter{},
		processLock: true,
		lockTimeout: lock.DefaultTimeout,
		toolVersion: "dev",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the stage of the active run, or the final stage of the last
// run.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Run backs up selection into a new version under settings.DestinationRoot.
//
// Errors are returned only when no version could be produced: invalid
// settings, ErrRunInProgress, or a failure wrapping version.ErrVersionCreate.
// Everything else ends up in the Result counters and warnings.
func (e *Engine) Run(ctx context.Context, selection Selection, tcfg traverse.Config, settings Settings) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer e.running.Store(false)

	logger := e.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	prev := e.State()
	e.setState(StatePreparing)
	res, err := e.run(ctx, logger, selection, tcfg, settings)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			e.setState(prev)
			return nil, err
		}
		e.setState(StateFailed)
		logger.Error("backup failed", "error", err)
		return nil, err
	}
	e.setState(StateCompleted)
	return res, nil
}

func (e *Engine) run(ctx context.Context, logger *slog.Logger, selection Selection, tcfg traverse.Config, settings Settings) (*Result, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(selection) == 0 {
		logger.Info(MessageNothingToBackUp)
		return &Result{Message: MessageNothingToBackUp}, nil
	}

	root := filepath.Clean(settings.DestinationRoot)

	if e.processLock {
		lk, err := lock.Acquire(ctx, root, clock.WallClock, e.lockTimeout)
		if err != nil {
			if errors.Is(err, lock.ErrHeld) {
				return nil, errors.Mark(err, ErrRunInProgress)
			}
			return nil, err
		}
		defer lk.Release()
	}

	versions := e.versions
	if versions == nil {
		versions = version.NewManager(version.WithClock(e.clock), version.WithLogger(logger))
	}

	v, err := versions.Begin(root)
	if err != nil {
		return nil, err
	}
	runID := session.NewRunID()
	logger = logging.ForRun(logger, runID, v.ID)
	logger.Info("version created", "path", v.Path)

	r := &runner{
		logger:   logger,
		reporter: e.reporter,
		version:  v,
		result:   &Result{VersionID: v.ID, OutputDirectory: v.Path},
		manifest: &version.Manifest{
			RunID:       runID,
			CreatedAt:   e.clock.Now().UTC(),
			ToolVersion: e.toolVersion,
			Incremental: settings.Incremental,
		},
	}

	r.log, err = session.Open(filepath.Join(v.MetaPath(), session.FileName), r.manifest.RunID, r.manifest.CreatedAt)
	if err != nil {
		r.warn(v.MetaPath(), err)
	}

	if settings.Incremental {
		r.loadPrevious(versions, root)
	}

	seen := make(map[string]bool, len(selection))
	for _, sr := range traverse.Roots(selection) {
		if !seen[sr.Path] {
			seen[sr.Path] = true
			r.manifest.Roots = append(r.manifest.Roots, version.RootRecord{SourcePath: sr.Path, Name: sr.Name})
		}
	}

	// Traversal is drained up front so total is fixed before the first copy.
	tcfg.Exclude = append(slices.Clone(tcfg.Exclude), root)
	entries := traverse.Collect(selection, tcfg, func(w traverse.Warning) {
		r.warn(w.Path, w.Err)
	})

	r.result.FilesTotal = len(entries)
	e.setState(StateCopying)
	r.copyAll(entries, settings.Workers)

	if err := version.WriteManifest(v, r.manifest); err != nil {
		r.warn(v.ManifestPath(), err)
	}

	e.setState(StateRotating)
	removed, rotationWarnings := versions.Rotate(root, settings.MaxVersions, v.ID)
	for _, rv := range removed {
		r.result.Removed = append(r.result.Removed, rv.ID)
	}
	for _, w := range rotationWarnings {
		r.warn(w.Path, w.Err)
	}

	res := r.result
	res.Message = fmt.Sprintf("%d of %d files backed up", res.FilesSucceeded, res.FilesTotal)
	if res.FilesFailed > 0 {
		res.Message += fmt.Sprintf(", %d failed", res.FilesFailed)
	}

	if r.log != nil {
		err := r.log.Close(session.Summary{
			Total:     res.FilesTotal,
			Succeeded: res.FilesSucceeded,
			Failed:    res.FilesFailed,
			Skipped:   res.FilesSkipped,
		})
		if err != nil {
			logger.Warn("closing session log", "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", r.log.Path(), err))
		}
	}

	logger.Info("backup completed",
		"total", res.FilesTotal,
		"succeeded", res.FilesSucceeded,
		"failed", res.FilesFailed,
		"skipped", res.FilesSkipped,
	)
	return res, nil
}

// outcome is the result of one file attempt, buffered until it is flushed
// in traversal order.
type outcome struct {
	entry   traverse.Entry
	dst     string
	bytes   int64
	skipped bool
	err     error
}

// runner holds the state of a single run.
type runner struct {
	logger   *slog.Logger
	reporter ProgressReporter
	log      *session.Logger
	version  *version.Version
	result   *Result
	manifest *version.Manifest

	prev        map[string]version.FileRecord
	prevVersion *version.Version

	// dstLocks serializes attempts that map to the same destination.
	dstLocks sync.Map
}

func (r *runner) warn(path string, err error) {
	r.logger.Warn("backup warning", "path", path, "error", err)
	r.result.Warnings = append(r.result.Warnings, fmt.Sprintf("%s: %v", path, err))
	if r.log != nil {
		_ = r.log.Warning(path, err.Error())
	}
}

// loadPrevious indexes the newest older version's manifest. Without one
// every file is copied.
func (r *runner) loadPrevious(versions *version.Manager, root string) {
	prev, err := versions.Latest(root, r.version.ID)
	if err != nil {
		if !errors.Is(err, version.ErrNotFound) {
			r.warn(root, err)
		}
		r.logger.Debug("no previous version, copying everything")
		return
	}
	m, err := version.ReadManifest(prev)
	if err != nil {
		r.warn(prev.ManifestPath(), err)
		return
	}
	r.prev = m.Index()
	r.prevVersion = prev
	r.logger.Debug("incremental base", "version", prev.ID, "files", len(r.prev))
}

func (r *runner) copyAll(entries []traverse.Entry, workers int) {
	if workers < 2 || len(entries) < 2 {
		for i, en := range entries {
			r.flush(i, r.backup(en))
		}
		return
	}

	results := make([]outcome, len(entries))
	done := make([]chan struct{}, len(entries))
	for i := range done {
		done[i] = make(chan struct{})
	}

	var pool errgroup.Group
	pool.SetLimit(workers)
	var feeder errgroup.Group
	feeder.Go(func() error {
		for i, en := range entries {
			pool.Go(func() error {
				defer close(done[i])
				results[i] = r.backup(en)
				return nil
			})
		}
		return pool.Wait()
	})

	for i := range entries {
		<-done[i]
		r.flush(i, results[i])
	}
	_ = feeder.Wait()
}

// backup stores one entry in the version, linking it from the previous
// version when unchanged.
func (r *runner) backup(en traverse.Entry) outcome {
	dst := filepath.Join(r.version.Path, en.RelPath)
	o := outcome{entry: en, dst: dst}

	if top, _, _ := strings.Cut(en.RelPath, string(filepath.Separator)); top == version.MetaDir {
		o.err = errors.Mark(errors.Newf("%s is reserved for version metadata", version.MetaDir), copier.ErrCopy)
		return o
	}

	mu, _ := r.dstLocks.LoadOrStore(dst, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	if rec, ok := r.prev[en.RelPath]; ok && rec.SourcePath == en.SourcePath && rec.Unchanged(en.Size, en.ModTime) {
		existing := filepath.Join(r.prevVersion.Path, en.RelPath)
		err := copier.Link(existing, dst)
		if err == nil {
			o.skipped = true
			return o
		}
		r.logger.Debug("link failed, copying instead", "path", en.RelPath, "error", err)
	}

	// A linked file shares its inode with an older version and must not be
	// truncated in place.
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		o.err = errors.Mark(errors.Wrap(err, "replacing destination"), copier.ErrCopy)
		return o
	}

	o.bytes, o.err = copier.Copy(en.SourcePath, dst)
	return o
}

// flush records an outcome. It runs on a single goroutine in traversal order.
func (r *runner) flush(i int, o outcome) {
	res := r.result
	rec := version.FileRecord{
		SourcePath: o.entry.SourcePath,
		RelPath:    o.entry.RelPath,
		Size:       o.entry.Size,
		ModTime:    o.entry.ModTime,
	}

	switch {
	case o.err != nil:
		res.FilesFailed++
		rec.Outcome = version.OutcomeFailed
		r.logger.Warn("copy failed", "source", o.entry.SourcePath, "error", o.err)
	case o.skipped:
		res.FilesSucceeded++
		res.FilesSkipped++
		rec.Outcome = version.OutcomeSkipped
		r.logger.Debug("unchanged", "source", o.entry.SourcePath)
	default:
		res.FilesSucceeded++
		res.BytesCopied += o.bytes
		rec.Outcome = version.OutcomeCopied
		r.logger.Debug("copied", "source", o.entry.SourcePath, "bytes", o.bytes)
	}
	r.manifest.Files = append(r.manifest.Files, rec)

	if r.log != nil {
		if err := r.log.Result(o.entry.SourcePath, o.dst, o.skipped, o.err); err != nil {
			r.logger.Warn("writing session log", "error", err)
		}
	}
	r.reporter.Notify(o.entry.SourcePath, i+1, res.FilesTotal)
}
