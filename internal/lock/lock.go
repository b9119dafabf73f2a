// Package lock serializes backup runs that target the same destination root
// across processes.
package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/juju/clock"
	"github.com/juju/mutex/v2"
)

// DefaultTimeout is how long Acquire waits for another process to finish.
const DefaultTimeout = 2 * time.Second

// pollDelay is the retry interval while the mutex is held elsewhere.
const pollDelay = 50 * time.Millisecond

// ErrHeld indicates another run holds the lock for the destination root.
var ErrHeld = errors.New("destination is locked by another run")

// Lock is a held destination lock.
type Lock struct {
	name     string
	releaser mutex.Releaser
}

// Name returns the machine-wide mutex name for a destination root. Names
// are derived from the cleaned absolute path so that equivalent spellings
// share one lock.
func Name(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return "snapkeep-" + hex.EncodeToString(sum[:8])
}

// Acquire takes the lock for root, waiting up to timeout. A zero timeout
// uses DefaultTimeout. Failure to get the lock in time returns ErrHeld.
func Acquire(ctx context.Context, root string, clk clock.Clock, timeout time.Duration) (*Lock, error) {
	if clk == nil {
		clk = clock.WallClock
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	name := Name(root)
	r, err := mutex.Acquire(mutex.Spec{
		Name:    name,
		Clock:   clk,
		Delay:   pollDelay,
		Timeout: timeout,
		Cancel:  ctx.Done(),
	})
	switch {
	case err == nil:
		return &Lock{name: name, releaser: r}, nil
	case errors.Is(err, mutex.ErrTimeout):
		return nil, errors.Wrapf(ErrHeld, "%s", root)
	case errors.Is(err, mutex.ErrCancelled):
		return nil, errors.Wrap(ctx.Err(), "waiting for destination lock")
	default:
		return nil, errors.Wrapf(err, "acquiring lock %s", name)
	}
}

// Name returns the mutex name.
func (l *Lock) Name() string {
	return l.name
}

// Release frees the lock. It is safe to call on a nil Lock.
func (l *Lock) Release() {
	if l == nil || l.releaser == nil {
		return
	}
	l.releaser.Release()
	l.releaser = nil
}
