package engine

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/snapkeep/internal/logging"
	"github.com/thoreinstein/snapkeep/internal/session"
	"github.com/thoreinstein/snapkeep/internal/version"
)

var epoch = time.Date(2026, 1, 23, 10, 7, 12, 0, time.Local)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(epoch)
	base := []Option{
		WithLogger(logging.ForTest(t)),
		WithClock(clk),
		WithToolVersion("test"),
	}
	return New(append(base, opts...)...), clk
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func settingsFor(root string) Settings {
	return Settings{DestinationRoot: root, MaxVersions: 5}
}

func listVersions(t *testing.T, root string) []string {
	t.Helper()
	vs, err := version.NewManager().List(root)
	require.NoError(t, err)
	ids := make([]string, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
	}
	return ids
}

func sessionLines(t *testing.T, res *Result) []session.Line {
	t.Helper()
	lines, err := session.ReadFile(filepath.Join(res.OutputDirectory, version.MetaDir, session.FileName))
	require.NoError(t, err)
	return lines
}

// sessionBody returns the log without its header, with the version path
// replaced so logs from different versions compare equal.
func sessionBody(t *testing.T, res *Result) string {
	t.Helper()
	data := readFile(t, filepath.Join(res.OutputDirectory, version.MetaDir, session.FileName))
	_, body, _ := strings.Cut(data, "\n")
	return strings.ReplaceAll(body, res.OutputDirectory, "<version>")
}

type progressCall struct {
	Name    string
	Current int
	Total   int
}

// recorder collects progress calls and flags overlapping ones.
type recorder struct {
	mu      sync.Mutex
	calls   []progressCall
	active  atomic.Int32
	overlap atomic.Bool
}

func (r *recorder) Notify(name string, current, total int) {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, progressCall{name, current, total})
}

func (r *recorder) Calls() []progressCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progressCall(nil), r.calls...)
}

// mockReporter is a testify mock of ProgressReporter.
type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Notify(name string, current, total int) {
	m.Called(name, current, total)
}
