// Package session writes the per-run result log stored inside each version.
//
// The log is line oriented and tab separated so it can be read back with
// [ParseLine]:
//
//	# snapkeep session 1b4e28ba-2fa1-11d2-883f-0016d3cca427 2026-01-23T10:07:12Z
//	/home/u/docs/a.txt	/backups/20260123_100712/docs/a.txt	copied
//	/home/u/docs/b.txt	/backups/20260123_100712/docs/b.txt	failed: permission denied
//	WARN	/home/u/missing	no such file or directory
//	SUMMARY	total=2	succeeded=1	failed=1	skipped=0
package session

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// FileName is the session log name inside a version's metadata directory.
const FileName = "session.log"

const (
	headerPrefix = "# snapkeep session "
	warnTag      = "WARN"
	summaryTag   = "SUMMARY"
	failedPrefix = "failed: "
)

// ErrClosed is returned when writing to a closed log.
var ErrClosed = errors.New("session log closed")

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Summary holds the counts written on the last line of a session.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Logger appends records to a session log. It is safe for concurrent use;
// each record is written as one line.
type Logger struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	path   string
	closed bool
}

// Open creates the session log at path, truncating any previous content,
// and writes the header line.
func Open(path, runID string, started time.Time) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating session log directory")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening session log")
	}
	l := &Logger{f: f, w: bufio.NewWriter(f), path: path}
	if err := l.writeLine(headerPrefix + runID + " " + started.UTC().Format(time.RFC3339)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// Result records the outcome for one file. A nil err with skipped false
// is "copied"; a nil err with skipped true is "skipped".
func (l *Logger) Result(src, dst string, skipped bool, err error) error {
	outcome := "copied"
	switch {
	case err != nil:
		outcome = failedPrefix + oneLine(err.Error())
	case skipped:
		outcome = "skipped"
	}
	return l.writeLine(oneLine(src) + "\t" + oneLine(dst) + "\t" + outcome)
}

// Warning records a non-fatal problem.
func (l *Logger) Warning(path, msg string) error {
	return l.writeLine(warnTag + "\t" + oneLine(path) + "\t" + oneLine(msg))
}

// Close writes the summary line, flushes and closes the file. Closing twice
// is a no-op.
func (l *Logger) Close(s Summary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	line := fmt.Sprintf("%s\ttotal=%d\tsucceeded=%d\tfailed=%d\tskipped=%d",
		summaryTag, s.Total, s.Succeeded, s.Failed, s.Skipped)
	_, werr := l.w.WriteString(line + "\n")
	ferr := l.w.Flush()
	cerr := l.f.Close()
	return errors.CombineErrors(errors.CombineErrors(werr, ferr), cerr)
}

func (l *Logger) writeLine(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if _, err := l.w.WriteString(line + "\n"); err != nil {
		return errors.Wrap(err, "writing session log")
	}
	return nil
}

// oneLine keeps a field from breaking the tab separated layout.
func oneLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
}

// Kind classifies a parsed line.
type Kind int

const (
	KindUnknown Kind = iota
	KindHeader
	KindResult
	KindWarning
	KindSummary
)

// Line is one parsed session log line. Only the fields relevant to Kind
// are set.
type Line struct {
	Kind Kind

	// Header
	RunID   string
	Started time.Time

	// Result
	Source  string
	Dest    string
	Outcome string
	Reason  string

	// Warning
	Path    string
	Message string

	// Summary
	Summary Summary
}

// ParseLine parses a single line of a session log.
func ParseLine(s string) (Line, error) {
	s = strings.TrimRight(s, "\r\n")

	if rest, ok := strings.CutPrefix(s, headerPrefix); ok {
		id, ts, found := strings.Cut(rest, " ")
		if !found {
			return Line{}, errors.Newf("malformed header %q", s)
		}
		started, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return Line{}, errors.Wrapf(err, "malformed header time %q", ts)
		}
		return Line{Kind: KindHeader, RunID: id, Started: started}, nil
	}

	fields := strings.Split(s, "\t")
	switch {
	case len(fields) == 3 && fields[0] == warnTag:
		return Line{Kind: KindWarning, Path: fields[1], Message: fields[2]}, nil

	case len(fields) == 5 && fields[0] == summaryTag:
		var sum Summary
		targets := map[string]*int{
			"total":     &sum.Total,
			"succeeded": &sum.Succeeded,
			"failed":    &sum.Failed,
			"skipped":   &sum.Skipped,
		}
		for _, f := range fields[1:] {
			key, val, _ := strings.Cut(f, "=")
			dst, known := targets[key]
			if !known {
				return Line{}, errors.Newf("unknown summary field %q", key)
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return Line{}, errors.Wrapf(err, "summary field %s", key)
			}
			*dst = n
		}
		return Line{Kind: KindSummary, Summary: sum}, nil

	case len(fields) == 3:
		l := Line{Kind: KindResult, Source: fields[0], Dest: fields[1], Outcome: fields[2]}
		if reason, ok := strings.CutPrefix(fields[2], failedPrefix); ok {
			l.Outcome = "failed"
			l.Reason = reason
		}
		switch l.Outcome {
		case "copied", "skipped", "failed":
			return l, nil
		}
		return Line{}, errors.Newf("unknown outcome %q", fields[2])
	}

	return Line{Kind: KindUnknown}, errors.Newf("unrecognized line %q", s)
}

// ReadFile parses every line of the session log at path. Unparseable lines
// are reported through the returned error after the readable ones.
func ReadFile(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening session log")
	}
	defer f.Close()

	var (
		lines []Line
		errs  error
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for n := 1; sc.Scan(); n++ {
		l, err := ParseLine(sc.Text())
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "line %d", n))
			continue
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return lines, errors.Wrap(err, "reading session log")
	}
	return lines, errs
}
