// Package traverse expands a backup selection into an ordered stream of file
// entries.
//
// Each root is either a file, which yields one entry, or a directory, whose
// children are visited in lexical order. Subdirectories are entered only when
// [Config.Recurse] is set; names starting with "." are skipped unless
// [Config.IncludeHidden] is set. Roots themselves are never filtered.
//
// The stream returned by [Walk] is lazy and restartable: every range over it
// reads the filesystem again. Unreadable directories contribute no entries
// and are reported through the [WarnFunc]; they never stop the walk.
package traverse

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	gitignore "github.com/monochromegane/go-gitignore"
)

// HiddenPrefix marks hidden files and directories.
const HiddenPrefix = "."

// ErrNotRegular is reported for sockets, devices and pipes, which are not copied.
var ErrNotRegular = errors.New("not a regular file")

// Config controls recursion and filtering. It is not modified during a walk.
type Config struct {
	// Recurse enters subdirectories of selected directories.
	Recurse bool

	// IncludeHidden keeps entries whose name starts with HiddenPrefix.
	IncludeHidden bool

	// IgnoreFile names a gitignore-style file looked up at the top of each
	// selected directory. Empty disables ignore files.
	IgnoreFile string

	// Exclude lists absolute paths that are never entered or yielded, such
	// as the destination root when it lives inside a selected directory.
	Exclude []string
}

// Entry is one file produced by the walk.
type Entry struct {
	// SourcePath is the absolute path of the file.
	SourcePath string

	// RelPath reconstructs the file's place under a version directory:
	// the root's name (see Roots) followed by the path below the root.
	RelPath string

	ModTime time.Time
	Size    int64
}

// Warning describes a path that was skipped because it could not be read.
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

// Root is a selected path and the top-level name its entries use under a
// version directory.
type Root struct {
	Path string
	Name string
}

// Roots names each selected path. Distinct paths whose base names clash get
// "_2", "_3", ... in selection order; names are compared case-insensitively
// so they stay distinct on case-folding filesystems. The same path selected
// twice keeps one name. The result has one element per selection element.
func Roots(selection []string) []Root {
	roots := make([]Root, 0, len(selection))
	byPath := make(map[string]string, len(selection))
	taken := make(map[string]bool, len(selection))

	for _, p := range selection {
		p = filepath.Clean(p)
		name, ok := byPath[p]
		if !ok {
			base := rootName(p)
			name = base
			for n := 2; taken[strings.ToLower(name)]; n++ {
				name = base + "_" + strconv.Itoa(n)
			}
			taken[strings.ToLower(name)] = true
			byPath[p] = name
		}
		roots = append(roots, Root{Path: p, Name: name})
	}
	return roots
}

// WarnFunc receives traversal warnings. It may be nil.
type WarnFunc func(Warning)

// Walk returns the entries for selection under cfg.
func Walk(selection []string, cfg Config, warn WarnFunc) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		w := &walker{cfg: cfg, warn: warn, yield: yield}
		for _, r := range Roots(selection) {
			if !w.root(r.Path, r.Name) {
				return
			}
		}
	}
}

// Collect drains Walk into a slice.
func Collect(selection []string, cfg Config, warn WarnFunc) []Entry {
	var entries []Entry
	for e := range Walk(selection, cfg, warn) {
		entries = append(entries, e)
	}
	return entries
}

type walker struct {
	cfg     Config
	warn    WarnFunc
	yield   func(Entry) bool
	ignore  gitignore.IgnoreMatcher
	stopped bool
}

func (w *walker) report(path string, err error) {
	if w.warn != nil {
		w.warn(Warning{Path: path, Err: err})
	}
}

func (w *walker) emit(e Entry) bool {
	if w.stopped {
		return false
	}
	if !w.yield(e) {
		w.stopped = true
	}
	return !w.stopped
}

// root handles one selected path. It returns false once the consumer stops.
func (w *walker) root(root, name string) bool {
	if w.excluded(root) {
		return true
	}

	info, err := os.Stat(root)
	if err != nil {
		w.report(root, errors.Wrap(err, "stat root"))
		return true
	}

	switch {
	case info.Mode().IsRegular():
		return w.emit(Entry{
			SourcePath: root,
			RelPath:    name,
			ModTime:    info.ModTime(),
			Size:       info.Size(),
		})
	case info.IsDir():
		w.ignore = w.loadIgnore(root)
		return w.dir(root, name)
	default:
		w.report(root, ErrNotRegular)
		return true
	}
}

// dir yields the children of dir. A read error drops the whole subtree.
func (w *walker) dir(dir, rel string) bool {
	children, err := os.ReadDir(dir)
	if err != nil {
		w.report(dir, errors.Wrap(err, "reading directory"))
		return true
	}

	for _, d := range children {
		name := d.Name()
		path := filepath.Join(dir, name)
		childRel := filepath.Join(rel, name)

		if !w.cfg.IncludeHidden && strings.HasPrefix(name, HiddenPrefix) {
			continue
		}
		if w.excluded(path) {
			continue
		}

		isDir := d.IsDir()
		if w.ignore != nil && w.ignore.Match(path, isDir) {
			continue
		}

		if isDir {
			if w.cfg.Recurse && !w.dir(path, childRel) {
				return false
			}
			continue
		}

		info, err := w.fileInfo(path, d)
		if err != nil {
			w.report(path, err)
			continue
		}
		if info == nil {
			// symlink to a directory
			continue
		}

		if !w.emit(Entry{
			SourcePath: path,
			RelPath:    childRel,
			ModTime:    info.ModTime(),
			Size:       info.Size(),
		}) {
			return false
		}
	}
	return true
}

// fileInfo resolves symlinks and returns nil info for links to directories.
func (w *walker) fileInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	var (
		info fs.FileInfo
		err  error
	)
	if d.Type()&fs.ModeSymlink != 0 {
		info, err = os.Stat(path)
	} else {
		info, err = d.Info()
	}
	if err != nil {
		return nil, errors.Wrap(err, "stat")
	}
	if info.IsDir() {
		return nil, nil
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotRegular
	}
	return info, nil
}

func (w *walker) loadIgnore(root string) gitignore.IgnoreMatcher {
	if w.cfg.IgnoreFile == "" {
		return nil
	}
	path := filepath.Join(root, w.cfg.IgnoreFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	m, err := gitignore.NewGitIgnore(path, root)
	if err != nil {
		w.report(path, errors.Wrap(err, "parsing ignore file"))
		return nil
	}
	return m
}

func (w *walker) excluded(path string) bool {
	for _, ex := range w.cfg.Exclude {
		if path == filepath.Clean(ex) {
			return true
		}
	}
	return false
}

// rootName is the base name of a selected root, before Roots resolves clashes.
func rootName(root string) string {
	name := filepath.Base(root)
	if name == string(filepath.Separator) || name == "." || name == "" {
		return "root"
	}
	return name
}
