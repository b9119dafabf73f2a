package version

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/snapkeep/pkg/fileutil"
)

// ManifestFormat is the manifest format version for forward compatibility.
const ManifestFormat = 1

// MetaDir is the per-version metadata directory. Backed up roots may not
// use this name.
const MetaDir = ".snapkeep"

// ManifestFile is the manifest file name inside MetaDir.
const ManifestFile = "manifest.json"

// maxManifestSize bounds manifest reads.
const maxManifestSize = 256 << 20

// Outcomes recorded per file.
const (
	OutcomeCopied  = "copied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Manifest describes the contents of one version.
// It is stored as .snapkeep/manifest.json inside the version directory.
type Manifest struct {
	// Format is the manifest format version.
	Format int `json:"format"`

	// RunID identifies the session that produced the version.
	RunID string `json:"run_id"`

	// CreatedAt is when the run started.
	CreatedAt time.Time `json:"created_at"`

	// ToolVersion is the version of snapkeep that wrote the manifest.
	ToolVersion string `json:"tool_version"`

	// Incremental reports whether unchanged files were linked from the
	// previous version.
	Incremental bool `json:"incremental"`

	// Roots maps each selected path to its top-level directory name in
	// the version.
	Roots []RootRecord `json:"roots,omitempty"`

	Files []FileRecord `json:"files"`
}

// RootRecord is the manifest entry for a selected path.
type RootRecord struct {
	SourcePath string `json:"source_path"`
	Name       string `json:"name"`
}

// FileRecord is the manifest entry for a single file.
type FileRecord struct {
	SourcePath string    `json:"source_path"`
	RelPath    string    `json:"rel_path"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	Outcome    string    `json:"outcome"`
}

// Unchanged reports whether the record describes a file with the given size
// and modification time that was stored successfully.
func (r FileRecord) Unchanged(size int64, modTime time.Time) bool {
	return r.Outcome != OutcomeFailed && r.Size == size && r.ModTime.Equal(modTime)
}

// Index maps RelPath to record. Later duplicates win.
func (m *Manifest) Index() map[string]FileRecord {
	idx := make(map[string]FileRecord, len(m.Files))
	for _, f := range m.Files {
		idx[f.RelPath] = f
	}
	return idx
}

// MetaPath returns the metadata directory of the version.
func (v *Version) MetaPath() string {
	return filepath.Join(v.Path, MetaDir)
}

// ManifestPath returns the manifest file path of the version.
func (v *Version) ManifestPath() string {
	return filepath.Join(v.MetaPath(), ManifestFile)
}

// WriteManifest atomically writes m into the version's metadata directory.
func WriteManifest(v *Version, m *Manifest) error {
	if err := os.MkdirAll(v.MetaPath(), dirPerm); err != nil {
		return errors.Wrap(err, "creating metadata directory")
	}
	if m.Format == 0 {
		m.Format = ManifestFormat
	}
	if err := fileutil.AtomicWriteJSON(v.ManifestPath(), m, 0o644); err != nil {
		return errors.Wrapf(err, "writing manifest for %s", v.ID)
	}
	return nil
}

// ReadManifest loads the manifest of a version.
func ReadManifest(v *Version) (*Manifest, error) {
	data, err := fileutil.ReadFileWithLimit(v.ManifestPath(), maxManifestSize)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest for %s", v.ID)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest for %s", v.ID)
	}
	return &m, nil
}
