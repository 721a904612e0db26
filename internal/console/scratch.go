package console

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Scratch file names inside a Scratch directory.
const (
	ScriptFile = "modinfo.rc"
	SpoolFile  = "modinfo.txt"
)

// Scratch is a private directory for one console run.
// The caller creates it, uses it, and closes it.
type Scratch struct {
	Dir string
}

// NewScratch creates a fresh scratch directory under parent, or under the
// system temp directory when parent is empty.
func NewScratch(parent string) (*Scratch, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "msfstats-"+uuid.New().String()[:8])
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	logDebug("[console] scratch directory %s", dir)
	return &Scratch{Dir: dir}, nil
}

// ScriptPath is where the resource script goes.
func (s *Scratch) ScriptPath() string {
	return filepath.Join(s.Dir, ScriptFile)
}

// SpoolPath is where the console spools its output.
func (s *Scratch) SpoolPath() string {
	return filepath.Join(s.Dir, SpoolFile)
}

// Close removes the directory. Removal failures are ignored.
func (s *Scratch) Close() error {
	if err := os.RemoveAll(s.Dir); err != nil {
		logDebug("[console] leaving scratch directory %s: %v", s.Dir, err)
	}
	return nil
}
