package build

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Working directory layout:
//
//	workDir/
//	  .llpack-history.json     # build history: one entry per successful build
//	  build.log                # output of the last build
//	  <name>-<version>.tar.gz  # downloaded sources
//	  <name>-<version>/        # extracted sources
//	  <packages>
const HistoryFile = ".llpack-history.json"

// HistoryEntry records one successful build.
type HistoryEntry struct {
	Project   string    `json:"project"`
	Version   string    `json:"version"`
	Target    Target    `json:"target"`
	BuildTime time.Time `json:"build_time"`
}

// History is the list of successful builds in a working directory, oldest
// first.
type History struct {
	Entries []*HistoryEntry `json:"entries"`
}

// LoadHistory reads the history of dir. A missing file yields an empty
// history.
func LoadHistory(dir string) (*History, error) {
	data, err := os.ReadFile(filepath.Join(dir, HistoryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &History{}, nil
	}
	if err != nil {
		return nil, err
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Save writes the history to dir.
func (h *History) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, HistoryFile), data, 0o644)
}

func (h *History) add(e *HistoryEntry) {
	h.Entries = append(h.Entries, e)
}

// Latest returns the most recent build of project for target.
func (h *History) Latest(project string, target Target) (*HistoryEntry, bool) {
	for i := len(h.Entries) - 1; i >= 0; i-- {
		if e := h.Entries[i]; e.Project == project && e.Target == target {
			return e, true
		}
	}
	return nil, false
}
