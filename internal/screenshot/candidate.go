// Package screenshot finds the screenshots that belong to a failed test and
// copies them next to the report.
package screenshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// timestampLayout is the capture time encoded in screenshot names.
const timestampLayout = "20060102_150405"

// timestampSuffix matches the "_YYYYMMDD_HHMMSS" tail of a screenshot name.
var timestampSuffix = regexp.MustCompile(`_(\d{8}_\d{6})$`)

// Candidate is a screenshot file that may belong to a test.
type Candidate struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CapturedAt  time.Time `json:"captured_at,omitempty"`
	ModTime     time.Time `json:"mod_time"`
}

// NewCandidate builds a candidate from a file name and its modification time.
func NewCandidate(path string, modTime time.Time) Candidate {
	name := filepath.Base(path)
	desc, captured := splitName(name)
	return Candidate{
		Path:        path,
		Name:        name,
		Description: desc,
		CapturedAt:  captured,
		ModTime:     modTime,
	}
}

// splitName strips the extension and timestamp suffix from a screenshot name.
func splitName(name string) (string, time.Time) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	m := timestampSuffix.FindStringSubmatchIndex(stem)
	if m == nil {
		return stem, time.Time{}
	}

	captured, err := time.ParseInLocation(timestampLayout, stem[m[2]:m[3]], time.Local)
	if err != nil {
		// Digits in the right shape but not a real date: keep it as part of the text.
		return stem, time.Time{}
	}
	return stem[:m[0]], captured
}

// Scan lists the .png files directly inside dir. A missing directory is not an
// error: it just has no candidates.
func Scan(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read screenshot dir: %w", err)
	}

	var candidates []Candidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		candidates = append(candidates, NewCandidate(filepath.Join(dir, e.Name()), info.ModTime()))
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})
	return candidates, nil
}
