package screenshot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Copy copies src into dstDir under the same base name, replacing any file
// already there. The source is never modified. It returns the destination path.
func Copy(src, dstDir string) (string, error) {
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	dst := filepath.Join(dstDir, filepath.Base(src))

	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("failed to stat screenshot: %w", err)
	}
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(srcInfo, dstInfo) {
		// dst is src; opening it with O_TRUNC would empty the source.
		return dst, nil
	}

	in, err := os.Open(src) //#nosec G304 -- path comes from a directory listing
	if err != nil {
		return "", fmt.Errorf("failed to open screenshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create copy: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy screenshot: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write copy: %w", err)
	}

	return dst, nil
}

// Clean removes the .png files left in dstDir by an earlier run. Nothing is
// removed when dstDir is srcDir or does not exist. It returns the number of
// files removed.
func Clean(dstDir, srcDir string) (int, error) {
	dstInfo, err := os.Stat(dstDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat screenshot dir: %w", err)
	}
	if !dstInfo.IsDir() {
		return 0, nil
	}
	if srcInfo, err := os.Stat(srcDir); err == nil && os.SameFile(srcInfo, dstInfo) {
		return 0, nil
	}

	entries, err := os.ReadDir(dstDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read screenshot dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		if err := os.Remove(filepath.Join(dstDir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove stale screenshot: %w", err)
		}
		removed++
	}
	return removed, nil
}
