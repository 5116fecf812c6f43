package notebook

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and decodes the notebook at path, returning the raw bytes too so
// callers can digest exactly what was on disk.
func Load(path string) (*Notebook, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("notebook: read %s: %w", path, err)
	}
	nb, err := Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("notebook: %s: %w", path, err)
	}
	return nb, data, nil
}

// Save replaces path with data. The bytes go to a temp file in the same
// directory first; the rename only happens once they are synced, so a failed
// save leaves the previous document in place.
func Save(path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".narrate-*.ipynb")
	if err != nil {
		return fmt.Errorf("notebook: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("notebook: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("notebook: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("notebook: close temp file: %w", err)
	}
	_ = os.Chmod(tmpPath, perm)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("notebook: replace %s: %w", path, err)
	}
	return nil
}
