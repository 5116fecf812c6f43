// Package ledger records every notebook narrate has written so that applying
// the same plan to its own output is caught instead of duplicating passages.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry captures one applied run.
type Entry struct {
	RunID     string    `json:"run_id"`
	Notebook  string    `json:"notebook"`
	Plan      string    `json:"plan"`
	Before    string    `json:"before"`
	After     string    `json:"after"`
	Inserted  int       `json:"inserted"`
	AppliedAt time.Time `json:"applied_at"`
}

// Ledger is a JSON file of applied runs.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// New returns a ledger stored at path. The file is created on first Record.
func New(path string) *Ledger {
	return &Ledger{path: filepath.Clean(path)}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Path returns the file backing this ledger.
func (l *Ledger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Entries returns every recorded run, oldest first.
func (l *Ledger) Entries() ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Applied reports the run that produced digest from the same notebook and
// plan, if any.
func (l *Ledger) Applied(notebook, plan, digest string) (Entry, bool, error) {
	entries, err := l.Entries()
	if err != nil {
		return Entry{}, false, err
	}
	key := filepath.Clean(notebook)
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Notebook == key && entry.Plan == plan && entry.After == digest {
			return entry, true, nil
		}
	}
	return Entry{}, false, nil
}

// Record appends entry to the ledger.
func (l *Ledger) Record(entry Entry) error {
	if l == nil {
		return nil
	}
	if entry.RunID == "" {
		return fmt.Errorf("ledger: run id is required")
	}
	entry.Notebook = filepath.Clean(entry.Notebook)
	entry.AppliedAt = entry.AppliedAt.UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("ledger: ensure dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("ledger: write %s: %w", l.path, err)
	}
	return nil
}

func (l *Ledger) load() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: read %s: %w", l.path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("ledger: parse %s: %w", l.path, err)
	}
	return entries, nil
}
