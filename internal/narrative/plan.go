package narrative

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/narrate/internal/insertion"
	"github.com/kingrea/narrate/internal/notebook"
)

// CurrentVersion is the plan file version this build understands.
const CurrentVersion = 1

// Entry is one passage to inject before the cell at original index Before.
type Entry struct {
	Before   int
	Markdown string
	// Source names where the entry was declared, for error messages.
	Source string
}

// Title returns a short label for the passage.
func (e Entry) Title() string {
	return Title(e.Markdown)
}

// Plan is the full, ordered set of passages for one notebook.
type Plan struct {
	Version int
	Entries []Entry
	// Path is the plan file the entries were loaded from, if any.
	Path string
}

type planFile struct {
	Version   int         `yaml:"version"`
	Cells     []cellEntry `yaml:"cells"`
	Fragments string      `yaml:"fragments,omitempty"`
}

type cellEntry struct {
	Before   *int   `yaml:"before"`
	Markdown string `yaml:"markdown,omitempty"`
	File     string `yaml:"file,omitempty"`
}

// ParsePlanYAML decodes a plan payload. Relative file and fragment paths
// resolve against baseDir.
func ParsePlanYAML(data []byte, baseDir string) (Plan, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Plan{}, fmt.Errorf("narrative: plan payload is empty")
	}
	var raw planFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Plan{}, fmt.Errorf("narrative: decode plan: %w", err)
	}
	if raw.Version == 0 {
		raw.Version = CurrentVersion
	}
	if raw.Version != CurrentVersion {
		return Plan{}, fmt.Errorf("narrative: unsupported plan version %d", raw.Version)
	}
	plan := Plan{Version: raw.Version}
	for i, cell := range raw.Cells {
		source := "cells[" + strconv.Itoa(i) + "]"
		entry, err := cell.toEntry(source, baseDir)
		if err != nil {
			return Plan{}, err
		}
		plan.Entries = append(plan.Entries, entry)
	}
	if dir := strings.TrimSpace(raw.Fragments); dir != "" {
		fragments, err := LoadFragmentDir(resolvePath(baseDir, dir))
		if err != nil {
			return Plan{}, err
		}
		plan.Entries = append(plan.Entries, fragments...)
	}
	return plan, nil
}

// LoadPlanFile reads a YAML plan from disk.
func LoadPlanFile(path string) (Plan, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Plan{}, fmt.Errorf("narrative: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Plan{}, fmt.Errorf("narrative: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("narrative: read %s: %w", path, err)
	}
	plan, err := ParsePlanYAML(data, filepath.Dir(path))
	if err != nil {
		return Plan{}, fmt.Errorf("narrative: %s: %w", path, err)
	}
	plan.Path = filepath.Clean(path)
	return plan, nil
}

func (c cellEntry) toEntry(source, baseDir string) (Entry, error) {
	if c.Before == nil {
		return Entry{}, fmt.Errorf("narrative: %s: before is required", source)
	}
	hasInline := strings.TrimSpace(c.Markdown) != ""
	hasFile := strings.TrimSpace(c.File) != ""
	switch {
	case hasInline && hasFile:
		return Entry{}, fmt.Errorf("narrative: %s: markdown and file are mutually exclusive", source)
	case hasFile:
		path := resolvePath(baseDir, c.File)
		data, err := os.ReadFile(path)
		if err != nil {
			return Entry{}, fmt.Errorf("narrative: %s: read %s: %w", source, path, err)
		}
		return Entry{Before: *c.Before, Markdown: string(data), Source: path}, nil
	default:
		// Blank inline markdown is kept so the engine reports it as a malformed
		// payload together with its index.
		return Entry{Before: *c.Before, Markdown: c.Markdown, Source: source}, nil
	}
}

// Check reports every entry that cannot be applied to a notebook holding
// cellCount cells. Unlike the insertion engine, which stops at the first
// problem, Check collects them all.
func (p Plan) Check(cellCount int) []error {
	var errs []error
	for i, entry := range p.Entries {
		label := entry.Source
		if label == "" {
			label = "entry " + strconv.Itoa(i)
		}
		if entry.Before < 0 || entry.Before > cellCount {
			errs = append(errs, fmt.Errorf("%s: %w: before %d outside [0, %d]", label, insertion.ErrOutOfRange, entry.Before, cellCount))
		}
		if _, err := notebook.SourceLines(entry.Markdown); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}
	return errs
}

// Digest identifies the plan's content independent of where it was loaded
// from.
func (p Plan) Digest() string {
	var buf bytes.Buffer
	for _, entry := range p.Entries {
		fmt.Fprintf(&buf, "%d\x00%s\x00", entry.Before, entry.Markdown)
	}
	return notebook.Digest(buf.Bytes())
}

// Targets lists the distinct original indices the plan touches, ascending.
func (p Plan) Targets() []int {
	seen := map[int]struct{}{}
	var targets []int
	for _, entry := range p.Entries {
		if _, ok := seen[entry.Before]; ok {
			continue
		}
		seen[entry.Before] = struct{}{}
		targets = append(targets, entry.Before)
	}
	sort.Ints(targets)
	return targets
}

// LoadFragmentDir reads every *.md fragment in dir, sorted by path. A missing
// directory yields no fragments.
func LoadFragmentDir(dir string) ([]Entry, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("narrative: read %s: %w", trimmed, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isMarkdownFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(trimmed, entry.Name()))
	}
	sort.Strings(paths)
	var out []Entry
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("narrative: read %s: %w", path, err)
		}
		meta, body, err := ParseFragment(data)
		if err != nil {
			return nil, fmt.Errorf("narrative: %s: %w", path, err)
		}
		out = append(out, Entry{Before: meta.Before, Markdown: string(body), Source: path})
	}
	return out, nil
}

func isMarkdownFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
