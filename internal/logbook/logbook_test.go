package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "narrate.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestAppendFormatsLevelAndTimestamp(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	book, err := New(filepath.Join(t.TempDir(), "narrate.log"), WithClock(clock))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Warn("refused:\n  %s", "already applied")
	book.Error("boom")
	lines, total := book.Tail(10)
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if lines[0] != "2026-10-16T09:30:00Z WARN  refused: already applied" {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if lines[1] != "2026-10-16T09:30:00Z ERROR boom" {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestNilAndEmptyLogbook(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if lines, total := book.Tail(3); lines != nil || total != 0 {
		t.Fatalf("nil logbook should be empty")
	}
	fresh, err := New(filepath.Join(t.TempDir(), "narrate.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	if lines, total := fresh.Tail(3); lines != nil || total != 0 {
		t.Fatalf("missing file should read as empty")
	}
}
