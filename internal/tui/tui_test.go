package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/narrate/internal/narrative"
	"github.com/kingrea/narrate/internal/narrator"
	"github.com/kingrea/narrate/internal/notebook"
)

func testPlan() narrative.Plan {
	return narrative.Plan{Path: "/tmp/narrative.yaml", Entries: []narrative.Entry{
		{Before: 0, Markdown: "# Disparities\n\n## Sources\n\nIntro.", Source: "cells[0]"},
		{Before: 2, Markdown: "### Cleaning", Source: "cells[1]"},
		{Before: 2, Markdown: "### Pivoting", Source: "cells[2]"},
	}}
}

func testReport(written bool) narrator.Report {
	plan := testPlan()
	return narrator.Report{
		RunID:      "run-1",
		Path:       "/tmp/analysis.ipynb",
		Before:     notebook.Counts{Code: 3, Total: 3},
		After:      notebook.Counts{Code: 3, Markdown: 3, Total: 6},
		Inserted:   3,
		Written:    written,
		Placements: narrator.Placements(plan),
		Cells: []notebook.Cell{
			{Type: notebook.CellMarkdown},
			{Type: notebook.CellCode},
			{Type: notebook.CellCode},
			{Type: notebook.CellMarkdown},
			{Type: notebook.CellMarkdown},
			{Type: notebook.CellCode},
		},
	}
}

func TestRenderReport(t *testing.T) {
	out := RenderReport(testReport(true))
	for _, want := range []string{"narrated analysis.ipynb", "non-markdown cells", "markdown cells", "total cells", "Disparities", "Pivoting", "run-1", "3 inserted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if preview := RenderReport(testReport(false)); !strings.Contains(preview, "preview of analysis.ipynb") {
		t.Fatalf("dry-run report should say preview:\n%s", preview)
	}
}

func TestRenderLayoutMarksInsertedCells(t *testing.T) {
	out := RenderLayout(testReport(false))
	lines := strings.Split(out, "\n")
	if len(lines) != 7 {
		t.Fatalf("expected header plus 6 cells, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "+ markdown") || !strings.Contains(lines[1], "Disparities") {
		t.Fatalf("first cell should be inserted: %q", lines[1])
	}
	if !strings.Contains(lines[3], "original 1") || !strings.Contains(lines[6], "original 2") {
		t.Fatalf("originals mislabelled:\n%s", out)
	}
}

func TestRenderCheck(t *testing.T) {
	plan := testPlan()
	counts := notebook.Counts{Code: 3, Total: 3}
	clean := RenderCheck("/tmp/analysis.ipynb", plan, counts, nil)
	if !strings.Contains(clean, "applies cleanly") || !strings.Contains(clean, "[0 2]") {
		t.Fatalf("unexpected clean check:\n%s", clean)
	}
	failing := RenderCheck("/tmp/analysis.ipynb", plan, counts, []error{errors.New("cells[1]: index 9 out of range")})
	if !strings.Contains(failing, "1 problem") || !strings.Contains(failing, "index 9") {
		t.Fatalf("unexpected failing check:\n%s", failing)
	}
}

func TestRenderHistory(t *testing.T) {
	if out := RenderHistory("/x/narrate.log", nil, 0); !strings.Contains(out, "no runs recorded") {
		t.Fatalf("unexpected empty history:\n%s", out)
	}
	out := RenderHistory("/x/narrate.log", []string{"a", "b"}, 5)
	if !strings.Contains(out, "narrate.log (2 of 5)") {
		t.Fatalf("unexpected history header:\n%s", out)
	}
}

func press(t *testing.T, r *Review, msg tea.Msg) tea.Cmd {
	t.Helper()
	model, cmd := r.Update(msg)
	if model != r {
		t.Fatalf("update should return the same review model")
	}
	return cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestReviewNavigatesPassages(t *testing.T) {
	r := NewReview(testReport(false), testPlan())
	if !strings.Contains(r.detail, "lands at cell 0") || !strings.Contains(r.detail, "· Sources") {
		t.Fatalf("unexpected initial detail:\n%s", r.detail)
	}
	press(t, r, tea.KeyMsg{Type: tea.KeyDown})
	if !strings.Contains(r.detail, "lands at cell 3") || !strings.Contains(r.detail, "### Cleaning") {
		t.Fatalf("detail did not follow selection:\n%s", r.detail)
	}
	if r.Decision() != DecisionPending {
		t.Fatalf("navigation should not decide, got %s", r.Decision())
	}
	view := r.View()
	if !strings.Contains(view, "review analysis.ipynb · plan narrative.yaml") || !strings.Contains(view, "3 → 6 cells") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestReviewDecisions(t *testing.T) {
	cases := map[string]struct {
		key  tea.KeyMsg
		want Decision
	}{
		"apply":  {tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, DecisionApprove},
		"quit":   {tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, DecisionAbort},
		"escape": {tea.KeyMsg{Type: tea.KeyEsc}, DecisionAbort},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewReview(testReport(false), testPlan())
			cmd := press(t, r, tc.key)
			if r.Decision() != tc.want {
				t.Fatalf("decision = %s, want %s", r.Decision(), tc.want)
			}
			if !isQuit(cmd) {
				t.Fatalf("expected the program to quit")
			}
		})
	}
}

func TestReviewTabMovesFocusToDetail(t *testing.T) {
	r := NewReview(testReport(false), testPlan())
	press(t, r, tea.KeyMsg{Type: tea.KeyTab})
	if r.focus != focusDetail {
		t.Fatalf("tab should focus the detail pane")
	}
	press(t, r, tea.KeyMsg{Type: tea.KeyDown})
	if !strings.Contains(r.detail, "lands at cell 0") {
		t.Fatalf("scrolling the detail should not change the selection")
	}
	press(t, r, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func TestReviewWithoutPassages(t *testing.T) {
	r := NewReview(narrator.Report{Path: "/tmp/a.ipynb"}, narrative.Plan{})
	if r.detail != "No passages planned." {
		t.Fatalf("unexpected detail %q", r.detail)
	}
}
