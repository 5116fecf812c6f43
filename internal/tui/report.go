package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/narrate/internal/narrative"
	"github.com/kingrea/narrate/internal/narrator"
	"github.com/kingrea/narrate/internal/notebook"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	valueStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC"))
	insertedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	problemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#444444")).
	Padding(0, 1)

// RenderCounts lays out the non-markdown, markdown and total cell counts.
func RenderCounts(title string, counts notebook.Counts) string {
	rows := [][2]string{
		{"non-markdown cells", fmt.Sprint(counts.NonMarkdown())},
		{"markdown cells", fmt.Sprint(counts.Markdown)},
		{"total cells", fmt.Sprint(counts.Total)},
	}
	lines := []string{sectionStyle.Render(title)}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Width(20).Render(row[0]), valueStyle.Render(row[1])))
	}
	return strings.Join(lines, "\n")
}

// RenderReport summarizes a finished or previewed run.
func RenderReport(report narrator.Report) string {
	verb := "narrated"
	if !report.Written {
		verb = "preview of"
	}
	header := headerStyle.Render(fmt.Sprintf("%s %s", verb, filepath.Base(report.Path)))
	counts := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(RenderCounts("before", report.Before)),
		boxStyle.Render(RenderCounts("after", report.After)),
	)
	sections := []string{header, counts}
	if len(report.Placements) > 0 {
		sections = append(sections, boxStyle.Render(renderPlacements(report.Placements)))
	}
	footer := mutedStyle.Render(fmt.Sprintf("run %s · %d inserted", report.RunID, report.Inserted))
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func renderPlacements(placements []narrator.Placement) string {
	lines := []string{sectionStyle.Render("inserted")}
	for _, p := range placements {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			insertedStyle.Render(fmt.Sprintf("+ %3d", p.Index)),
			labelStyle.Render(fmt.Sprintf("(before original %d)", p.Entry.Before)),
			p.Title,
		))
	}
	return strings.Join(lines, "\n")
}

// RenderLayout lists the resulting cell sequence, marking inserted cells.
func RenderLayout(report narrator.Report) string {
	inserted := make(map[int]narrator.Placement, len(report.Placements))
	for _, p := range report.Placements {
		inserted[p.Index] = p
	}
	lines := []string{sectionStyle.Render("layout")}
	original := 0
	for i, cell := range report.Cells {
		if p, ok := inserted[i]; ok {
			lines = append(lines, insertedStyle.Render(fmt.Sprintf("%4d + %-8s %s", i, cell.Type, p.Title)))
			continue
		}
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%4d   %-8s original %d", i, cell.Type, original)))
		original++
	}
	return strings.Join(lines, "\n")
}

// RenderCheck reports the problems found for a plan. An empty problem list
// renders as a single confirmation line.
func RenderCheck(path string, plan narrative.Plan, counts notebook.Counts, problems []error) string {
	header := headerStyle.Render(fmt.Sprintf("check %s", filepath.Base(path)))
	targets := make([]string, 0, len(plan.Entries))
	for _, index := range plan.Targets() {
		targets = append(targets, fmt.Sprint(index))
	}
	summary := fmt.Sprintf("%s %d passages targeting original cells [%s] of %d",
		labelStyle.Render("plan"), len(plan.Entries), strings.Join(targets, " "), counts.Total)
	if len(problems) == 0 {
		return strings.Join([]string{header, summary, insertedStyle.Render("✓ plan applies cleanly")}, "\n")
	}
	lines := []string{header, summary, problemStyle.Render(fmt.Sprintf("✗ %d problem(s)", len(problems)))}
	for _, problem := range problems {
		lines = append(lines, problemStyle.Render("  - "+problem.Error()))
	}
	return strings.Join(lines, "\n")
}

// RenderHistory frames the tail of the run journal.
func RenderHistory(path string, lines []string, total int) string {
	name := filepath.Base(path)
	if name == "." || name == "" {
		name = "log"
	}
	head := sectionStyle.Render(fmt.Sprintf("LOG · %s (%d of %d)", name, len(lines), total))
	if len(lines) == 0 {
		return boxStyle.Render(head + "\n" + mutedStyle.Render("no runs recorded yet"))
	}
	return boxStyle.Render(head + "\n" + mutedStyle.Render(strings.Join(lines, "\n")))
}
