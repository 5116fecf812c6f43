// internal/tui/review.go
//
// The review screen lists every planned passage next to its markdown so the
// author can confirm a run before the notebook is rewritten. It follows the
// bubbletea Model/Update/View loop.

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/narrate/internal/narrative"
	"github.com/kingrea/narrate/internal/narrator"
)

// Decision is the outcome of a review session.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionApprove
	DecisionAbort
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionAbort:
		return "abort"
	default:
		return "pending"
	}
}

type reviewFocus int

const (
	focusList reviewFocus = iota
	focusDetail
)

// placementItem implements list.Item for one planned passage.
type placementItem struct {
	placement narrator.Placement
}

func (i placementItem) Title() string {
	return fmt.Sprintf("%d · %s", i.placement.Index, i.placement.Title)
}

func (i placementItem) Description() string {
	desc := fmt.Sprintf("before original cell %d", i.placement.Entry.Before)
	if source := i.placement.Entry.Source; source != "" {
		desc += " · " + source
	}
	return desc
}

func (i placementItem) FilterValue() string { return i.placement.Title }

// Review is the bubbletea model behind `narrate review`.
type Review struct {
	report   narrator.Report
	plan     narrative.Plan
	list     list.Model
	viewport viewport.Model
	focus    reviewFocus
	decision Decision
	detail   string
	width    int
	height   int
}

// NewReview builds the review screen for a dry-run report of plan.
func NewReview(report narrator.Report, plan narrative.Plan) *Review {
	items := make([]list.Item, len(report.Placements))
	for i, p := range report.Placements {
		items[i] = placementItem{placement: p}
	}
	menu := list.New(items, list.NewDefaultDelegate(), 40, 20)
	menu.Title = fmt.Sprintf("%d passages", len(items))
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.SetShowHelp(false)

	r := &Review{
		report:   report,
		plan:     plan,
		list:     menu,
		viewport: viewport.New(60, 20),
		width:    100,
		height:   24,
	}
	r.syncDetail()
	return r
}

// Decision reports what the user chose.
func (r *Review) Decision() Decision {
	return r.decision
}

// Init is called once when the program starts.
func (r *Review) Init() tea.Cmd {
	return nil
}

// Update handles key presses and window resizes.
func (r *Review) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		r.resize()
		return r, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			r.decision = DecisionAbort
			return r, tea.Quit
		case "a":
			r.decision = DecisionApprove
			return r, tea.Quit
		case "tab":
			if r.focus == focusList {
				r.focus = focusDetail
			} else {
				r.focus = focusList
			}
			return r, nil
		}
	}

	var cmd tea.Cmd
	if r.focus == focusDetail {
		r.viewport, cmd = r.viewport.Update(msg)
		return r, cmd
	}
	before := r.list.Index()
	r.list, cmd = r.list.Update(msg)
	if r.list.Index() != before {
		r.syncDetail()
	}
	return r, cmd
}

// View renders the passage list beside the selected markdown.
func (r *Review) View() string {
	title := fmt.Sprintf("review %s", filepath.Base(r.report.Path))
	if r.plan.Path != "" {
		title += " · plan " + filepath.Base(r.plan.Path)
	}
	header := headerStyle.Render(title)
	summary := labelStyle.Render(fmt.Sprintf("%d → %d cells · %d markdown after narration",
		r.report.Before.Total, r.report.After.Total, r.report.After.Markdown))
	listBorder, detailBorder := lipgloss.Color("#5B8DEF"), lipgloss.Color("#444444")
	if r.focus == focusDetail {
		listBorder, detailBorder = detailBorder, listBorder
	}
	left := boxStyle.BorderForeground(listBorder).Render(r.list.View())
	right := boxStyle.BorderForeground(detailBorder).Render(r.viewport.View())
	footer := mutedStyle.Render("a=apply  tab=switch pane  ↑/↓=move  q/esc=abort")
	return strings.Join([]string{
		header,
		summary,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		footer,
	}, "\n")
}

func (r *Review) resize() {
	listWidth := max(24, r.width/3)
	detailWidth := max(20, r.width-listWidth-8)
	paneHeight := max(6, r.height-8)
	r.list.SetSize(listWidth, paneHeight)
	r.viewport.Width = detailWidth
	r.viewport.Height = paneHeight
}

func (r *Review) selected() (narrator.Placement, bool) {
	item, ok := r.list.SelectedItem().(placementItem)
	if !ok {
		return narrator.Placement{}, false
	}
	return item.placement, true
}

// syncDetail shows the selected passage and its heading outline.
func (r *Review) syncDetail() {
	p, ok := r.selected()
	if !ok {
		r.detail = "No passages planned."
		r.viewport.SetContent(r.detail)
		return
	}
	lines := []string{
		sectionStyle.Render(fmt.Sprintf("lands at cell %d", p.Index)),
	}
	if outline := narrative.Outline(p.Entry.Markdown); len(outline) > 1 {
		for _, h := range outline {
			lines = append(lines, labelStyle.Render(strings.Repeat("  ", h.Level-1)+"· "+h.Text))
		}
	}
	lines = append(lines, "", p.Entry.Markdown)
	r.detail = strings.Join(lines, "\n")
	r.viewport.SetContent(r.detail)
	r.viewport.GotoTop()
}

// RunReview runs the review screen and returns the user's decision.
func RunReview(report narrator.Report, plan narrative.Plan) (Decision, error) {
	model := NewReview(report, plan)
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return DecisionAbort, fmt.Errorf("tui: review: %w", err)
	}
	if review, ok := final.(*Review); ok {
		return review.Decision(), nil
	}
	return DecisionAbort, nil
}
