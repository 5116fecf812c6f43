// Command narrate inserts narrative markdown cells into Jupyter notebooks at
// positions given against the notebook's original cell order.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kingrea/narrate/internal/config"
	"github.com/kingrea/narrate/internal/ledger"
	"github.com/kingrea/narrate/internal/logbook"
	"github.com/kingrea/narrate/internal/narrative"
	"github.com/kingrea/narrate/internal/narrator"
	"github.com/kingrea/narrate/internal/tui"
)

const version = "0.1.0"

// stdout receives command output.
var stdout io.Writer = os.Stdout

// Globals are flags shared by every command.
type Globals struct {
	Project string `name:"project" short:"C" help:"Project directory containing .narrate/" default:"." type:"path"`
}

// CLI defines the command-line interface for narrate.
var CLI struct {
	Globals

	Init    InitCmd    `cmd:"" help:"Create .narrate/ with a default config"`
	Apply   ApplyCmd   `cmd:"" help:"Insert the plan's passages into the notebook"`
	Preview PreviewCmd `cmd:"" help:"Show the resulting layout without writing"`
	Review  ReviewCmd  `cmd:"" help:"Review passages interactively, then apply"`
	Check   CheckCmd   `cmd:"" help:"Report every plan entry that cannot be applied"`
	Stats   StatsCmd   `cmd:"" help:"Count the notebook's cells"`
	History HistoryCmd `cmd:"" help:"Show recent runs from the journal"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// Target selects the notebook and plan, overriding the project config.
type Target struct {
	Notebook string `short:"n" help:"Notebook to narrate" type:"path"`
	Plan     string `short:"p" help:"Narrative plan (YAML)" type:"path"`
}

// session bundles what a command needs from the project.
type session struct {
	cfg      *config.Config
	book     *logbook.Logbook
	narrator *narrator.Narrator
	notebook string
	plan     string
}

func openSession(g *Globals, target Target) (*session, error) {
	cfg, err := config.NewConfig(g.Project)
	if err != nil {
		return nil, err
	}
	book, err := logbook.New(cfg.LogPath())
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:  cfg,
		book: book,
		narrator: narrator.New(
			narrator.WithLogbook(book),
			narrator.WithLedger(ledger.New(cfg.LedgerPath())),
		),
		notebook: cfg.NotebookPath(),
		plan:     cfg.PlanPath(),
	}
	if target.Notebook != "" {
		s.notebook = target.Notebook
	}
	if target.Plan != "" {
		s.plan = target.Plan
	}
	return s, nil
}

func (s *session) loadPlan() (narrative.Plan, error) {
	plan, err := narrative.LoadPlanFile(s.plan)
	if err != nil {
		s.book.Error("plan %s: %v", s.plan, err)
		return narrative.Plan{}, err
	}
	return plan, nil
}

func (s *session) apply(plan narrative.Plan, dryRun, force bool) (narrator.Report, error) {
	return s.narrator.Apply(narrator.ApplyOptions{
		Path:   s.notebook,
		Plan:   plan,
		Indent: s.cfg.Indent(),
		DryRun: dryRun,
		Force:  force,
	})
}

// InitCmd prepares a project.
type InitCmd struct {
	Notebook string `short:"n" help:"Notebook path to record in the config"`
	Plan     string `short:"p" help:"Plan path to record in the config"`
}

func (c *InitCmd) Run(g *Globals) error {
	if err := config.InitDir(g.Project); err != nil {
		return err
	}
	cfg, err := config.NewConfig(g.Project)
	if err != nil {
		return err
	}
	if c.Notebook != "" || c.Plan != "" {
		if err := cfg.SetPaths(c.Notebook, c.Plan); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "initialized %s\n  notebook: %s\n  plan:     %s\n", cfg.NarrateProjectDir, cfg.NotebookPath(), cfg.PlanPath())
	return nil
}

// ApplyCmd writes the plan into the notebook.
type ApplyCmd struct {
	Target
	Force  bool `help:"Apply even if the ledger shows this plan already narrated the notebook"`
	DryRun bool `name:"dry-run" help:"Compute the result without writing"`
}

func (c *ApplyCmd) Run(g *Globals) error {
	s, err := openSession(g, c.Target)
	if err != nil {
		return err
	}
	plan, err := s.loadPlan()
	if err != nil {
		return err
	}
	report, err := s.apply(plan, c.DryRun, c.Force)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tui.RenderReport(report))
	return nil
}

// PreviewCmd shows where every passage would land.
type PreviewCmd struct {
	Target
}

func (c *PreviewCmd) Run(g *Globals) error {
	s, err := openSession(g, c.Target)
	if err != nil {
		return err
	}
	plan, err := s.loadPlan()
	if err != nil {
		return err
	}
	report, err := s.apply(plan, true, false)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tui.RenderReport(report))
	fmt.Fprintln(stdout, tui.RenderLayout(report))
	return nil
}

// ReviewCmd opens the interactive review and applies on approval.
type ReviewCmd struct {
	Target
	Force bool `help:"Apply even if the ledger shows this plan already narrated the notebook"`
}

func (c *ReviewCmd) Run(g *Globals) error {
	s, err := openSession(g, c.Target)
	if err != nil {
		return err
	}
	plan, err := s.loadPlan()
	if err != nil {
		return err
	}
	preview, err := s.apply(plan, true, false)
	if err != nil {
		return err
	}
	decision, err := tui.RunReview(preview, plan)
	if err != nil {
		return err
	}
	if decision != tui.DecisionApprove {
		s.book.Info("review of %s aborted", s.notebook)
		fmt.Fprintln(stdout, "aborted; notebook unchanged")
		return nil
	}
	report, err := s.apply(plan, false, c.Force)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tui.RenderReport(report))
	return nil
}

// CheckCmd validates the plan against the notebook.
type CheckCmd struct {
	Target
}

func (c *CheckCmd) Run(g *Globals) error {
	s, err := openSession(g, c.Target)
	if err != nil {
		return err
	}
	plan, err := s.loadPlan()
	if err != nil {
		return err
	}
	counts, problems, err := s.narrator.Check(s.notebook, plan)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tui.RenderCheck(s.notebook, plan, counts, problems))
	if len(problems) > 0 {
		return fmt.Errorf("check: %w", errors.Join(problems...))
	}
	return nil
}

// StatsCmd prints cell counts.
type StatsCmd struct {
	Notebook string `short:"n" help:"Notebook to inspect" type:"path"`
}

func (c *StatsCmd) Run(g *Globals) error {
	s, err := openSession(g, Target{Notebook: c.Notebook})
	if err != nil {
		return err
	}
	counts, err := s.narrator.Stats(s.notebook)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tui.RenderCounts(s.notebook, counts))
	return nil
}

// HistoryCmd prints the tail of the run journal.
type HistoryCmd struct {
	Lines int `short:"l" help:"Number of journal lines to show" default:"20"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	s, err := openSession(g, Target{})
	if err != nil {
		return err
	}
	lines, total := s.book.Tail(c.Lines)
	fmt.Fprintln(stdout, tui.RenderHistory(s.book.Path(), lines, total))
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "narrate %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("narrate"),
		kong.Description("Insert narrative markdown cells into Jupyter notebooks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
