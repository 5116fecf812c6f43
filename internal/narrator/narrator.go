// Package narrator drives one narration run: load the notebook, insert the
// plan's passages, write the result back and report what changed.
package narrator

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kingrea/narrate/internal/insertion"
	"github.com/kingrea/narrate/internal/ledger"
	"github.com/kingrea/narrate/internal/logbook"
	"github.com/kingrea/narrate/internal/narrative"
	"github.com/kingrea/narrate/internal/notebook"
)

// DefaultIndent matches the layout Jupyter writes.
const DefaultIndent = " "

// ErrAlreadyApplied indicates the notebook on disk is the output of an
// earlier run of the same plan.
var ErrAlreadyApplied = errors.New("narrator: plan already applied to this notebook")

// Narrator runs plans against notebooks.
type Narrator struct {
	log    *logbook.Logbook
	ledger *ledger.Ledger
	now    func() time.Time
}

// Option customizes a Narrator during construction.
type Option func(*Narrator)

// WithLogbook journals every run to book.
func WithLogbook(book *logbook.Logbook) Option {
	return func(n *Narrator) {
		n.log = book
	}
}

// WithLedger records applied runs and refuses to re-apply a plan to its own
// output.
func WithLedger(l *ledger.Ledger) Option {
	return func(n *Narrator) {
		n.ledger = l
	}
}

// WithClock overrides the clock used for ledger timestamps.
func WithClock(clock func() time.Time) Option {
	return func(n *Narrator) {
		if clock != nil {
			n.now = clock
		}
	}
}

// New builds a Narrator. Without options it neither journals nor guards
// against repeated runs.
func New(opts ...Option) *Narrator {
	n := &Narrator{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ApplyOptions describes one run.
type ApplyOptions struct {
	Path   string
	Plan   narrative.Plan
	Indent string
	// DryRun computes the result without writing the notebook or the ledger.
	DryRun bool
	// Force skips the ledger check.
	Force bool
}

// Placement tells where one passage ended up.
type Placement struct {
	Entry narrative.Entry
	// Position is the passage's declaration position in the plan.
	Position int
	// Index is the passage's index in the written notebook.
	Index int
	Title string
}

// Report summarizes a run.
type Report struct {
	RunID        string
	Path         string
	Before       notebook.Counts
	After        notebook.Counts
	Inserted     int
	InputDigest  string
	OutputDigest string
	Written      bool
	Placements   []Placement
	// Cells is the resulting cell sequence.
	Cells []notebook.Cell
}

type passage struct {
	entry    narrative.Entry
	position int
}

// Apply inserts the plan into the notebook at opts.Path. Range and payload
// problems are detected before anything is written; the notebook on disk is
// only replaced once the full result has been encoded.
func (n *Narrator) Apply(opts ApplyOptions) (Report, error) {
	path := filepath.Clean(opts.Path)
	report := Report{RunID: ledger.NewRunID(), Path: path}
	indent := opts.Indent
	if indent == "" {
		indent = DefaultIndent
	}

	nb, data, err := notebook.Load(path)
	if err != nil {
		n.log.Error("run %s: %v", report.RunID, err)
		return report, err
	}
	report.InputDigest = notebook.Digest(data)
	report.Before = notebook.Count(nb.Cells)
	planDigest := opts.Plan.Digest()

	if !opts.Force && !opts.DryRun {
		prior, applied, err := n.ledger.Applied(path, planDigest, report.InputDigest)
		if err != nil {
			n.log.Error("run %s: %v", report.RunID, err)
			return report, err
		}
		if applied {
			n.log.Warn("run %s: refused %s: already narrated by run %s", report.RunID, path, prior.RunID)
			return report, fmt.Errorf("%w (run %s at %s)", ErrAlreadyApplied, prior.RunID, prior.AppliedAt.Format(time.RFC3339))
		}
	}

	reqs := make([]insertion.Request[passage], len(opts.Plan.Entries))
	for i, entry := range opts.Plan.Entries {
		reqs[i] = insertion.Request[passage]{Index: entry.Before, Payload: passage{entry: entry, position: i}}
	}
	withIDs := nb.NeedsCellIDs()
	cells, err := insertion.InsertAll(nb.Cells, reqs, func(p passage) (notebook.Cell, error) {
		id := ""
		if withIDs {
			id = notebook.CellID(p.entry.Before, p.position, p.entry.Markdown)
		}
		return notebook.NewMarkdownCell(p.entry.Markdown, id)
	})
	if err != nil {
		err = describe(err, opts.Plan)
		n.log.Error("run %s: %s: %v", report.RunID, path, err)
		return report, err
	}

	encoded, err := notebook.Encode(nb.WithCells(cells), indent)
	if err != nil {
		n.log.Error("run %s: %v", report.RunID, err)
		return report, err
	}
	report.Cells = cells
	report.After = notebook.Count(cells)
	report.Inserted = len(reqs)
	report.OutputDigest = notebook.Digest(encoded)
	report.Placements = Placements(opts.Plan)

	if opts.DryRun {
		n.log.Info("run %s: preview %s: %d passages, %d cells", report.RunID, path, report.Inserted, report.After.Total)
		return report, nil
	}
	if err := notebook.Save(path, encoded); err != nil {
		n.log.Error("run %s: %v", report.RunID, err)
		return report, err
	}
	report.Written = true
	n.log.Info("run %s: narrated %s: %d passages, %d cells (%d markdown)", report.RunID, path, report.Inserted, report.After.Total, report.After.Markdown)

	if err := n.ledger.Record(ledger.Entry{
		RunID:     report.RunID,
		Notebook:  path,
		Plan:      planDigest,
		Before:    report.InputDigest,
		After:     report.OutputDigest,
		Inserted:  report.Inserted,
		AppliedAt: n.now(),
	}); err != nil {
		n.log.Warn("run %s: notebook written but ledger not updated: %v", report.RunID, err)
		return report, err
	}
	return report, nil
}

// Placements computes the final index of every passage in plan, or nil when
// an entry has a negative index. A passage targeting original index i lands
// after the i originals before it, after every passage targeting a smaller
// index, and after the earlier-declared passages that share its index.
func Placements(plan narrative.Plan) []Placement {
	if len(plan.Entries) == 0 {
		return nil
	}
	maxIndex := 0
	for _, entry := range plan.Entries {
		if entry.Before < 0 {
			return nil
		}
		if entry.Before > maxIndex {
			maxIndex = entry.Before
		}
	}
	perIndex := make([]int, maxIndex+1)
	for _, entry := range plan.Entries {
		perIndex[entry.Before]++
	}
	// below[i] counts passages targeting an index smaller than i.
	below := make([]int, maxIndex+1)
	for i := 1; i <= maxIndex; i++ {
		below[i] = below[i-1] + perIndex[i-1]
	}
	seen := make([]int, maxIndex+1)
	placements := make([]Placement, len(plan.Entries))
	for pos, entry := range plan.Entries {
		i := entry.Before
		placements[pos] = Placement{
			Entry:    entry,
			Position: pos,
			Index:    i + below[i] + seen[i],
			Title:    entry.Title(),
		}
		seen[i]++
	}
	return placements
}

// Check loads the notebook and lists every plan entry that could not be
// applied to it.
func (n *Narrator) Check(path string, plan narrative.Plan) (notebook.Counts, []error, error) {
	nb, _, err := notebook.Load(path)
	if err != nil {
		return notebook.Counts{}, nil, err
	}
	return notebook.Count(nb.Cells), plan.Check(len(nb.Cells)), nil
}

// Stats counts the cells of the notebook at path.
func (n *Narrator) Stats(path string) (notebook.Counts, error) {
	nb, _, err := notebook.Load(path)
	if err != nil {
		return notebook.Counts{}, err
	}
	return notebook.Count(nb.Cells), nil
}

// describe names the plan entry behind an engine error.
func describe(err error, plan narrative.Plan) error {
	var reqErr *insertion.RequestError
	if !errors.As(err, &reqErr) || reqErr.Position < 0 || reqErr.Position >= len(plan.Entries) {
		return err
	}
	source := plan.Entries[reqErr.Position].Source
	if source == "" {
		return err
	}
	return fmt.Errorf("%s: %w", source, err)
}
