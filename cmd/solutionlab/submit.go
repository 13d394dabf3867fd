package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/solutionlab/internal/auth"
	"github.com/TobiSchelling/solutionlab/internal/dashboard"
	"github.com/TobiSchelling/solutionlab/internal/pipeline"
	"github.com/TobiSchelling/solutionlab/internal/progress"
	"github.com/TobiSchelling/solutionlab/internal/report"
)

// --- submit command ---

var (
	simulate       bool
	submitTitle    string
	submitCategory string
)

var submitCmd = &cobra.Command{
	Use:   "submit <description>",
	Short: "Submit a problem and generate three ranked solutions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		req := pipeline.Request{
			Description: strings.Join(args, " "),
			Title:       submitTitle,
			Category:    submitCategory,
		}
		submitter := pipeline.NewSubmitter(db, newGenerator(cmd.Context()), logger)

		var script progress.Script
		if simulate {
			script = progress.DefaultScript()
		}
		outcome, err := runWithProgress(cmd.Context(), os.Stdout, submitter, cliPrincipal(), req, script)
		if err != nil {
			fmt.Printf("\nError: %s\n", pipeline.UserMessage(err))
			return err
		}

		for i, step := range outcome.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(outcome.Steps), step.Name)
			fmt.Printf("  %s\n", step.Summary)
		}
		printOutcome(os.Stdout, outcome)
		return nil
	},
}

func init() {
	submitCmd.Flags().BoolVar(&simulate, "simulate", false, "Show the fixed timed progress script instead of live progress")
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "Problem title (default: derived from description)")
	submitCmd.Flags().StringVar(&submitCategory, "category", "", "Problem category")
}

// runWithProgress runs the submission and the progress display side by
// side. With a nil script the display follows pipeline milestones and ends
// with the submission. Otherwise script plays to its end; it is cut short
// only when ctx is cancelled or the submission fails.
func runWithProgress(ctx context.Context, w io.Writer, submitter *pipeline.Submitter, p auth.Principal, req pipeline.Request, script progress.Script) (*pipeline.Outcome, error) {
	board := progress.NewBoard()
	printer := &progressPrinter{w: w}

	g, gctx := errgroup.WithContext(ctx)

	var tracker *progress.Tracker
	if script != nil {
		g.Go(func() error {
			err := progress.Simulate(gctx, board, script, printer.print)
			if err != nil && gctx.Err() != nil {
				return nil
			}
			return err
		})
	} else {
		tracker = progress.NewTracker(board, 16)
		req.Observer = tracker
		g.Go(func() error {
			for snap := range tracker.Updates() {
				printer.print(snap)
			}
			return nil
		})
	}

	var outcome *pipeline.Outcome
	g.Go(func() error {
		if tracker != nil {
			defer tracker.Close()
		}
		var err error
		outcome, err = submitter.Submit(gctx, p, req)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcome, nil
}

// progressPrinter writes one line per stage change.
type progressPrinter struct {
	w    io.Writer
	last map[progress.StageID]string
}

func (p *progressPrinter) print(s progress.Snapshot) {
	if p.last == nil {
		p.last = make(map[progress.StageID]string)
	}
	if s.Failed {
		fmt.Fprintf(p.w, "  [%3d%%] failed: %s\n", s.Overall(), s.Message)
		return
	}
	for _, st := range s.Stages {
		if st.State == progress.StateWaiting {
			continue
		}
		detail := ""
		if n := len(st.Details); n > 0 {
			detail = st.Details[n-1]
		}
		line := fmt.Sprintf("%s %s %d %s", st.Name, st.State, st.Progress, detail)
		if p.last[st.ID] == line {
			continue
		}
		p.last[st.ID] = line
		fmt.Fprintf(p.w, "  [%3d%%] %-20s %-8s %s\n", s.Overall(), st.Name, st.State, detail)
	}
}

func printOutcome(w io.Writer, o *pipeline.Outcome) {
	view := dashboard.Build(o.Solutions)

	fmt.Fprintf(w, "\nProblem %s: %s (%s)\n", o.Problem.ID, o.Problem.Title, o.Problem.Status)
	fmt.Fprintf(w, "Source: %s\n", dashboard.SourceLabel(o.Source, o.Provider))
	if o.Note != "" {
		fmt.Fprintf(w, "Note: %s\n", o.Note)
	}
	fmt.Fprintf(w, "\n%d solutions, highest %.1f/10, average %.1f/10\n",
		view.Summary.Count, view.Summary.BestOverall, view.Summary.AverageOverall)

	for _, c := range view.Cards {
		fmt.Fprintf(w, "\n%d. %s [%s] %.1f/10 (%s)\n", c.Rank, c.Title, report.AgentLabel(c.AgentType), c.Overall, c.Band)
		fmt.Fprintf(w, "   %s\n", c.Description)
		fmt.Fprintf(w, "   Feasibility %.1f  Sustainability %.1f  Innovation %.1f  Cost %s\n",
			c.Feasibility, c.Sustainability, c.Innovation, c.CostEstimate)
	}

	if r := o.LiteratureReview; r != nil {
		fmt.Fprintln(w, "\nLiterature review:")
		if r.KeyFindings != "" {
			fmt.Fprintf(w, "  %s\n", r.KeyFindings)
		}
		if len(r.SearchTerms) > 0 {
			fmt.Fprintf(w, "  Search terms: %s\n", strings.Join(r.SearchTerms, ", "))
		}
		for _, s := range r.ResearchSources {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

// --- generate command ---

var generateCmd = &cobra.Command{
	Use:   "generate <description>",
	Short: "Generate solutions without storing them; prints JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newGenerator(cmd.Context()).Generate(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, result)
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
