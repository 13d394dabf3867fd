// Package pipeline runs a problem submission through its stages: create the
// problem, generate solutions, persist them and mark the problem completed.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/auth"
	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/generate"
)

// ErrEmptyDescription is returned before any work when the description is blank.
var ErrEmptyDescription = generate.ErrEmptyDescription

// Generator produces solutions for a description.
type Generator interface {
	Generate(ctx context.Context, description string) (*generate.Result, error)
}

const compensationTimeout = 5 * time.Second

// Store is the persistence the pipeline needs.
type Store interface {
	CreateProblem(ctx context.Context, p auth.Principal, in database.NewProblem) (*database.Problem, error)
	GetProblem(ctx context.Context, p auth.Principal, id string) (*database.Problem, error)
	UpdateProblemStatus(ctx context.Context, p auth.Principal, id string, status database.ProblemStatus) error
	CompleteProblem(ctx context.Context, p auth.Principal, id string, inputs []database.SolutionInput) ([]database.Solution, error)
	GetSolutionsForProblem(ctx context.Context, p auth.Principal, id string) ([]database.Solution, error)
}

var (
	_ Store     = (*database.DB)(nil)
	_ Generator = (*generate.Generator)(nil)
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Request is one submission.
type Request struct {
	Description string
	Title       string
	Category    string
	// Observer, when set, receives milestones synchronously in order.
	Observer Observer
}

// Outcome is a completed submission.
type Outcome struct {
	Problem          *database.Problem
	Solutions        []database.Solution
	LiteratureReview *generate.LiteratureReview
	Source           generate.Source
	FallbackReason   generate.FallbackReason
	Note             string
	Provider         string
	Steps            []StepResult
}

// Submitter orchestrates submissions.
type Submitter struct {
	store Store
	gen   Generator
	log   *zap.Logger
}

func NewSubmitter(store Store, gen Generator, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{store: store, gen: gen, log: logger}
}

// Submit runs the pipeline for p. Steps run strictly in order. Once the
// problem exists, any failure marks it failed before the error is returned.
// There are no retries and no deduplication.
func (s *Submitter) Submit(ctx context.Context, p auth.Principal, req Request) (*Outcome, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if p.IsZero() {
		return nil, database.ErrNotAuthenticated
	}

	run := &run{
		Submitter: s,
		principal: p,
		observer:  req.Observer,
		started:   time.Now(),
	}
	return run.execute(ctx, description, req)
}

type run struct {
	*Submitter
	principal auth.Principal
	observer  Observer
	problemID string
	steps     []StepResult
	started   time.Time
}

func (r *run) execute(ctx context.Context, description string, req Request) (*Outcome, error) {
	// Step 1: Create problem
	problem, err := r.store.CreateProblem(ctx, r.principal, database.NewProblem{
		Title:       req.Title,
		Description: description,
		Category:    req.Category,
	})
	if err != nil {
		r.record("Create", "", err)
		return nil, &Error{Stage: StageCreate, Err: err}
	}
	r.problemID = problem.ID
	r.record("Create", fmt.Sprintf("problem %s created", problem.ID), nil)
	r.emit(MilestoneProblemCreated, problem.Title)

	// Step 2: Start processing
	if err := r.store.UpdateProblemStatus(ctx, r.principal, problem.ID, database.StatusProcessing); err != nil {
		return nil, r.fail(ctx, StageStart, "Start", err)
	}
	r.record("Start", "status processing", nil)
	r.emit(MilestoneProcessing, "")

	// Step 3: Generate
	r.emit(MilestoneUpstreamCalled, "")
	result, err := r.gen.Generate(ctx, description)
	if err != nil {
		return nil, r.fail(ctx, StageGenerate, "Generate", err)
	}
	summary := fmt.Sprintf("%d solutions from %s", len(result.Solutions), result.Source)
	if result.IsFallback() {
		summary += fmt.Sprintf(" (%s)", result.FallbackReason)
	}
	r.record("Generate", summary, nil)
	r.emit(MilestoneSolutionsGenerated, string(result.Source))

	// Steps 4+5: Persist solutions and complete in one transaction
	solutions, err := r.store.CompleteProblem(ctx, r.principal, problem.ID, result.Inputs())
	if err != nil {
		solutions, err = r.committedSolutions(ctx, problem.ID, err)
		if err != nil {
			return nil, r.fail(ctx, StagePersist, "Persist", err)
		}
	}
	r.record("Persist", fmt.Sprintf("%d solutions stored, problem completed", len(solutions)), nil)
	r.emit(MilestoneSolutionsPersisted, "")

	completed, err := r.store.GetProblem(ctx, r.principal, problem.ID)
	if err != nil {
		// The write is committed; report what we know.
		r.log.Warn("reloading completed problem", zap.String("problem_id", problem.ID), zap.Error(err))
		completed = problem
		completed.Status = database.StatusCompleted
	}
	r.emit(MilestoneCompleted, "")

	r.log.Info("submission completed",
		zap.String("problem_id", problem.ID),
		zap.String("user_id", r.principal.UserID),
		zap.String("source", string(result.Source)),
		zap.Duration("elapsed", time.Since(r.started)))

	return &Outcome{
		Problem:          completed,
		Solutions:        solutions,
		LiteratureReview: result.LiteratureReview,
		Source:           result.Source,
		FallbackReason:   result.FallbackReason,
		Note:             result.Note,
		Provider:         result.Provider,
		Steps:            r.steps,
	}, nil
}

// committedSolutions checks, on a detached context, whether a failed
// CompleteProblem call was in fact committed. It returns the stored
// solutions if so and cause otherwise.
func (r *run) committedSolutions(ctx context.Context, problemID string, cause error) ([]database.Solution, error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	problem, err := r.store.GetProblem(cctx, r.principal, problemID)
	if err != nil || problem.Status != database.StatusCompleted {
		return nil, cause
	}
	solutions, err := r.store.GetSolutionsForProblem(cctx, r.principal, problemID)
	if err != nil || len(solutions) != database.SolutionsPerProblem {
		return nil, cause
	}
	r.log.Warn("completion reported an error after commit",
		zap.String("problem_id", problemID), zap.Error(cause))
	return solutions, nil
}

// fail marks the problem failed on a context detached from cancellation so
// a cancelled request still leaves a terminal status behind.
func (r *run) fail(ctx context.Context, stage Stage, step string, cause error) error {
	r.record(step, "", cause)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := r.store.UpdateProblemStatus(cctx, r.principal, r.problemID, database.StatusFailed); err != nil {
		r.log.Error("marking problem failed",
			zap.String("problem_id", r.problemID), zap.Error(err))
	}

	wrapped := &Error{Stage: stage, ProblemID: r.problemID, Err: cause}
	r.log.Warn("submission failed",
		zap.String("problem_id", r.problemID),
		zap.String("stage", string(stage)),
		zap.Error(cause))
	r.emit(MilestoneFailed, UserMessage(wrapped))
	return wrapped
}

func (r *run) record(name, summary string, err error) {
	r.steps = append(r.steps, StepResult{Name: name, Summary: summary, Err: err})
}

func (r *run) emit(m Milestone, detail string) {
	if r.observer == nil {
		return
	}
	r.observer.Observe(Event{Milestone: m, ProblemID: r.problemID, Detail: detail})
}
