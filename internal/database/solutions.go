package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/auth"
)

var solutionColumns = []string{
	"id", "problem_id", "user_id", "title", "description",
	"feasibility_score", "cost_estimate", "sustainability_score", "innovation_score",
	"agent_type", "research_sources", "created_at",
}

// Validate checks the fields the schema constrains.
func (in SolutionInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return errors.New("solution title is empty")
	case strings.TrimSpace(in.Description) == "":
		return errors.New("solution description is empty")
	case strings.TrimSpace(in.CostEstimate) == "":
		return errors.New("solution cost estimate is empty")
	case !validScore(in.FeasibilityScore), !validScore(in.SustainabilityScore), !validScore(in.InnovationScore):
		return fmt.Errorf("solution %q has a score outside [0,100]", in.Title)
	case !in.AgentType.Valid():
		return fmt.Errorf("solution %q has unknown agent type %q", in.Title, in.AgentType)
	}
	return nil
}

func validScore(v int) bool {
	return v >= 0 && v <= 100
}

// CreateSolution attaches a single solution to a processing problem owned by p.
// A problem never holds more than SolutionsPerProblem solutions.
func (db *DB) CreateSolution(ctx context.Context, p auth.Principal, problemID string, in SolutionInput) (*Solution, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := requireStatus(ctx, tx, p, problemID, StatusProcessing); err != nil {
		return nil, err
	}
	count, err := countSolutions(ctx, tx, problemID)
	if err != nil {
		return nil, err
	}
	if count >= SolutionsPerProblem {
		return nil, fmt.Errorf("problem %s: %w", problemID, ErrSolutionCount)
	}

	sol, err := insertSolution(ctx, tx, p, problemID, in, time.Now())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sol, nil
}

// CompleteProblem stores the given solutions and marks the problem completed
// in one transaction. The problem must be processing and must end up with
// exactly SolutionsPerProblem solutions; otherwise nothing is written.
func (db *DB) CompleteProblem(ctx context.Context, p auth.Principal, problemID string, inputs []SolutionInput) ([]Solution, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := requireStatus(ctx, tx, p, problemID, StatusProcessing); err != nil {
		return nil, err
	}
	existing, err := countSolutions(ctx, tx, problemID)
	if err != nil {
		return nil, err
	}
	if existing+len(inputs) != SolutionsPerProblem {
		return nil, fmt.Errorf("problem %s has %d solutions: %w", problemID, existing+len(inputs), ErrSolutionCount)
	}

	now := time.Now()
	for i, in := range inputs {
		// Offset timestamps so insertion order survives equal scores.
		if _, err := insertSolution(ctx, tx, p, problemID, in, now.Add(time.Duration(i))); err != nil {
			return nil, err
		}
	}

	query, args, err := sq.Update("problems").
		Set("status", string(StatusCompleted)).
		Set("updated_at", formatTime(now)).
		Where(sq.Eq{"id": problemID, "user_id": p.UserID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("completing problem: %w", err)
	}

	// Read back before commit; nothing after the commit may fail.
	solutions, err := querySolutions(ctx, tx, p, problemID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	db.log.Debug("problem completed",
		zap.String("problem_id", problemID),
		zap.Int("solutions", len(solutions)))

	return solutions, nil
}

// GetSolutionsForProblem returns the solutions of a problem owned by p,
// highest innovation score first.
func (db *DB) GetSolutionsForProblem(ctx context.Context, p auth.Principal, problemID string) ([]Solution, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	return querySolutions(ctx, db.conn, p, problemID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func querySolutions(ctx context.Context, q queryer, p auth.Principal, problemID string) ([]Solution, error) {
	query, args, err := sq.Select(solutionColumns...).
		From("solutions").
		Where(sq.Eq{"problem_id": problemID, "user_id": p.UserID}).
		OrderBy("innovation_score DESC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying solutions: %w", err)
	}
	defer rows.Close()

	var solutions []Solution
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, err
		}
		solutions = append(solutions, *sol)
	}
	return solutions, rows.Err()
}

func requireStatus(ctx context.Context, tx *sql.Tx, p auth.Principal, problemID string, want ProblemStatus) error {
	query, args, err := sq.Select("status").
		From("problems").
		Where(sq.Eq{"id": problemID, "user_id": p.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building select: %w", err)
	}
	var status string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("problem %s: %w", problemID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading problem status: %w", err)
	}
	if ProblemStatus(status) != want {
		return fmt.Errorf("problem %s is %s, want %s: %w", problemID, status, want, ErrInvalidTransition)
	}
	return nil
}

func countSolutions(ctx context.Context, tx *sql.Tx, problemID string) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("solutions").
		Where(sq.Eq{"problem_id": problemID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count: %w", err)
	}
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting solutions: %w", err)
	}
	return n, nil
}

func insertSolution(ctx context.Context, tx *sql.Tx, p auth.Principal, problemID string, in SolutionInput, at time.Time) (*Solution, error) {
	sources := in.ResearchSources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("encoding research sources: %w", err)
	}

	sol := &Solution{
		ID:                  uuid.New().String(),
		ProblemID:           problemID,
		UserID:              p.UserID,
		Title:               strings.TrimSpace(in.Title),
		Description:         strings.TrimSpace(in.Description),
		FeasibilityScore:    in.FeasibilityScore,
		CostEstimate:        strings.TrimSpace(in.CostEstimate),
		SustainabilityScore: in.SustainabilityScore,
		InnovationScore:     in.InnovationScore,
		AgentType:           in.AgentType,
		ResearchSources:     sources,
		CreatedAt:           at.UTC(),
	}

	query, args, err := sq.Insert("solutions").
		Columns(solutionColumns...).
		Values(sol.ID, sol.ProblemID, sol.UserID, sol.Title, sol.Description,
			sol.FeasibilityScore, sol.CostEstimate, sol.SustainabilityScore, sol.InnovationScore,
			string(sol.AgentType), string(sourcesJSON), formatTime(at)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting solution: %w", err)
	}
	return sol, nil
}

func scanSolution(row rowScanner) (*Solution, error) {
	var (
		sol         Solution
		agentType   string
		sourcesJSON string
		created     string
	)
	err := row.Scan(&sol.ID, &sol.ProblemID, &sol.UserID, &sol.Title, &sol.Description,
		&sol.FeasibilityScore, &sol.CostEstimate, &sol.SustainabilityScore, &sol.InnovationScore,
		&agentType, &sourcesJSON, &created)
	if err != nil {
		return nil, err
	}
	sol.AgentType = AgentType(agentType)
	if err := json.Unmarshal([]byte(sourcesJSON), &sol.ResearchSources); err != nil {
		return nil, fmt.Errorf("decoding research sources: %w", err)
	}
	if sol.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &sol, nil
}
