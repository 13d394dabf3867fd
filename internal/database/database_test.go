package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/auth"
)

var (
	alice = auth.Principal{UserID: "alice"}
	bob   = auth.Principal{UserID: "bob"}
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSolutions() []SolutionInput {
	return []SolutionInput{
		{Title: "Sensor Grid", Description: "Deploy sensors.", FeasibilityScore: 80, CostEstimate: "$1M",
			SustainabilityScore: 70, InnovationScore: 60, AgentType: AgentTechnology, ResearchSources: []string{"IEEE"}},
		{Title: "Community Cleanup", Description: "Organise volunteers.", FeasibilityScore: 90, CostEstimate: "$100K",
			SustainabilityScore: 85, InnovationScore: 40, AgentType: AgentSocialInnovation},
		{Title: "Enzyme Digestion", Description: "Engineer enzymes.", FeasibilityScore: 50, CostEstimate: "$3M",
			SustainabilityScore: 90, InnovationScore: 95, AgentType: AgentBiotechnology},
	}
}

func createProcessing(t *testing.T, db *DB, p auth.Principal, description string) *Problem {
	t.Helper()
	ctx := context.Background()
	problem, err := db.CreateProblem(ctx, p, NewProblem{Description: description})
	if err != nil {
		t.Fatalf("CreateProblem: %v", err)
	}
	if err := db.UpdateProblemStatus(ctx, p, problem.ID, StatusProcessing); err != nil {
		t.Fatalf("UpdateProblemStatus: %v", err)
	}
	return problem
}

func TestCreateProblem(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	problem, err := db.CreateProblem(ctx, alice, NewProblem{Description: "  Reduce ocean plastic pollution ", Category: "environment"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if problem.ID == "" {
		t.Error("expected generated problem ID")
	}
	if problem.Status != StatusPending {
		t.Errorf("expected pending, got %s", problem.Status)
	}
	if problem.Title != "Reduce ocean plastic pollution" {
		t.Errorf("unexpected title %q", problem.Title)
	}
	if problem.Category == nil || *problem.Category != "environment" {
		t.Errorf("expected category to be stored, got %v", problem.Category)
	}
	if problem.UserID != "alice" {
		t.Errorf("expected owner alice, got %s", problem.UserID)
	}
}

func TestCreateProblemRequiresPrincipal(t *testing.T) {
	db := openTestDB(t)
	_, err := db.CreateProblem(context.Background(), auth.Principal{}, NewProblem{Description: "x"})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestDeriveTitle(t *testing.T) {
	short := "Short problem"
	if got := DeriveTitle(short); got != short {
		t.Errorf("expected %q, got %q", short, got)
	}

	long := strings.Repeat("a", 150)
	got := DeriveTitle(long)
	if got != strings.Repeat("a", 100)+"..." {
		t.Errorf("expected truncated title, got %q (%d chars)", got, len(got))
	}

	exact := strings.Repeat("é", 100)
	if got := DeriveTitle(exact); got != exact {
		t.Errorf("expected 100-rune title untouched")
	}
}

func TestGetProblemScopedToOwner(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	problem, _ := db.CreateProblem(ctx, alice, NewProblem{Description: "Alice's problem"})

	if _, err := db.GetProblem(ctx, alice, problem.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := db.GetProblem(ctx, bob, problem.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestListProblems(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first, _ := db.CreateProblem(ctx, alice, NewProblem{Description: "first"})
	second, _ := db.CreateProblem(ctx, alice, NewProblem{Description: "second"})
	db.CreateProblem(ctx, bob, NewProblem{Description: "bob's"})
	db.UpdateProblemStatus(ctx, alice, first.ID, StatusProcessing)

	problems, err := db.ListProblems(ctx, alice, ProblemFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %d", len(problems))
	}
	if problems[0].ID != second.ID {
		t.Errorf("expected newest first")
	}

	processing, _ := db.ListProblems(ctx, alice, ProblemFilter{Status: StatusProcessing})
	if len(processing) != 1 || processing[0].ID != first.ID {
		t.Errorf("expected only the processing problem, got %+v", processing)
	}

	limited, _ := db.ListProblems(ctx, alice, ProblemFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}

	if _, err := db.ListProblems(ctx, alice, ProblemFilter{Status: "archived"}); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatusTransitions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	problem, _ := db.CreateProblem(ctx, alice, NewProblem{Description: "transitions"})

	if err := db.UpdateProblemStatus(ctx, alice, problem.ID, StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completion must go through CompleteProblem, got %v", err)
	}
	if err := db.UpdateProblemStatus(ctx, alice, problem.ID, StatusProcessing); err != nil {
		t.Fatalf("pending -> processing: %v", err)
	}
	if err := db.UpdateProblemStatus(ctx, alice, problem.ID, StatusProcessing); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("processing -> processing should be rejected, got %v", err)
	}
	if err := db.UpdateProblemStatus(ctx, bob, problem.ID, StatusFailed); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}
	if err := db.UpdateProblemStatus(ctx, alice, problem.ID, StatusFailed); err != nil {
		t.Fatalf("processing -> failed: %v", err)
	}
	if err := db.UpdateProblemStatus(ctx, alice, problem.ID, StatusProcessing); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("failed is terminal, got %v", err)
	}
}

func TestCompleteProblem(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	problem := createProcessing(t, db, alice, "complete me")

	solutions, err := db.CompleteProblem(ctx, alice, problem.ID, sampleSolutions())
	if err != nil {
		t.Fatalf("CompleteProblem: %v", err)
	}
	if len(solutions) != SolutionsPerProblem {
		t.Fatalf("expected 3 solutions, got %d", len(solutions))
	}
	if solutions[0].Title != "Enzyme Digestion" {
		t.Errorf("expected highest innovation first, got %s", solutions[0].Title)
	}
	if solutions[2].ResearchSources == nil {
		t.Error("expected empty research sources to load as an empty list")
	}

	stored, _ := db.GetProblem(ctx, alice, problem.ID)
	if stored.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
}

func TestCompleteProblemReturnsStoredRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	problem := createProcessing(t, db, alice, "read back in tx")

	returned, err := db.CompleteProblem(ctx, alice, problem.ID, sampleSolutions())
	if err != nil {
		t.Fatalf("CompleteProblem: %v", err)
	}
	stored, err := db.GetSolutionsForProblem(ctx, alice, problem.ID)
	if err != nil {
		t.Fatalf("GetSolutionsForProblem: %v", err)
	}
	if len(returned) != len(stored) {
		t.Fatalf("returned %d solutions, stored %d", len(returned), len(stored))
	}
	for i := range stored {
		if returned[i].ID != stored[i].ID {
			t.Errorf("solution %d: returned %s, stored %s", i, returned[i].ID, stored[i].ID)
		}
		if !returned[i].CreatedAt.Equal(stored[i].CreatedAt) {
			t.Errorf("solution %d: created_at mismatch", i)
		}
	}
}

func TestCreateProblemMatchesStoredRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created, err := db.CreateProblem(ctx, alice, NewProblem{Description: "no reload needed"})
	if err != nil {
		t.Fatalf("CreateProblem: %v", err)
	}
	stored, err := db.GetProblem(ctx, alice, created.ID)
	if err != nil {
		t.Fatalf("GetProblem: %v", err)
	}
	if !created.CreatedAt.Equal(stored.CreatedAt) || !created.UpdatedAt.Equal(stored.UpdatedAt) {
		t.Errorf("timestamps differ: created %v/%v, stored %v/%v",
			created.CreatedAt, created.UpdatedAt, stored.CreatedAt, stored.UpdatedAt)
	}
	if created.Title != stored.Title || created.Status != stored.Status {
		t.Errorf("created %+v, stored %+v", created, stored)
	}
}

func TestCompleteProblemRejectsWrongCount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	problem := createProcessing(t, db, alice, "two is not enough")

	_, err := db.CompleteProblem(ctx, alice, problem.ID, sampleSolutions()[:2])
	if !errors.Is(err, ErrSolutionCount) {
		t.Fatalf("expected ErrSolutionCount, got %v", err)
	}

	stored, _ := db.GetProblem(ctx, alice, problem.ID)
	if stored.Status != StatusProcessing {
		t.Errorf("expected status unchanged, got %s", stored.Status)
	}
	sols, _ := db.GetSolutionsForProblem(ctx, alice, problem.ID)
	if len(sols) != 0 {
		t.Errorf("expected no solutions written, got %d", len(sols))
	}
}

func TestCompleteProblemRequiresProcessing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	problem, _ := db.CreateProblem(ctx, alice, NewProblem{Description: "still pending"})

	_, err := db.CompleteProblem(ctx, alice, problem.ID, sampleSolutions())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteProblemRollsBackInvalidSolution(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	problem := createProcessing(t, db, alice, "bad agent")

	inputs := sampleSolutions()
	inputs[1].AgentType = "magic"
	if _, err := db.CompleteProblem(ctx, alice, problem.ID, inputs); err == nil {
		t.Fatal("expected validation error")
	}
	sols, _ := db.GetSolutionsForProblem(ctx, alice, problem.ID)
	if len(sols) != 0 {
		t.Errorf("expected no solutions written, got %d", len(sols))
	}
}

func TestCreateSolution(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	problem := createProcessing(t, db, alice, "one at a time")

	for i, in := range sampleSolutions() {
		if _, err := db.CreateSolution(ctx, alice, problem.ID, in); err != nil {
			t.Fatalf("CreateSolution %d: %v", i, err)
		}
	}
	_, err := db.CreateSolution(ctx, alice, problem.ID, sampleSolutions()[0])
	if !errors.Is(err, ErrSolutionCount) {
		t.Errorf("expected ErrSolutionCount for a fourth solution, got %v", err)
	}

	if _, err := db.CompleteProblem(ctx, alice, problem.ID, nil); err != nil {
		t.Fatalf("completing after incremental inserts: %v", err)
	}
}

func TestDeleteProblemCascades(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	problem := createProcessing(t, db, alice, "delete me")
	db.CompleteProblem(ctx, alice, problem.ID, sampleSolutions())

	if err := db.DeleteProblem(ctx, bob, problem.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected other user's delete to be ErrNotFound, got %v", err)
	}
	if err := db.DeleteProblem(ctx, alice, problem.ID); err != nil {
		t.Fatalf("DeleteProblem: %v", err)
	}

	var n int
	db.conn.QueryRow("SELECT COUNT(*) FROM solutions WHERE problem_id = ?", problem.ID).Scan(&n)
	if n != 0 {
		t.Errorf("expected solutions to cascade, %d remain", n)
	}
	if err := db.DeleteProblem(ctx, alice, problem.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	stats, err := db.GetStats(ctx, alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalProblems != 0 {
		t.Errorf("expected 0 problems, got %d", stats.TotalProblems)
	}

	done := createProcessing(t, db, alice, "done")
	db.CompleteProblem(ctx, alice, done.ID, sampleSolutions())
	db.CreateProblem(ctx, alice, NewProblem{Description: "waiting"})
	failed := createProcessing(t, db, alice, "broken")
	db.UpdateProblemStatus(ctx, alice, failed.ID, StatusFailed)
	db.CreateProblem(ctx, bob, NewProblem{Description: "not mine"})

	stats, _ = db.GetStats(ctx, alice)
	if stats.TotalProblems != 3 {
		t.Errorf("expected 3 problems, got %d", stats.TotalProblems)
	}
	if stats.CompletedProblems != 1 || stats.PendingProblems != 1 || stats.FailedProblems != 1 {
		t.Errorf("unexpected status counts: %+v", stats)
	}
	if stats.Solutions != 3 {
		t.Errorf("expected 3 solutions, got %d", stats.Solutions)
	}
}
