package database

import (
	"errors"
	"time"
)

var (
	// ErrNotAuthenticated is returned when an operation runs without a principal.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the problem's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSolutionCount     = errors.New("a completed problem needs exactly 3 solutions")
)

// SolutionsPerProblem is the number of solutions attached to a completed problem.
const SolutionsPerProblem = 3

// MaxTitleLength bounds titles derived from a description.
const MaxTitleLength = 100

type ProblemStatus string

const (
	StatusPending    ProblemStatus = "pending"
	StatusProcessing ProblemStatus = "processing"
	StatusCompleted  ProblemStatus = "completed"
	StatusFailed     ProblemStatus = "failed"
)

func (s ProblemStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// AgentType names the kind of approach a solution takes.
type AgentType string

const (
	AgentTechnology       AgentType = "technology"
	AgentBiotechnology    AgentType = "biotechnology"
	AgentSocialInnovation AgentType = "social_innovation"
	AgentPolicy           AgentType = "policy"
	AgentBusinessModel    AgentType = "business_model"
)

// AgentTypes lists every accepted agent type.
var AgentTypes = []AgentType{
	AgentTechnology,
	AgentBiotechnology,
	AgentSocialInnovation,
	AgentPolicy,
	AgentBusinessModel,
}

func (a AgentType) Valid() bool {
	for _, t := range AgentTypes {
		if a == t {
			return true
		}
	}
	return false
}

// Problem is a problem statement submitted by a user.
type Problem struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Category    *string
	Status      ProblemStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Solution is one of the proposals attached to a completed problem.
// Scores are integers in [0,100].
type Solution struct {
	ID                  string
	ProblemID           string
	UserID              string
	Title               string
	Description         string
	FeasibilityScore    int
	CostEstimate        string
	SustainabilityScore int
	InnovationScore     int
	AgentType           AgentType
	ResearchSources     []string
	CreatedAt           time.Time
}

// NewProblem holds the fields a caller supplies when creating a problem.
// An empty Title is derived from Description.
type NewProblem struct {
	Title       string
	Description string
	Category    string
}

// SolutionInput holds the fields of a solution before it is stored.
type SolutionInput struct {
	Title               string
	Description         string
	FeasibilityScore    int
	CostEstimate        string
	SustainabilityScore int
	InnovationScore     int
	AgentType           AgentType
	ResearchSources     []string
}

// ProblemFilter narrows ListProblems. Zero values mean no constraint.
type ProblemFilter struct {
	Status ProblemStatus
	Limit  int
}

// Stats holds per-user aggregate counts.
type Stats struct {
	TotalProblems      int
	PendingProblems    int
	ProcessingProblems int
	CompletedProblems  int
	FailedProblems     int
	Solutions          int
}
