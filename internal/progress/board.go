// Package progress models the four-stage progress display shown while a
// problem is being solved.
package progress

import (
	"slices"
	"sync"
)

type StageID string

const (
	StageRetrieval  StageID = "retrieval"
	StageGeneration StageID = "generation"
	StageEvaluation StageID = "evaluation"
	StageSynthesis  StageID = "synthesis"
)

type State string

const (
	StateWaiting  State = "waiting"
	StateActive   State = "active"
	StateComplete State = "complete"
)

// Stage is one row of the display.
type Stage struct {
	ID          StageID  `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	State       State    `json:"state"`
	Progress    int      `json:"progress"`
	Details     []string `json:"details"`
}

// Snapshot is a point-in-time copy of a Board.
type Snapshot struct {
	Stages  []Stage `json:"stages"`
	Failed  bool    `json:"failed"`
	Message string  `json:"message,omitempty"`
}

// Done reports whether every stage is complete.
func (s Snapshot) Done() bool {
	for _, st := range s.Stages {
		if st.State != StateComplete {
			return false
		}
	}
	return len(s.Stages) > 0
}

// Overall is the mean stage progress, 0-100.
func (s Snapshot) Overall() int {
	if len(s.Stages) == 0 {
		return 0
	}
	total := 0
	for _, st := range s.Stages {
		total += st.Progress
	}
	return total / len(s.Stages)
}

// Stage returns the stage with id.
func (s Snapshot) Stage(id StageID) (Stage, bool) {
	for _, st := range s.Stages {
		if st.ID == id {
			return st, true
		}
	}
	return Stage{}, false
}

var stageDefs = []Stage{
	{ID: StageRetrieval, Name: "Retrieval Agents", Description: "Scanning literature, patents, and recent developments"},
	{ID: StageGeneration, Name: "Idea Generation", Description: "Generating innovative solution concepts"},
	{ID: StageEvaluation, Name: "Evaluation Agents", Description: "Scoring solutions on feasibility, cost, and sustainability"},
	{ID: StageSynthesis, Name: "Solution Synthesis", Description: "Ranking and preparing final recommendations"},
}

// Board holds the live state of the four stages. It is safe for
// concurrent use.
type Board struct {
	mu      sync.Mutex
	stages  []Stage
	failed  bool
	message string
}

func NewBoard() *Board {
	b := &Board{stages: make([]Stage, len(stageDefs))}
	for i, def := range stageDefs {
		def.State = StateWaiting
		b.stages[i] = def
	}
	return b
}

// Update sets a stage's state and progress. Non-empty details replace
// the stage's current details. Progress is clamped to [0,100].
func (b *Board) Update(id StageID, state State, progress int, details ...string) {
	progress = max(0, min(100, progress))

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.stages {
		if b.stages[i].ID != id {
			continue
		}
		b.stages[i].State = state
		b.stages[i].Progress = progress
		if len(details) > 0 {
			b.stages[i].Details = slices.Clone(details)
		}
		return
	}
}

// Complete marks id complete at 100%.
func (b *Board) Complete(id StageID, details ...string) {
	b.Update(id, StateComplete, 100, details...)
}

// Fail flags the board as failed with a user-facing message. Stage
// states are left as they were.
func (b *Board) Fail(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = true
	b.message = message
}

func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	stages := make([]Stage, len(b.stages))
	for i, st := range b.stages {
		st.Details = slices.Clone(st.Details)
		stages[i] = st
	}
	return Snapshot{Stages: stages, Failed: b.failed, Message: b.message}
}
