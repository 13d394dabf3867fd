package progress

import (
	"fmt"
	"sync"

	"github.com/TobiSchelling/solutionlab/internal/pipeline"
)

var _ pipeline.Observer = (*Tracker)(nil)

// Tracker drives a Board from pipeline milestones and publishes a snapshot
// after every change.
type Tracker struct {
	board   *Board
	mu      sync.Mutex
	updates chan Snapshot
	closed  bool
}

// NewTracker creates a tracker with room for buffer pending snapshots.
// When the consumer falls behind, the oldest pending snapshot is dropped.
func NewTracker(board *Board, buffer int) *Tracker {
	if buffer < 1 {
		buffer = 1
	}
	return &Tracker{board: board, updates: make(chan Snapshot, buffer)}
}

// Updates is closed by Close.
func (t *Tracker) Updates() <-chan Snapshot {
	return t.updates
}

func (t *Tracker) Board() *Board {
	return t.board
}

// Observe maps a milestone onto stage transitions.
func (t *Tracker) Observe(e pipeline.Event) {
	b := t.board
	switch e.Milestone {
	case pipeline.MilestoneProblemCreated:
		b.Update(StageRetrieval, StateActive, 25, "Problem recorded", "Scanning scientific literature...")
	case pipeline.MilestoneProcessing:
		b.Update(StageRetrieval, StateActive, 50, "Processing recent news and developments...")
	case pipeline.MilestoneUpstreamCalled:
		b.Complete(StageRetrieval, "Search context prepared")
		b.Update(StageGeneration, StateActive, 30, "Generating solution concepts...")
	case pipeline.MilestoneSolutionsGenerated:
		b.Complete(StageGeneration, fmt.Sprintf("Generated solutions (%s)", e.Detail))
		b.Complete(StageEvaluation, "Scored all solutions")
		b.Update(StageSynthesis, StateActive, 40, "Preparing detailed analysis...")
	case pipeline.MilestoneSolutionsPersisted:
		b.Update(StageSynthesis, StateActive, 80, "Saving ranked solutions...")
	case pipeline.MilestoneCompleted:
		for _, id := range []StageID{StageRetrieval, StageGeneration, StageEvaluation} {
			b.Update(id, StateComplete, 100)
		}
		b.Complete(StageSynthesis, "Top 3 solutions identified", "Analysis complete")
	case pipeline.MilestoneFailed:
		b.Fail(e.Detail)
	default:
		return
	}
	t.publish(b.Snapshot())
}

func (t *Tracker) publish(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.updates <- s:
		return
	default:
	}
	// Full: drop the oldest pending snapshot.
	select {
	case <-t.updates:
	default:
	}
	select {
	case t.updates <- s:
	default:
	}
}

// Close stops publishing and closes Updates. It is safe to call twice.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.updates)
}
