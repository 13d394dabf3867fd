package pipeline

// Milestone marks real progress through a submission.
type Milestone string

const (
	MilestoneProblemCreated     Milestone = "problem_created"
	MilestoneProcessing         Milestone = "processing"
	MilestoneUpstreamCalled     Milestone = "upstream_called"
	MilestoneSolutionsGenerated Milestone = "solutions_generated"
	MilestoneSolutionsPersisted Milestone = "solutions_persisted"
	MilestoneCompleted          Milestone = "completed"
	MilestoneFailed             Milestone = "failed"
)

type Event struct {
	Milestone Milestone
	ProblemID string
	Detail    string
}

// Observer receives pipeline milestones. Observe must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
