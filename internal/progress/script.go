package progress

import (
	"context"
	"time"
)

// Step is one scripted board update followed by a pause.
type Step struct {
	Stage    StageID
	State    State
	Progress int
	Details  []string
	Delay    time.Duration
}

// Script is a timed sequence of board updates.
type Script []Step

// DefaultScript returns the fixed 9.2s animation.
func DefaultScript() Script {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return Script{
		{StageRetrieval, StateActive, 0, []string{"Initializing search parameters..."}, ms(500)},
		{StageRetrieval, StateActive, 25, []string{"Scanning scientific literature..."}, ms(800)},
		{StageRetrieval, StateActive, 50, []string{"Analyzing patent databases..."}, ms(600)},
		{StageRetrieval, StateActive, 75, []string{"Processing recent news and developments..."}, ms(700)},
		{StageRetrieval, StateComplete, 100, []string{"Found 247 relevant sources", "Extracted 156 key insights"}, 0},

		{StageGeneration, StateActive, 0, []string{"Synthesizing retrieved knowledge..."}, ms(600)},
		{StageGeneration, StateActive, 30, []string{"Generating solution concepts..."}, ms(900)},
		{StageGeneration, StateActive, 70, []string{"Refining and diversifying ideas..."}, ms(800)},
		{StageGeneration, StateComplete, 100, []string{"Generated 23 unique solutions", "Categorized by approach type"}, 0},

		{StageEvaluation, StateActive, 0, []string{"Initializing scoring rubrics..."}, ms(400)},
		{StageEvaluation, StateActive, 25, []string{"Assessing technical feasibility..."}, ms(700)},
		{StageEvaluation, StateActive, 50, []string{"Calculating cost implications..."}, ms(600)},
		{StageEvaluation, StateActive, 75, []string{"Evaluating sustainability impact..."}, ms(800)},
		{StageEvaluation, StateComplete, 100, []string{"Scored all solutions", "Applied weighted criteria"}, 0},

		{StageSynthesis, StateActive, 0, []string{"Ranking solutions by overall score..."}, ms(500)},
		{StageSynthesis, StateActive, 40, []string{"Preparing detailed analysis..."}, ms(600)},
		{StageSynthesis, StateActive, 80, []string{"Generating implementation roadmaps..."}, ms(700)},
		{StageSynthesis, StateComplete, 100, []string{"Top 3 solutions identified", "Analysis complete"}, 0},
	}
}

// Duration is the total of all step delays.
func (s Script) Duration() time.Duration {
	var d time.Duration
	for _, step := range s {
		d += step.Delay
	}
	return d
}

// Scaled returns a copy with every delay multiplied by factor.
func (s Script) Scaled(factor float64) Script {
	out := make(Script, len(s))
	for i, step := range s {
		step.Delay = time.Duration(float64(step.Delay) * factor)
		out[i] = step
	}
	return out
}

// Simulate plays script onto board, calling notify with a snapshot after
// each update. It returns ctx.Err() if cancelled before the end.
func Simulate(ctx context.Context, board *Board, script Script, notify func(Snapshot)) error {
	for _, step := range script {
		if err := ctx.Err(); err != nil {
			return err
		}
		board.Update(step.Stage, step.State, step.Progress, step.Details...)
		if notify != nil {
			notify(board.Snapshot())
		}
		if err := sleep(ctx, step.Delay); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
