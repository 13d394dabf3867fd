package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/TobiSchelling/solutionlab/internal/database"
)

// Stage names where a submission failed.
type Stage string

const (
	StageCreate   Stage = "create"
	StageStart    Stage = "start"
	StageGenerate Stage = "generate"
	StagePersist  Stage = "persist"
)

// Error is a failed submission.
type Error struct {
	Stage     Stage
	ProblemID string
	Err       error
}

func (e *Error) Error() string {
	if e.ProblemID == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s problem %s: %v", e.Stage, e.ProblemID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage converts err into a short message fit for display. Details
// stay in the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrEmptyDescription):
		return "Please describe the problem before submitting."
	case errors.Is(err, database.ErrNotAuthenticated):
		return "Please sign in to submit a problem."
	case errors.Is(err, database.ErrNotFound):
		return "Problem not found."
	case errors.Is(err, context.DeadlineExceeded):
		return "Solution generation timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	}

	var pe *Error
	if errors.As(err, &pe) {
		switch pe.Stage {
		case StageCreate, StageStart:
			return "Could not save your problem. Please try again."
		case StageGenerate:
			return "Failed to generate solutions. Please try again later."
		case StagePersist:
			return "Could not save the generated solutions. Please try again."
		}
	}
	return "Something went wrong. Please try again."
}
