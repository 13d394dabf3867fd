package server

import (
	"time"

	"github.com/TobiSchelling/solutionlab/internal/dashboard"
	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/generate"
	"github.com/TobiSchelling/solutionlab/internal/pipeline"
)

type problemResponse struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    *string                `json:"category,omitempty"`
	Status      database.ProblemStatus `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

func newProblemResponse(p *database.Problem) problemResponse {
	return problemResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type problemDetailResponse struct {
	Problem   problemResponse `json:"problem"`
	Dashboard dashboard.View  `json:"dashboard"`
}

type outcomeResponse struct {
	Problem          problemResponse            `json:"problem"`
	Dashboard        dashboard.View             `json:"dashboard"`
	LiteratureReview *generate.LiteratureReview `json:"literatureReview,omitempty"`
	Source           generate.Source            `json:"source"`
	SourceLabel      string                     `json:"sourceLabel"`
	FallbackReason   generate.FallbackReason    `json:"fallbackReason,omitempty"`
	Note             string                     `json:"note,omitempty"`
}

func newOutcomeResponse(o *pipeline.Outcome) outcomeResponse {
	return outcomeResponse{
		Problem:          newProblemResponse(o.Problem),
		Dashboard:        dashboard.Build(o.Solutions),
		LiteratureReview: o.LiteratureReview,
		Source:           o.Source,
		SourceLabel:      dashboard.SourceLabel(o.Source, o.Provider),
		FallbackReason:   o.FallbackReason,
		Note:             o.Note,
	}
}

type statsResponse struct {
	TotalProblems      int `json:"totalProblems"`
	PendingProblems    int `json:"pendingProblems"`
	ProcessingProblems int `json:"processingProblems"`
	CompletedProblems  int `json:"completedProblems"`
	FailedProblems     int `json:"failedProblems"`
	Solutions          int `json:"solutions"`
}

func newStatsResponse(s *database.Stats) statsResponse {
	return statsResponse(*s)
}
