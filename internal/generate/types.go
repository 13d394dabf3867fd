package generate

import (
	"errors"

	"github.com/TobiSchelling/solutionlab/internal/database"
)

var (
	ErrEmptyDescription = errors.New("problem description is required")
	// ErrInvalidResponse marks model output that does not hold three usable solutions.
	ErrInvalidResponse = errors.New("invalid model response")
)

// Source tells whether solutions came from a model or the built-in set.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// FallbackReason explains why the built-in set was used.
type FallbackReason string

const (
	ReasonNoCredentials   FallbackReason = "no_credentials"
	ReasonRateLimited     FallbackReason = "rate_limited"
	ReasonUpstreamError   FallbackReason = "upstream_error"
	ReasonInvalidResponse FallbackReason = "invalid_response"
)

// Proposal is a generated solution before it is stored.
type Proposal struct {
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	FeasibilityScore    int                `json:"feasibilityScore"`
	CostEstimate        string             `json:"costEstimate"`
	SustainabilityScore int                `json:"sustainabilityScore"`
	InnovationScore     int                `json:"innovationScore"`
	AgentType           database.AgentType `json:"agentType"`
	ResearchSources     []string           `json:"researchSources,omitempty"`
}

// Input converts the proposal into a database row.
func (p Proposal) Input() database.SolutionInput {
	return database.SolutionInput{
		Title:               p.Title,
		Description:         p.Description,
		FeasibilityScore:    p.FeasibilityScore,
		CostEstimate:        p.CostEstimate,
		SustainabilityScore: p.SustainabilityScore,
		InnovationScore:     p.InnovationScore,
		AgentType:           p.AgentType,
		ResearchSources:     p.ResearchSources,
	}
}

type LiteratureReview struct {
	SearchTerms     []string `json:"searchTerms"`
	KeyFindings     string   `json:"keyFindings"`
	ResearchSources []string `json:"researchSources"`
}

// Result is the outcome of one generation call.
type Result struct {
	Solutions        []Proposal        `json:"solutions"`
	LiteratureReview *LiteratureReview `json:"literatureReview,omitempty"`
	Source           Source            `json:"source"`
	FallbackReason   FallbackReason    `json:"fallbackReason,omitempty"`
	Note             string            `json:"note,omitempty"`
	Provider         string            `json:"provider,omitempty"`
}

func (r *Result) IsFallback() bool {
	return r.Source == SourceFallback
}

// Inputs converts every proposal into a database row.
func (r *Result) Inputs() []database.SolutionInput {
	inputs := make([]database.SolutionInput, len(r.Solutions))
	for i, p := range r.Solutions {
		inputs[i] = p.Input()
	}
	return inputs
}
