// Package dashboard turns stored solutions into the ranked, 0-10 scale view
// shown to users.
package dashboard

import (
	"sort"

	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/generate"
)

type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// DisplayScore maps a stored 0-100 score onto the 0-10 display scale.
func DisplayScore(score int) float64 {
	return float64(score) / 10
}

// OverallScore is the mean of the three display scores.
func OverallScore(feasibility, sustainability, innovation int) float64 {
	return float64(feasibility+sustainability+innovation) / 30
}

// BandFor classifies a 0-10 score.
func BandFor(score float64) Band {
	switch {
	case score >= 8:
		return BandHigh
	case score >= 6:
		return BandMedium
	default:
		return BandLow
	}
}

type Card struct {
	Rank            int                `json:"rank"`
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	CostEstimate    string             `json:"costEstimate"`
	AgentType       database.AgentType `json:"agentType"`
	Feasibility     float64            `json:"feasibility"`
	Sustainability  float64            `json:"sustainability"`
	Innovation      float64            `json:"innovation"`
	Overall         float64            `json:"overallScore"`
	Band            Band               `json:"band"`
	ResearchSources []string           `json:"researchSources"`
}

type Summary struct {
	Count          int     `json:"count"`
	BestOverall    float64 `json:"bestOverall"`
	AverageOverall float64 `json:"averageOverall"`
}

type View struct {
	Cards   []Card  `json:"solutions"`
	Summary Summary `json:"summary"`
}

// Build ranks solutions by overall score, highest first. Ties keep the
// input order.
func Build(solutions []database.Solution) View {
	cards := make([]Card, len(solutions))
	for i, s := range solutions {
		overall := OverallScore(s.FeasibilityScore, s.SustainabilityScore, s.InnovationScore)
		cards[i] = Card{
			ID:              s.ID,
			Title:           s.Title,
			Description:     s.Description,
			CostEstimate:    s.CostEstimate,
			AgentType:       s.AgentType,
			Feasibility:     DisplayScore(s.FeasibilityScore),
			Sustainability:  DisplayScore(s.SustainabilityScore),
			Innovation:      DisplayScore(s.InnovationScore),
			Overall:         overall,
			Band:            BandFor(overall),
			ResearchSources: s.ResearchSources,
		}
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Overall > cards[j].Overall
	})

	view := View{Cards: cards, Summary: Summary{Count: len(cards)}}
	if len(cards) == 0 {
		return view
	}
	total := 0.0
	for i := range cards {
		cards[i].Rank = i + 1
		total += cards[i].Overall
	}
	view.Summary.BestOverall = cards[0].Overall
	view.Summary.AverageOverall = total / float64(len(cards))
	return view
}

// SourceLabel names where a set of solutions came from.
func SourceLabel(source generate.Source, provider string) string {
	if source != generate.SourceModel {
		return "Demo Mode"
	}
	switch provider {
	case "gemini":
		return "Gemini AI"
	case "openai":
		return "OpenAI GPT"
	case "ollama":
		return "Ollama"
	default:
		return "AI Model"
	}
}
