package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/llm"
)

// score accepts a JSON number or a numeric string such as "85" or "85%".
type score float64

func (s *score) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = score(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%"))
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("score %q: %w", str, err)
	}
	*s = score(f)
	return nil
}

// clamp rounds to an integer in [1,100].
func (s score) clamp() int {
	v := int(math.Round(float64(s)))
	return max(1, min(100, v))
}

// sourceList accepts strings or objects carrying a title or name.
type sourceList []string

func (l *sourceList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var single string
		if json.Unmarshal(data, &single) == nil {
			*l = sourceList{single}
			return nil
		}
		return err
	}
	out := make(sourceList, 0, len(raw))
	for _, r := range raw {
		var s string
		if json.Unmarshal(r, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			Title string `json:"title"`
			Name  string `json:"name"`
		}
		if json.Unmarshal(r, &obj) == nil {
			if t := strings.TrimSpace(obj.Title + obj.Name); t != "" {
				out = append(out, t)
			}
		}
	}
	*l = out
	return nil
}

type rawProposal struct {
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	FeasibilityScore    score      `json:"feasibilityScore"`
	CostEstimate        string     `json:"costEstimate"`
	SustainabilityScore score      `json:"sustainabilityScore"`
	InnovationScore     score      `json:"innovationScore"`
	AgentType           string     `json:"agentType"`
	ResearchSources     sourceList `json:"researchSources"`
}

type rawReview struct {
	SearchTerms     sourceList `json:"searchTerms"`
	KeyFindings     string     `json:"keyFindings"`
	ResearchSources sourceList `json:"researchSources"`
}

// ParseResponse extracts exactly three proposals from model output. It
// accepts a bare array or an object with a "solutions" key; extra
// solutions are dropped.
func ParseResponse(text string) ([]Proposal, *LiteratureReview, error) {
	var raw json.RawMessage
	if err := llm.DecodeJSON(text, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var (
		items  []rawProposal
		review *rawReview
	)
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	} else {
		var wrapped struct {
			Solutions        []rawProposal `json:"solutions"`
			LiteratureReview *rawReview    `json:"literatureReview"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		items, review = wrapped.Solutions, wrapped.LiteratureReview
	}

	if len(items) == 0 {
		return nil, nil, fmt.Errorf("%w: no solutions", ErrInvalidResponse)
	}
	if len(items) < database.SolutionsPerProblem {
		return nil, nil, fmt.Errorf("%w: got %d solutions, want %d", ErrInvalidResponse, len(items), database.SolutionsPerProblem)
	}
	items = items[:database.SolutionsPerProblem]

	proposals := make([]Proposal, len(items))
	for i, item := range items {
		p, err := item.proposal()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: solution %d: %v", ErrInvalidResponse, i+1, err)
		}
		proposals[i] = p
	}

	var lr *LiteratureReview
	if review != nil {
		lr = &LiteratureReview{
			SearchTerms:     []string(review.SearchTerms),
			KeyFindings:     strings.TrimSpace(review.KeyFindings),
			ResearchSources: []string(review.ResearchSources),
		}
	}
	return proposals, lr, nil
}

func (r rawProposal) proposal() (Proposal, error) {
	p := Proposal{
		Title:               strings.TrimSpace(r.Title),
		Description:         strings.TrimSpace(r.Description),
		FeasibilityScore:    r.FeasibilityScore.clamp(),
		CostEstimate:        strings.TrimSpace(r.CostEstimate),
		SustainabilityScore: r.SustainabilityScore.clamp(),
		InnovationScore:     r.InnovationScore.clamp(),
		AgentType:           NormalizeAgentType(r.AgentType),
		ResearchSources:     []string(r.ResearchSources),
	}
	switch {
	case p.Title == "":
		return Proposal{}, fmt.Errorf("missing title")
	case p.Description == "":
		return Proposal{}, fmt.Errorf("missing description")
	case p.CostEstimate == "":
		return Proposal{}, fmt.Errorf("missing cost estimate")
	}
	return p, nil
}

// NormalizeAgentType maps free-form agent labels onto the accepted set,
// e.g. "Social Innovation" -> social_innovation. Unknown labels become
// technology.
func NormalizeAgentType(s string) database.AgentType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if t := database.AgentType(s); t.Valid() {
		return t
	}
	return database.AgentTechnology
}
