package generate

import (
	"strings"

	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/literature"
)

// DemoNote accompanies every fallback result.
const DemoNote = "Demo solutions generated - OpenAI API unavailable. Please add credits to your OpenAI account for AI-powered solutions."

const fallbackFindings = "Research indicates that multi-modal approaches combining technology, social innovation, and biological systems yield the highest success rates for complex problem solving. Current trends show increasing emphasis on sustainability and stakeholder collaboration."

func fallbackProposals() []Proposal {
	return []Proposal{
		{
			Title:               "AI-Powered Analysis Solution",
			Description:         "Leverage artificial intelligence and machine learning algorithms to analyze the problem systematically. This approach uses data-driven insights to identify patterns and propose evidence-based solutions.",
			FeasibilityScore:    85,
			CostEstimate:        "$500K - $1M initial investment",
			SustainabilityScore: 90,
			InnovationScore:     88,
			AgentType:           database.AgentTechnology,
			ResearchSources:     []string{"IEEE AI Research Papers", "MIT Technology Review", "Nature Machine Intelligence"},
		},
		{
			Title:               "Collaborative Platform Approach",
			Description:         "Create a multi-stakeholder platform that brings together experts, communities, and resources. This solution focuses on building sustainable partnerships and knowledge sharing networks.",
			FeasibilityScore:    78,
			CostEstimate:        "$200K - $500K initial investment",
			SustainabilityScore: 95,
			InnovationScore:     75,
			AgentType:           database.AgentSocialInnovation,
			ResearchSources:     []string{"Harvard Business Review", "Stanford Social Innovation Review", "McKinsey Quarterly"},
		},
		{
			Title:               "Biotechnology Integration Solution",
			Description:         "Apply cutting-edge biotechnology and bioengineering principles to address the core challenges. This solution combines biological systems with technological innovation for sustainable outcomes.",
			FeasibilityScore:    72,
			CostEstimate:        "$1M - $3M initial investment",
			SustainabilityScore: 92,
			InnovationScore:     94,
			AgentType:           database.AgentBiotechnology,
			ResearchSources:     []string{"Nature Biotechnology", "Cell", "Science Translational Medicine"},
		},
	}
}

// Fallback returns the fixed demo result for description. items, when
// present, are appended to the research sources.
func Fallback(description string, reason FallbackReason, items []literature.Item) *Result {
	words := strings.Fields(description)
	if len(words) > 3 {
		words = words[:3]
	}

	review := &LiteratureReview{
		SearchTerms: []string{
			"innovation",
			"technology solutions",
			"sustainable development",
			"AI applications",
			strings.Join(words, " "),
		},
		KeyFindings: fallbackFindings,
		ResearchSources: []string{
			"MIT Technology Review - Innovation Trends 2024",
			"Nature - Sustainable Technology Solutions",
			"Harvard Business Review - Collaborative Innovation",
			"IEEE Spectrum - AI Applications",
			"Science - Biotechnology Advances",
			"McKinsey Global Institute - Technology Impact",
			"Stanford Research - Social Innovation",
			"Cell Press - Bioengineering Solutions",
		},
	}
	review.ResearchSources = appendCitations(review.ResearchSources, items)

	return &Result{
		Solutions:        fallbackProposals(),
		LiteratureReview: review,
		Source:           SourceFallback,
		FallbackReason:   reason,
		Note:             DemoNote,
	}
}

func appendCitations(sources []string, items []literature.Item) []string {
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		seen[s] = struct{}{}
	}
	for _, item := range items {
		c := item.Citation()
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		sources = append(sources, c)
	}
	return sources
}
