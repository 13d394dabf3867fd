package generate

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/solutionlab/internal/literature"
)

const systemPrompt = "You are an expert innovation consultant. Always respond with valid JSON containing exactly 3 solution objects with the specified structure."

const solutionPrompt = `You are an expert innovation consultant with access to extensive research databases, academic literature, and industry reports.

Problem: %s
%s
Based on your analysis of relevant research literature, academic papers, industry reports, and emerging technology trends, generate exactly 3 innovative solutions.

For each solution, provide:
1. A clear, compelling title (max 50 characters)
2. A detailed description (2-3 sentences explaining the approach and implementation)
3. A feasibility score (1-100, considering current technology and resources)
4. A cost estimate (realistic budget needed, e.g., "2.5M initial investment")
5. A sustainability score (1-100, environmental and long-term viability)
6. An innovation score (1-100, how novel and creative the approach is)
7. An agent type (choose from: "technology", "biotechnology", "social_innovation", "policy", "business_model")
8. Key research sources (3-5 relevant academic papers, reports, or studies that informed this solution)

Focus on solutions that are:
- Innovative yet practical
- Scalable and impactful
- Based on current or emerging technologies
- Addressing root causes, not just symptoms
- Grounded in recent research and evidence

Return your response as a valid JSON object with this structure:
{
  "solutions": [
    {
      "title": "...",
      "description": "...",
      "feasibilityScore": 0,
      "costEstimate": "...",
      "sustainabilityScore": 0,
      "innovationScore": 0,
      "agentType": "technology",
      "researchSources": ["..."]
    }
  ],
  "literatureReview": {
    "searchTerms": [relevant search terms used],
    "keyFindings": "summary of key research insights",
    "researchSources": [list of 8-12 relevant academic/industry sources]
  }
}`

// BuildPrompt renders the user prompt for description, listing recent
// literature when there is any.
func BuildPrompt(description string, items []literature.Item) string {
	return fmt.Sprintf(solutionPrompt, description, formatLiterature(items))
}

func formatLiterature(items []literature.Item) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nRecent publications related to this problem:\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item.Citation())
		if !item.Published.IsZero() {
			b.WriteString(" (")
			b.WriteString(item.Published.Format("2006-01-02"))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}
