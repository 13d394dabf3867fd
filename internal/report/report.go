// Package report renders a problem and its ranked solutions as Markdown or
// a standalone HTML page.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/solutionlab/internal/dashboard"
	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/generate"
)

//go:embed report.html
var pageHTML string

var (
	md   = goldmark.New(goldmark.WithExtensions(extension.Table))
	page = template.Must(template.New("report").Parse(pageHTML))
)

var agentLabels = map[database.AgentType]string{
	database.AgentTechnology:       "Technology",
	database.AgentBiotechnology:    "Biotechnology",
	database.AgentSocialInnovation: "Social Innovation",
	database.AgentPolicy:           "Policy",
	database.AgentBusinessModel:    "Business Model",
}

// AgentLabel returns the display name for an agent type.
func AgentLabel(a database.AgentType) string {
	if l, ok := agentLabels[a]; ok {
		return l
	}
	return string(a)
}

// Markdown composes the report body. review may be nil.
func Markdown(problem *database.Problem, view dashboard.View, review *generate.LiteratureReview) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", problem.Title)
	fmt.Fprintf(&b, "%s\n\n", problem.Description)
	if problem.Category != nil && *problem.Category != "" {
		fmt.Fprintf(&b, "**Category:** %s\n\n", *problem.Category)
	}
	fmt.Fprintf(&b, "**Status:** %s\n\n", problem.Status)

	if view.Summary.Count == 0 {
		b.WriteString("_No solutions yet._\n")
		return b.String()
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Solutions | Highest score | Average score |\n")
	b.WriteString("|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %.1f/10 | %.1f/10 |\n\n",
		view.Summary.Count, view.Summary.BestOverall, view.Summary.AverageOverall)

	for _, c := range view.Cards {
		fmt.Fprintf(&b, "## %d. %s\n\n", c.Rank, c.Title)
		fmt.Fprintf(&b, "_%s_ · overall %.1f/10\n\n", AgentLabel(c.AgentType), c.Overall)
		fmt.Fprintf(&b, "%s\n\n", c.Description)
		b.WriteString("| Feasibility | Sustainability | Innovation | Cost |\n")
		b.WriteString("|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %.1f | %.1f | %.1f | %s |\n\n",
			c.Feasibility, c.Sustainability, c.Innovation, escapeCell(c.CostEstimate))
		if len(c.ResearchSources) > 0 {
			b.WriteString("**Sources:**\n")
			for _, s := range c.ResearchSources {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
	}

	if review != nil {
		writeReview(&b, review)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeReview(b *strings.Builder, review *generate.LiteratureReview) {
	b.WriteString("---\n\n## Literature Review\n\n")
	if review.KeyFindings != "" {
		fmt.Fprintf(b, "### Key Research Insights\n\n%s\n\n", review.KeyFindings)
	}
	if len(review.SearchTerms) > 0 {
		fmt.Fprintf(b, "### Search Terms Used\n\n%s\n\n", strings.Join(review.SearchTerms, ", "))
	}
	if len(review.ResearchSources) > 0 {
		b.WriteString("### Research Sources Analyzed\n\n")
		for _, s := range review.ResearchSources {
			fmt.Fprintf(b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
}

// HTML converts report Markdown into an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// Page renders report Markdown as a complete HTML document.
func Page(title, markdown string) ([]byte, error) {
	body, err := HTML(markdown)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = page.Execute(&buf, map[string]any{
		"Title": title,
		"Body":  template.HTML(body), //nolint: gosec
	})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
