package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/solutionlab/internal/dashboard"
	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/report"
)

// --- problems command ---

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "Browse submitted problems",
}

var (
	listStatus string
	listLimit  int
	showFormat string
)

var problemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List problems, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		problems, err := db.ListProblems(cmd.Context(), cliPrincipal(), database.ProblemFilter{
			Status: database.ProblemStatus(listStatus),
			Limit:  listLimit,
		})
		if err != nil {
			return err
		}

		if len(problems) == 0 {
			fmt.Println("No problems yet. Submit one with: solutionlab submit \"<description>\"")
			return nil
		}

		for _, p := range problems {
			fmt.Printf("  %s  %-10s  %s  %s\n", p.ID, p.Status, p.CreatedAt.Local().Format("2006-01-02 15:04"), p.Title)
		}
		return nil
	},
}

var problemsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a problem and its ranked solutions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if showFormat != "markdown" && showFormat != "html" {
			return fmt.Errorf("unknown format %q (want markdown or html)", showFormat)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		problem, err := db.GetProblem(ctx, cliPrincipal(), args[0])
		if err != nil {
			return err
		}
		solutions, err := db.GetSolutionsForProblem(ctx, cliPrincipal(), problem.ID)
		if err != nil {
			return err
		}

		body := report.Markdown(problem, dashboard.Build(solutions), nil)
		if showFormat == "markdown" {
			fmt.Print(body)
			return nil
		}
		page, err := report.Page(problem.Title, body)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(page)
		return err
	},
}

var problemsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a problem and its solutions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteProblem(cmd.Context(), cliPrincipal(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted problem %s\n", args[0])
		return nil
	},
}

func init() {
	problemsListCmd.Flags().StringVar(&listStatus, "status", "", "Only show problems with this status")
	problemsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum number of problems")
	problemsShowCmd.Flags().StringVarP(&showFormat, "format", "f", "markdown", "Output format: markdown or html")

	problemsCmd.AddCommand(problemsListCmd)
	problemsCmd.AddCommand(problemsShowCmd)
	problemsCmd.AddCommand(problemsDeleteCmd)
}
