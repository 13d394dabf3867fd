package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/auth"
	"github.com/TobiSchelling/solutionlab/internal/dashboard"
	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/generate"
	"github.com/TobiSchelling/solutionlab/internal/pipeline"
	"github.com/TobiSchelling/solutionlab/internal/progress"
	"github.com/TobiSchelling/solutionlab/internal/report"
)

const generateFailureDetails = "Failed to generate solutions. Please check your API credits or try again later."

func respondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyDescription):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type generateRequest struct {
	ProblemDescription string `json:"problemDescription"`
}

// handleGenerateSolutions is the public generation endpoint. It stores
// nothing.
func (s *Server) handleGenerateSolutions(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.log.Debug("unreadable generate request", zap.Error(err))
	}

	result, err := s.generator.Generate(c.Request.Context(), req.ProblemDescription)
	if err != nil {
		msg := "Failed to generate solutions"
		if errors.Is(err, generate.ErrEmptyDescription) {
			msg = "Problem description is required"
		}
		s.log.Warn("generate-solutions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "details": generateFailureDetails})
		return
	}
	c.JSON(http.StatusOK, result)
}

type submitRequest struct {
	Description string `json:"description"`
	Title       string `json:"title"`
	Category    string `json:"category"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		respondError(c, pipeline.UserMessage(pipeline.ErrEmptyDescription), http.StatusBadRequest)
		return
	}

	p := principal(c)
	preq := pipeline.Request{
		Description: req.Description,
		Title:       req.Title,
		Category:    req.Category,
	}

	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		s.submitStream(c, p, preq)
		return
	}

	outcome, err := s.submitter.Submit(c.Request.Context(), p, preq)
	if err != nil {
		respondError(c, pipeline.UserMessage(err), statusFor(err))
		return
	}
	c.JSON(http.StatusCreated, newOutcomeResponse(outcome))
}

// submitStream runs the submission while streaming board snapshots as
// "progress" events, followed by one "result" or "error" event.
func (s *Server) submitStream(c *gin.Context, p auth.Principal, req pipeline.Request) {
	tracker := progress.NewTracker(progress.NewBoard(), 16)
	req.Observer = tracker

	var (
		outcome *pipeline.Outcome
		err     error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer tracker.Close()
		outcome, err = s.submitter.Submit(c.Request.Context(), p, req)
	}()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		if snap, ok := <-tracker.Updates(); ok {
			c.SSEvent("progress", snap)
			return true
		}
		<-done
		if err != nil {
			c.SSEvent("error", gin.H{"error": pipeline.UserMessage(err)})
			return false
		}
		c.SSEvent("result", newOutcomeResponse(outcome))
		return false
	})
	<-done
}

func (s *Server) handleListProblems(c *gin.Context) {
	var filter database.ProblemFilter
	if v := c.Query("status"); v != "" {
		filter.Status = database.ProblemStatus(v)
		if !filter.Status.Valid() {
			respondError(c, "unknown status", http.StatusBadRequest)
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	problems, err := s.db.ListProblems(c.Request.Context(), principal(c), filter)
	if err != nil {
		s.internalError(c, "listing problems", err)
		return
	}
	out := make([]problemResponse, len(problems))
	for i := range problems {
		out[i] = newProblemResponse(&problems[i])
	}
	c.JSON(http.StatusOK, gin.H{"problems": out})
}

func (s *Server) handleGetProblem(c *gin.Context) {
	problem, view, ok := s.loadProblem(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, problemDetailResponse{
		Problem:   newProblemResponse(problem),
		Dashboard: view,
	})
}

func (s *Server) handleDeleteProblem(c *gin.Context) {
	err := s.db.DeleteProblem(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, "problem not found", http.StatusNotFound)
			return
		}
		s.internalError(c, "deleting problem", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReport(c *gin.Context) {
	format := c.DefaultQuery("format", "markdown")
	if format != "markdown" && format != "html" {
		respondError(c, "format must be markdown or html", http.StatusBadRequest)
		return
	}

	problem, view, ok := s.loadProblem(c)
	if !ok {
		return
	}
	body := report.Markdown(problem, view, nil)

	if format == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(body))
		return
	}
	page, err := report.Page(problem.Title, body)
	if err != nil {
		s.internalError(c, "rendering report", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.db.GetStats(c.Request.Context(), principal(c))
	if err != nil {
		s.internalError(c, "loading stats", err)
		return
	}
	c.JSON(http.StatusOK, newStatsResponse(stats))
}

// loadProblem fetches the problem named by the :id parameter with its
// dashboard view. It writes the error response itself.
func (s *Server) loadProblem(c *gin.Context) (*database.Problem, dashboard.View, bool) {
	ctx := c.Request.Context()
	p := principal(c)

	problem, err := s.db.GetProblem(ctx, p, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, "problem not found", http.StatusNotFound)
		} else {
			s.internalError(c, "loading problem", err)
		}
		return nil, dashboard.View{}, false
	}
	solutions, err := s.db.GetSolutionsForProblem(ctx, p, problem.ID)
	if err != nil {
		s.internalError(c, "loading solutions", err)
		return nil, dashboard.View{}, false
	}
	return problem, dashboard.Build(solutions), true
}

func (s *Server) internalError(c *gin.Context, what string, err error) {
	s.log.Error(what, zap.String("path", c.Request.URL.Path), zap.Error(err))
	respondError(c, "internal server error", http.StatusInternalServerError)
}
