package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/auth"
	"github.com/TobiSchelling/solutionlab/internal/config"
	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/generate"
	"github.com/TobiSchelling/solutionlab/internal/pipeline"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string) (*generate.Result, error) {
	return nil, errors.New("upstream exploded")
}

type testEnv struct {
	db       *database.DB
	srv      *Server
	verifier *auth.Verifier
}

func newTestEnv(t *testing.T, gen pipeline.Generator, limits config.RateLimit) *testEnv {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if gen == nil {
		gen = generate.New(nil, nil, generate.Options{FallbackOnError: true}, zap.NewNop())
	}
	verifier, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)

	return &testEnv{
		db:       db,
		srv:      New(db, gen, verifier, limits, zap.NewNop()),
		verifier: verifier,
	}
}

func (e *testEnv) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := e.verifier.Issue(user, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPreflight(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodOptions, "/functions/v1/generate-solutions", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type",
		rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestGenerateSolutionsFallback(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodPost, "/functions/v1/generate-solutions", "",
		gin.H{"problemDescription": "Reduce ocean plastic pollution"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result generate.Result
	decode(t, rec, &result)
	assert.Len(t, result.Solutions, 3)
	assert.Equal(t, generate.SourceFallback, result.Source)
	assert.Equal(t, generate.ReasonNoCredentials, result.FallbackReason)
	assert.NotEmpty(t, result.Note)
	require.NotNil(t, result.LiteratureReview)
}

func TestGenerateSolutionsMissingDescription(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodPost, "/functions/v1/generate-solutions", "", gin.H{})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Problem description is required", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodGet, "/api/problems", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/problems", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIWithoutVerifier(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	srv := New(db, failingGenerator{}, nil, config.RateLimit{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitProblem(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodPost, "/api/problems", "alice",
		gin.H{"description": "Reduce ocean plastic pollution", "category": "environment"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out outcomeResponse
	decode(t, rec, &out)
	assert.Equal(t, database.StatusCompleted, out.Problem.Status)
	require.NotNil(t, out.Problem.Category)
	assert.Equal(t, "environment", *out.Problem.Category)
	assert.Len(t, out.Dashboard.Cards, 3)
	assert.Equal(t, 3, out.Dashboard.Summary.Count)
	assert.Equal(t, generate.SourceFallback, out.Source)
	assert.Equal(t, "Demo Mode", out.SourceLabel)
	assert.NotEmpty(t, out.Note)

	for i := 1; i < len(out.Dashboard.Cards); i++ {
		assert.GreaterOrEqual(t, out.Dashboard.Cards[i-1].Overall, out.Dashboard.Cards[i].Overall)
	}
}

func TestSubmitEmptyDescription(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodPost, "/api/problems", "alice", gin.H{"description": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stats, err := env.db.GetStats(context.Background(), auth.Principal{UserID: "alice"})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalProblems)
}

func TestSubmitGeneratorFailure(t *testing.T) {
	env := newTestEnv(t, failingGenerator{}, config.RateLimit{})
	rec := env.do(t, http.MethodPost, "/api/problems", "alice", gin.H{"description": "Something hard"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Failed to generate solutions. Please try again later.", body["error"])

	stats, err := env.db.GetStats(context.Background(), auth.Principal{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedProblems)
	assert.Zero(t, stats.Solutions)
}

func TestSubmitRateLimited(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{PerMinute: 1, Burst: 1})
	rec := env.do(t, http.MethodPost, "/api/problems", "alice", gin.H{"description": "First"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/problems", "alice", gin.H{"description": "Second"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Limits are per user.
	rec = env.do(t, http.MethodPost, "/api/problems", "bob", gin.H{"description": "Third"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSubmitStream(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/problems",
		strings.NewReader(`{"description":"Reduce ocean plastic pollution"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+env.token(t, "alice"))

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)

	assert.Contains(t, body, "event:progress")
	assert.Contains(t, body, "event:result")
	assert.NotContains(t, body, "event:error")
	assert.Less(t, strings.Index(body, "event:progress"), strings.Index(body, "event:result"))
}

func TestProblemLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodPost, "/api/problems", "alice", gin.H{"description": "Reduce food waste"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created outcomeResponse
	decode(t, rec, &created)
	id := created.Problem.ID

	rec = env.do(t, http.MethodGet, "/api/problems", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Problems []problemResponse `json:"problems"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Problems, 1)
	assert.Equal(t, id, list.Problems[0].ID)

	rec = env.do(t, http.MethodGet, "/api/problems?status=pending", "alice", nil)
	decode(t, rec, &list)
	assert.Empty(t, list.Problems)

	rec = env.do(t, http.MethodGet, "/api/problems?status=bogus", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/problems/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail problemDetailResponse
	decode(t, rec, &detail)
	assert.Len(t, detail.Dashboard.Cards, 3)

	// Another user cannot see or delete it.
	rec = env.do(t, http.MethodGet, "/api/problems/"+id, "mallory", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/problems/"+id, "mallory", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/problems/"+id, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/problems/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReport(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodPost, "/api/problems", "alice", gin.H{"description": "Reduce food waste"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created outcomeResponse
	decode(t, rec, &created)
	path := "/api/problems/" + created.Problem.ID + "/report"

	rec = env.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Reduce food waste"))

	rec = env.do(t, http.MethodGet, path+"?format=html", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h1>Reduce food waste</h1>")

	rec = env.do(t, http.MethodGet, path+"?format=pdf", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})
	rec := env.do(t, http.MethodPost, "/api/problems", "alice", gin.H{"description": "Reduce food waste"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/stats", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats statsResponse
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalProblems)
	assert.Equal(t, 1, stats.CompletedProblems)
	assert.Equal(t, 3, stats.Solutions)
}

func TestUserLimiterDisabled(t *testing.T) {
	l := newUserLimiter(config.RateLimit{})
	for i := 0; i < 10; i++ {
		assert.True(t, l.allow("anyone"))
	}
}

func TestUserLimiterSweepsIdleUsers(t *testing.T) {
	l := newUserLimiter(config.RateLimit{PerMinute: 6, Burst: 2})
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("alice"))
	assert.True(t, l.allow("alice"))
	assert.False(t, l.allow("alice"))
	assert.True(t, l.allow("bob"))
	assert.Equal(t, 2, len(l.limiters))

	// bob stays active; alice goes idle.
	now = now.Add(l.idleTTL / 2)
	assert.True(t, l.allow("bob"))
	now = now.Add(l.idleTTL/2 + time.Second)
	assert.True(t, l.allow("bob"))

	assert.Equal(t, 1, len(l.limiters))
	assert.True(t, l.allow("alice"))
}
