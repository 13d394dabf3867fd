package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/auth"
)

// timeLayout keeps lexical and chronological order identical.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var problemColumns = []string{
	"id", "user_id", "title", "description", "category", "status", "created_at", "updated_at",
}

// allowedFrom lists the statuses a problem may move out of to reach each
// target status through UpdateProblemStatus. Completion goes through
// CompleteProblem so it always lands together with its solutions.
var allowedFrom = map[ProblemStatus][]string{
	StatusProcessing: {string(StatusPending)},
	StatusFailed:     {string(StatusPending), string(StatusProcessing)},
}

// DeriveTitle returns the first MaxTitleLength characters of description,
// suffixed with "..." when truncated.
func DeriveTitle(description string) string {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) <= MaxTitleLength {
		return description
	}
	runes := []rune(description)
	return string(runes[:MaxTitleLength]) + "..."
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func requirePrincipal(p auth.Principal) error {
	if p.IsZero() {
		return ErrNotAuthenticated
	}
	return nil
}

// CreateProblem inserts a pending problem owned by p.
func (db *DB) CreateProblem(ctx context.Context, p auth.Principal, in NewProblem) (*Problem, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, errors.New("create problem: empty description")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = DeriveTitle(description)
	}
	var category *string
	if c := strings.TrimSpace(in.Category); c != "" {
		category = &c
	}

	now := time.Now()
	problem := &Problem{
		ID:          uuid.New().String(),
		UserID:      p.UserID,
		Title:       title,
		Description: description,
		Category:    category,
		Status:      StatusPending,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	query, args, err := sq.Insert("problems").
		Columns(problemColumns...).
		Values(problem.ID, problem.UserID, problem.Title, problem.Description,
			problem.Category, string(problem.Status), formatTime(now), formatTime(now)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting problem: %w", err)
	}

	db.log.Debug("problem created", zap.String("problem_id", problem.ID))
	return problem, nil
}

// GetProblem returns a problem owned by p. Problems of other users are
// reported as ErrNotFound.
func (db *DB) GetProblem(ctx context.Context, p auth.Principal, id string) (*Problem, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	query, args, err := sq.Select(problemColumns...).
		From("problems").
		Where(sq.Eq{"id": id, "user_id": p.UserID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	problem, err := scanProblem(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("problem %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return problem, nil
}

// ListProblems returns problems owned by p, newest first.
func (db *DB) ListProblems(ctx context.Context, p auth.Principal, filter ProblemFilter) ([]Problem, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	b := sq.Select(problemColumns...).
		From("problems").
		Where(sq.Eq{"user_id": p.UserID}).
		OrderBy("created_at DESC", "id DESC")
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, fmt.Errorf("unknown status %q", filter.Status)
		}
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing problems: %w", err)
	}
	defer rows.Close()

	var problems []Problem
	for rows.Next() {
		problem, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, *problem)
	}
	return problems, rows.Err()
}

// UpdateProblemStatus moves a problem to status. Only pending → processing
// and pending|processing → failed are accepted; anything else returns
// ErrInvalidTransition.
func (db *DB) UpdateProblemStatus(ctx context.Context, p auth.Principal, id string, status ProblemStatus) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	from, ok := allowedFrom[status]
	if !ok {
		return fmt.Errorf("set status %q: %w", status, ErrInvalidTransition)
	}

	query, args, err := sq.Update("problems").
		Set("status", string(status)).
		Set("updated_at", formatTime(time.Now())).
		Where(sq.Eq{"id": id, "user_id": p.UserID, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating problem status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	current, err := db.GetProblem(ctx, p, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("problem %s: %s -> %s: %w", id, current.Status, status, ErrInvalidTransition)
}

// DeleteProblem removes a problem and, through the foreign key, its solutions.
func (db *DB) DeleteProblem(ctx context.Context, p auth.Principal, id string) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	query, args, err := sq.Delete("problems").
		Where(sq.Eq{"id": id, "user_id": p.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting problem: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("problem %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*Problem, error) {
	var (
		problem          Problem
		status           string
		created, updated string
	)
	err := row.Scan(&problem.ID, &problem.UserID, &problem.Title, &problem.Description,
		&problem.Category, &status, &created, &updated)
	if err != nil {
		return nil, err
	}
	problem.Status = ProblemStatus(status)
	if problem.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if problem.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &problem, nil
}
