package database

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/TobiSchelling/solutionlab/internal/auth"
)

// GetStats returns aggregate counts for the problems and solutions owned by p.
func (db *DB) GetStats(ctx context.Context, p auth.Principal) (*Stats, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	s := &Stats{}

	query, args, err := sq.Select("status", "COUNT(*)").
		From("problems").
		Where(sq.Eq{"user_id": p.UserID}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building stats query: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting problems: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		s.TotalProblems += n
		switch ProblemStatus(status) {
		case StatusPending:
			s.PendingProblems = n
		case StatusProcessing:
			s.ProcessingProblems = n
		case StatusCompleted:
			s.CompletedProblems = n
		case StatusFailed:
			s.FailedProblems = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query, args, err = sq.Select("COUNT(*)").
		From("solutions").
		Where(sq.Eq{"user_id": p.UserID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building stats query: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&s.Solutions); err != nil {
		return nil, fmt.Errorf("counting solutions: %w", err)
	}

	return s, nil
}
