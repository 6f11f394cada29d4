package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRoleSummaryStore persists role summaries to a Postgres table,
// grounded on the teacher's chat_store_postgres.go
// CREATE-TABLE-IF-NOT-EXISTS-on-first-use style.
type PostgresRoleSummaryStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRoleSummaryStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresRoleSummaryStore, error) {
	s := &PostgresRoleSummaryStore{pool: pool}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresRoleSummaryStore) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS role_summaries (
			id SERIAL PRIMARY KEY,
			role TEXT NOT NULL,
			symbol TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS role_summaries_role_idx ON role_summaries (role, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("init role_summaries table: %w", err)
	}
	return nil
}

func (s *PostgresRoleSummaryStore) Recent(ctx context.Context, role string, limit int) ([]RoleSummary, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.pool.Query(ctx, `
		SELECT role, symbol, trade_date, summary
		FROM role_summaries
		WHERE role = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, role, limit)
	if err != nil {
		return nil, fmt.Errorf("query role summaries: %w", err)
	}
	defer rows.Close()

	var out []RoleSummary
	for rows.Next() {
		var rs RoleSummary
		if err := rows.Scan(&rs.Role, &rs.Symbol, &rs.TradeDate, &rs.Summary); err != nil {
			return nil, fmt.Errorf("scan role summary: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (s *PostgresRoleSummaryStore) Save(ctx context.Context, rs RoleSummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO role_summaries (role, symbol, trade_date, summary)
		VALUES ($1, $2, $3, $4)
	`, rs.Role, rs.Symbol, rs.TradeDate, rs.Summary)
	if err != nil {
		return fmt.Errorf("insert role summary: %w", err)
	}
	return nil
}
