// Package sinks implements the C8 persistence sinks: best-effort writes
// of prompt logs, eval summaries, decision rows, and persona-memory rows.
// A sink write failure must never alter the decision already computed
// and must never propagate as a fatal error to the caller (spec §4.8) —
// callers log via the returned error and move on. Grounded on the
// teacher's chat_store_postgres.go table-per-concern style.
package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"tradedesk/internal/graph"
	"tradedesk/internal/util"
)

// PromptLogRow is one persona LLM turn (mirrors graph.ConversationLogEntry
// plus run/timing metadata the graph layer itself doesn't track).
type PromptLogRow struct {
	RunID        string
	Symbol       string
	TradeDate    string
	RoleLabel    string
	System       string
	User         string
	TokenEstimate int
	Timestamp    time.Time
}

// EvalSummaryRow is a run-level rollup used for offline eval dashboards.
type EvalSummaryRow struct {
	RunID        string
	Symbol       string
	TradeDate    string
	ModelID      string
	Analysts     []string
	DecisionToken string
	ExecutionMs  int64
	Timestamp    time.Time
}

// DecisionRow is the persisted final decision, one row per run.
type DecisionRow struct {
	RunID              string
	Symbol             string
	TradeDate          string
	DecisionToken      string
	InvestmentPlan     string
	TraderPlan         string
	RiskJudge          string
	Timestamp          time.Time
}

// PersonaMemoryRow is one role's summary written back for future runs,
// the persisted form of what internal/memory.Store.Persist writes.
type PersonaMemoryRow struct {
	RunID     string
	Role      string
	Symbol    string
	TradeDate string
	Summary   string
	Timestamp time.Time
}

// Sink is the full C8 surface. The graph layer carries a Sink in its
// Dependencies but no node writes to it; cmd/tradedeskd writes the
// decision row after a run, and prompt logs, eval summaries and persona
// memory rows are written only by callers that invoke those methods.
type Sink interface {
	WritePromptLog(ctx context.Context, row PromptLogRow) error
	WriteEvalSummary(ctx context.Context, row EvalSummaryRow) error
	WriteDecision(ctx context.Context, row DecisionRow) error
	WritePersonaMemory(ctx context.Context, row PersonaMemoryRow) error
}

// WriteConversationLog persists every turn of a finished run's
// conversation log as prompt-log rows, estimating tokens with
// util.CountTokens since the sink tables track token volume for cost
// dashboards but the graph state doesn't carry token counts itself.
func WriteConversationLog(ctx context.Context, s Sink, runID, symbol, tradeDate string, entries []graph.ConversationLogEntry, now time.Time) error {
	var firstErr error
	for _, e := range entries {
		row := PromptLogRow{
			RunID:         runID,
			Symbol:        symbol,
			TradeDate:     tradeDate,
			RoleLabel:     e.RoleLabel,
			System:        e.System,
			User:          e.User,
			TokenEstimate: util.CountTokens(e.System) + util.CountTokens(e.User),
			Timestamp:     now,
		}
		if err := s.WritePromptLog(ctx, row); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write prompt log for %s: %w", e.RoleLabel, err)
		}
	}
	return firstErr
}

// NoopSink discards every write. Used when no database DSN is
// configured, so post-run persistence calls stay harmless.
type NoopSink struct{}

func (NoopSink) WritePromptLog(context.Context, PromptLogRow) error         { return nil }
func (NoopSink) WriteEvalSummary(context.Context, EvalSummaryRow) error     { return nil }
func (NoopSink) WriteDecision(context.Context, DecisionRow) error           { return nil }
func (NoopSink) WritePersonaMemory(context.Context, PersonaMemoryRow) error { return nil }

// PostgresSink is the production C8 sink.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool) (*PostgresSink, error) {
	s := &PostgresSink{pool: pool}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prompt_logs (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			role_label TEXT NOT NULL,
			system TEXT NOT NULL,
			user_msg TEXT NOT NULL,
			token_estimate INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS eval_summaries (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			symbol TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			model_id TEXT NOT NULL,
			analysts TEXT NOT NULL,
			decision_token TEXT NOT NULL,
			execution_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS decisions (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			symbol TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			decision_token TEXT NOT NULL,
			investment_plan TEXT NOT NULL,
			trader_plan TEXT NOT NULL,
			risk_judge TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS persona_memory_rows (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			role TEXT NOT NULL,
			symbol TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("init sink tables: %w", err)
	}
	return nil
}

func (s *PostgresSink) WritePromptLog(ctx context.Context, row PromptLogRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prompt_logs (run_id, symbol, trade_date, role_label, system, user_msg, token_estimate, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, row.RunID, row.Symbol, row.TradeDate, row.RoleLabel, row.System, row.User, row.TokenEstimate, row.Timestamp)
	if err != nil {
		log.Warn().Err(err).Str("run_id", row.RunID).Msg("prompt log write failed")
		return err
	}
	return nil
}

func (s *PostgresSink) WriteEvalSummary(ctx context.Context, row EvalSummaryRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO eval_summaries (run_id, symbol, trade_date, model_id, analysts, decision_token, execution_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (run_id) DO NOTHING
	`, row.RunID, row.Symbol, row.TradeDate, row.ModelID, joinAnalysts(row.Analysts), row.DecisionToken, row.ExecutionMs, row.Timestamp)
	if err != nil {
		log.Warn().Err(err).Str("run_id", row.RunID).Msg("eval summary write failed")
		return err
	}
	return nil
}

func (s *PostgresSink) WriteDecision(ctx context.Context, row DecisionRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO decisions (run_id, symbol, trade_date, decision_token, investment_plan, trader_plan, risk_judge, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (run_id) DO NOTHING
	`, row.RunID, row.Symbol, row.TradeDate, row.DecisionToken, row.InvestmentPlan, row.TraderPlan, row.RiskJudge, row.Timestamp)
	if err != nil {
		log.Warn().Err(err).Str("run_id", row.RunID).Msg("decision write failed")
		return err
	}
	return nil
}

func (s *PostgresSink) WritePersonaMemory(ctx context.Context, row PersonaMemoryRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO persona_memory_rows (run_id, role, symbol, trade_date, summary, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, row.RunID, row.Role, row.Symbol, row.TradeDate, row.Summary, row.Timestamp)
	if err != nil {
		log.Warn().Err(err).Str("run_id", row.RunID).Msg("persona memory write failed")
		return err
	}
	return nil
}

func joinAnalysts(analysts []string) string {
	out := ""
	for i, a := range analysts {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}
