// Package analysts implements the analyst sub-graph (C3, spec §5):
// sequential Market → News → Social → Fundamentals execution over
// whichever analysts are enabled for the run, with per-analyst tool-call
// recording and fail-soft partial reports — one analyst's error leaves
// that analyst's report out rather than aborting the run. Grounded on the
// teacher's sequential-stage-with-partial-failure pattern in the old
// ReAct engine's tool-loop, adapted from a single agent's tool loop to
// four independent single-shot persona calls.
package analysts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tradedesk/internal/graph"
	"tradedesk/internal/llm"
	"tradedesk/internal/personas"
)

// Name identifies one analyst channel, matching the enabled-analysts
// set accepted on Request (spec §3, §6).
const (
	Market       = "market"
	News         = "news"
	Social       = "social"
	Fundamentals = "fundamentals"
)

// AllNames is the canonical execution order (spec §5: "Market → News →
// Social → Fundamentals").
var AllNames = []string{Market, News, Social, Fundamentals}

// Result is one analyst's outcome: either a report or a recorded error.
type Result struct {
	Name       string
	Report     string
	ToolCall   graph.ToolCallLogEntry
	LogEntry   graph.ConversationLogEntry
	Err        error
}

// Run executes every name in enabled (filtered to AllNames' order, so
// an arbitrary input ordering doesn't change execution order) against
// model, sequentially, returning one Result per analyst that ran.
// An individual analyst error never aborts the remaining analysts (fail-
// soft, spec §5); its Result.Err is set and Report is empty so the
// caller can omit it from AnalystReports per I5.
func Run(ctx context.Context, model llm.ChatModel, symbol, tradeDate string, gctx graph.Context, enabled []string) []Result {
	enabledSet := make(map[string]bool, len(enabled))
	for _, n := range enabled {
		enabledSet[n] = true
	}

	var results []Result
	for _, name := range AllNames {
		if !enabledSet[name] {
			continue
		}
		results = append(results, runOne(ctx, model, symbol, tradeDate, gctx, name))
	}
	return results
}

func runOne(ctx context.Context, model llm.ChatModel, symbol, tradeDate string, gctx graph.Context, name string) Result {
	system, user, tool := buildPrompt(symbol, tradeDate, gctx, name)

	report, err := personas.Runner(ctx, model, system, user)
	now := time.Now()
	if err != nil {
		log.Warn().Err(err).Str("analyst", name).Str("symbol", symbol).Msg("analyst report failed, continuing with partial reports")
		return Result{
			Name: name,
			Err:  fmt.Errorf("%s analyst: %w", name, err),
			ToolCall: graph.ToolCallLogEntry{
				Persona: name, Tool: tool, Args: user, ResultSummary: "error: " + err.Error(), Timestamp: now,
			},
		}
	}
	return Result{
		Name:   name,
		Report: report,
		ToolCall: graph.ToolCallLogEntry{
			Persona: name, Tool: tool, Args: user, ResultSummary: summarize(report), Timestamp: now,
		},
		LogEntry: graph.ConversationLogEntry{RoleLabel: name + "_analyst", System: system, User: user},
	}
}

func buildPrompt(symbol, tradeDate string, gctx graph.Context, name string) (system, user, tool string) {
	switch name {
	case Market:
		tool = "fetch_market_data"
		return personas.SystemPrompt(personas.MarketAnalyst),
			personas.MarketAnalystMessage(symbol, tradeDate, gctx[graph.ChannelMarketPriceHistory], gctx[graph.ChannelMarketTechnical], tool),
			tool
	case News:
		tool = "fetch_news"
		return personas.SystemPrompt(personas.NewsAnalyst),
			personas.NewsAnalystMessage(symbol, tradeDate, gctx[graph.ChannelNewsCompany], gctx[graph.ChannelNewsGlobal], tool),
			tool
	case Social:
		tool = "fetch_social_sentiment"
		return personas.SystemPrompt(personas.SocialAnalyst),
			personas.SocialAnalystMessage(symbol, tradeDate, gctx[graph.ChannelSocialReddit], gctx[graph.ChannelNewsReddit], tool),
			tool
	case Fundamentals:
		tool = "fetch_fundamentals"
		return personas.SystemPrompt(personas.FundamentalsAnalyst),
			personas.FundamentalsAnalystMessage(symbol, tradeDate,
				gctx[graph.ChannelFundamentalsSummary], gctx[graph.ChannelFundamentalsBalanceSheet],
				gctx[graph.ChannelFundamentalsCashflow], gctx[graph.ChannelFundamentalsIncomeStmt],
				gctx[graph.ChannelFundamentalsInsiderTxns], tool),
			tool
	default:
		return "", "", ""
	}
}

func summarize(report string) string {
	const max = 200
	if len(report) <= max {
		return report
	}
	return report[:max] + "..."
}

// ApplyTo folds a Result into a Patch's AnalystReports and appends its
// tool-call and conversation-log entries. Errored analysts contribute
// only the tool-call entry (the failure trail), never a Reports field
// or a conversation-log entry, keeping the omit-on-failure rule (I5)
// intact without the graph layer needing to know each analyst's field.
func ApplyTo(patch *graph.Patch, r Result) {
	patch.ToolCalls = append(patch.ToolCalls, r.ToolCall)
	if r.Err != nil {
		return
	}
	patch.ConversationLog = append(patch.ConversationLog, r.LogEntry)
	report := r.Report
	switch r.Name {
	case Market:
		patch.Reports.Market = &report
	case News:
		patch.Reports.News = &report
	case Social:
		patch.Reports.Social = &report
	case Fundamentals:
		patch.Reports.Fundamentals = &report
	}
}
