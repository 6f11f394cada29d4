// Package graph implements the decision graph (C7): the compiled node/edge
// wiring, the shared state it threads through, and the field-specific
// reducers that let concurrently-authored or revisited nodes compose
// without losing information. Grounded on the node/edge vocabulary of
// other_examples' trading_agents-graph.go.go (a Go LangGraph-style
// StateGraph over map[string]interface{}) and the round-counted debate
// shape of other_examples' debate-types.go.go, but compiled once at
// package init into a plain Go adjacency rather than a runtime-built
// graph object — see DESIGN.md's REDESIGN rationale.
package graph

import "time"

// Context is the input bundle of pre-fetched reports per channel. Missing
// or blank channels mean "not preloaded; fetch via tool" (spec §3).
type Context map[string]string

const (
	ChannelMarketTechnical          = "market_technical_report"
	ChannelSocialReddit             = "social_reddit_summary"
	ChannelNewsCompany              = "news_company"
	ChannelNewsGlobal               = "news_global"
	ChannelFundamentalsSummary      = "fundamentals_summary"
	ChannelNewsReddit                = "news_reddit"
	ChannelMarketPriceHistory        = "market_price_history"
	ChannelFundamentalsBalanceSheet  = "fundamentals_balance_sheet"
	ChannelFundamentalsCashflow      = "fundamentals_cashflow"
	ChannelFundamentalsIncomeStmt    = "fundamentals_income_stmt"
	ChannelFundamentalsInsiderTxns   = "fundamentals_insider_transactions"
)

// AnalystReports holds the per-analyst report text. Each field is set at
// most once per run (I5: omitted entirely from the output Decision when
// the analyst was not enabled).
type AnalystReports struct {
	Market       *string
	News         *string
	Social       *string
	Fundamentals *string
}

// DebateMap is the running state of both debate loops. Per spec §9's
// REDESIGN note, this is a struct with explicit nullable-by-convention
// string fields rather than an open map — unset fields are simply "".
// Investment and Risk hold the cumulative, human-readable transcripts;
// Bull/Bear/Aggressive/Conservative/Neutral hold only the latest turn
// from that persona, used as "last sibling turn" input for later personas
// in the same round.
type DebateMap struct {
	Investment   string
	Bull         string
	Bear         string
	Risk         string
	Aggressive   string
	Conservative string
	Neutral      string
}

// DebateRoundEntry is one investment-debate turn.
type DebateRoundEntry struct {
	Persona   string
	Round     int
	Content   string
	Timestamp time.Time
}

// RiskDebateRoundEntry is one risk-debate turn.
type RiskDebateRoundEntry struct {
	Persona   string
	Round     int
	Content   string
	Timestamp time.Time
}

// ConversationLogEntry is emitted exactly once per LLM turn (I1).
type ConversationLogEntry struct {
	RoleLabel string
	System    string
	User      string
}

// ToolCallLogEntry records one analyst tool invocation (C3), logged once
// per analyst at stage end (Q2: the tool-recording variant).
type ToolCallLogEntry struct {
	Persona       string
	Tool          string
	Args          string
	ResultSummary string
	Timestamp     time.Time
}

// GraphMetadata is the open-ended bookkeeping bag described in spec §3.
type GraphMetadata struct {
	InvestRound          int
	InvestContinue       bool
	RiskRound            int
	RiskContinue         bool
	ManagerMemories      string
	TraderMemories       string
	RiskManagerMemories  string
	ProgressRunID        string
	ModelID              string
	EnabledAnalysts      []string
	DecisionToken        string
	RunStartedAt         time.Time
	RunCompletedAt       int64 // unix millis, zero until nodeFinalize runs
	ExecutionMs          int64
	Payload              *Request
}

// GraphState is the single value every node reads from and patches.
type GraphState struct {
	Context           Context
	Symbol            string
	TradeDate         string
	Reports           AnalystReports
	InvestmentPlan    *string
	TraderPlan        *string
	FinalDecision     *string
	ConversationLog   []ConversationLogEntry
	Debate            DebateMap
	DebateHistory     []DebateRoundEntry
	RiskDebateHistory []RiskDebateRoundEntry
	ToolCalls         []ToolCallLogEntry
	Metadata          GraphMetadata
	Result            *Decision
}

// NewInitialState seeds the state per spec §3: continue-flags true, empty
// collections, and runStartedAt stamped now.
func NewInitialState(symbol, tradeDate string, ctx Context, now time.Time) *GraphState {
	return &GraphState{
		Context:   ctx,
		Symbol:    symbol,
		TradeDate: tradeDate,
		Metadata: GraphMetadata{
			InvestContinue: true,
			RiskContinue:   true,
			RunStartedAt:   now,
		},
	}
}

// Request is the external invocation payload (spec §6).
type Request struct {
	Symbol    string
	TradeDate string
	Context   Context
	ModelID   string
	Analysts  []string
}

// Decision is the canonical verdict, one of BUY/SELL/HOLD/NO DECISION (I4).
const (
	DecisionBuy        = "BUY"
	DecisionSell       = "SELL"
	DecisionHold       = "HOLD"
	DecisionNoDecision = "NO DECISION"
)

// Decision is the output of one run (spec §3 "Decision (output)").
type Decision struct {
	Symbol             string
	TradeDate          string
	DecisionToken      string // decision ∈ {BUY,SELL,HOLD,NO DECISION}
	FinalTradeDecision string // == DecisionToken
	InvestmentPlan     *string
	TraderPlan         *string
	InvestmentJudge    *string // alias of InvestmentPlan, Q4
	RiskJudge          *string // final risk-manager prose
	ModelID            string
	Analysts           []string
	ExecutionMs        *int64

	// Per-analyst reports, included only if that analyst was enabled (I5).
	MarketReport       *string
	NewsReport         *string
	SentimentReport    *string
	FundamentalsReport *string

	InvestmentDebate     string
	BullArgument         *string
	BearArgument         *string
	AggressiveArgument   *string
	ConservativeArgument *string
	NeutralArgument      *string
	RiskDebate           string
}
