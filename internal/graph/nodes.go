package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tradedesk/internal/analysts"
	"tradedesk/internal/decision"
	"tradedesk/internal/llm"
	"tradedesk/internal/memory"
	"tradedesk/internal/personas"
	"tradedesk/internal/persistence/sinks"
	"tradedesk/internal/progress"
)

// Dependencies bundles everything a node needs beyond the state itself:
// the resolved chat model for persona calls, an optional dedicated
// extractor model for the decision token (spec §4.6 calls this out as a
// distinct temp-0 call; nil falls back to the deterministic regex pass
// only), the memory store, the persistence sink, and the progress
// publisher. One Dependencies value is shared read-only across a run;
// nothing here is mutated by a node.
type Dependencies struct {
	Model          llm.ChatModel
	ExtractorModel llm.ChatModel
	Memory         memory.Store
	Sink           sinks.Sink
	Progress       progress.Publisher
	RunID          string

	InvestDebateRounds int
	RiskDebateRounds   int
}

func nodeLoadMemories(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	progress.Emit(deps.Progress, deps.RunID, progress.StageQueued, "Loading prior lessons", state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())

	queries := map[string]string{
		"research_manager": state.Symbol,
		"trader":            state.Symbol,
		"risk_manager":      state.Symbol,
	}
	loaded, err := deps.Memory.LoadAll(ctx, state.Symbol, state.TradeDate, queries)
	if err != nil {
		return Patch{}, fmt.Errorf("load memories: %w", err)
	}
	return Patch{Metadata: &MetadataPatch{
		ManagerMemories:     strPtr(loaded["research_manager"]),
		TraderMemories:      strPtr(loaded["trader"]),
		RiskManagerMemories: strPtr(loaded["risk_manager"]),
	}}, nil
}

func nodeAnalysts(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	progress.Emit(deps.Progress, deps.RunID, progress.StageAnalysts, "Running analysts", state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())

	results := analysts.Run(ctx, deps.Model, state.Symbol, state.TradeDate, state.Context, state.Metadata.EnabledAnalysts)
	var patch Patch
	for _, r := range results {
		analysts.ApplyTo(&patch, r)
	}
	return patch, nil
}

// nodeBear runs first in each investment-debate cycle (spec §4.4 edge
// Analysts→Bear→Bull). It computes this cycle's round number the same
// way nodeBull will a moment later, but leaves the commit of that round
// to Metadata to nodeBull, which is the cycle's final node and therefore
// the one that decides whether to loop.
func nodeBear(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	round := state.Metadata.InvestRound + 1
	if round == 1 {
		progress.Emit(deps.Progress, deps.RunID, progress.StageInvestmentDebate, "Bull and bear debating", state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())
	}
	reflections, err := deps.Memory.Reflect(ctx, "bear", buildSituationSummary(state))
	if err != nil {
		log.Warn().Err(err).Str("symbol", state.Symbol).Msg("bear reflection lookup failed, continuing without it")
		reflections = ""
	}
	system := personas.SystemPrompt(personas.BearResearcher)
	user := personas.BearMessage(state.Symbol, reportsMap(state.Reports), state.Debate.Investment, state.Debate.Bull, reflections)
	turn, err := personas.Runner(ctx, deps.Model, system, user)
	if err != nil {
		return Patch{}, fmt.Errorf("bear researcher: %w", err)
	}
	return Patch{
		ConversationLog: []ConversationLogEntry{{RoleLabel: "bear_researcher", System: system, User: user}},
		DebateHistory:   []DebateRoundEntry{{Persona: "bear", Round: round, Content: turn, Timestamp: time.Now()}},
		Debate:          &DebatePatch{Bear: &turn, Investment: strPtr(appendTranscript(state.Debate.Investment, "Bear", turn))},
	}, nil
}

// nodeBull runs second in each investment-debate cycle and is the one
// that commits invest_round and decides whether the debate continues
// (spec §4.4: round bookkeeping lives at the cycle's final node).
func nodeBull(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	round := state.Metadata.InvestRound + 1
	reflections, err := deps.Memory.Reflect(ctx, "bull", buildSituationSummary(state))
	if err != nil {
		log.Warn().Err(err).Str("symbol", state.Symbol).Msg("bull reflection lookup failed, continuing without it")
		reflections = ""
	}
	system := personas.SystemPrompt(personas.BullResearcher)
	user := personas.BullMessage(state.Symbol, reportsMap(state.Reports), state.Debate.Investment, state.Debate.Bear, reflections)
	turn, err := personas.Runner(ctx, deps.Model, system, user)
	if err != nil {
		return Patch{}, fmt.Errorf("bull researcher: %w", err)
	}
	continueDebate := round < deps.InvestDebateRounds
	return Patch{
		ConversationLog: []ConversationLogEntry{{RoleLabel: "bull_researcher", System: system, User: user}},
		DebateHistory:   []DebateRoundEntry{{Persona: "bull", Round: round, Content: turn, Timestamp: time.Now()}},
		Debate:          &DebatePatch{Bull: &turn, Investment: strPtr(appendTranscript(state.Debate.Investment, "Bull", turn))},
		Metadata:        &MetadataPatch{InvestRound: &round, InvestContinue: &continueDebate},
	}, nil
}

func investmentShouldContinue(state *GraphState) bool {
	return state.Metadata.InvestContinue
}

func nodeResearchManager(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	progress.Emit(deps.Progress, deps.RunID, progress.StageResearchManager, "Research manager deciding", state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())

	system := personas.SystemPrompt(personas.ResearchManager)
	user := personas.ResearchManagerMessage(state.Symbol, state.Debate.Investment, state.Metadata.ManagerMemories)
	plan, err := personas.Runner(ctx, deps.Model, system, user)
	if err != nil {
		return Patch{}, fmt.Errorf("research manager: %w", err)
	}
	return Patch{
		InvestmentPlan:  &plan,
		ConversationLog: []ConversationLogEntry{{RoleLabel: "research_manager", System: system, User: user}},
	}, nil
}

func nodeTrader(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	progress.Emit(deps.Progress, deps.RunID, progress.StageTrader, "Trader drafting plan", state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())

	system := personas.SystemPrompt(personas.Trader)
	plan := ""
	if state.InvestmentPlan != nil {
		plan = *state.InvestmentPlan
	}
	user := personas.TraderMessage(state.Symbol, reportsMap(state.Reports), plan, state.Metadata.TraderMemories)
	out, err := personas.Runner(ctx, deps.Model, system, user)
	if err != nil {
		return Patch{}, fmt.Errorf("trader: %w", err)
	}
	return Patch{
		TraderPlan:      &out,
		ConversationLog: []ConversationLogEntry{{RoleLabel: "trader", System: system, User: user}},
	}, nil
}

func nodeAggressive(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	round := state.Metadata.RiskRound + 1
	if round == 1 {
		progress.Emit(deps.Progress, deps.RunID, progress.StageRiskDebate, "Risk analysts debating", state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())
	}
	system := personas.SystemPrompt(personas.AggressiveAnalyst)
	plan := traderPlanOf(state)
	user := personas.AggressiveMessage(state.Symbol, plan, state.Debate.Risk, state.Debate.Conservative, state.Debate.Neutral)
	turn, err := personas.Runner(ctx, deps.Model, system, user)
	if err != nil {
		return Patch{}, fmt.Errorf("aggressive risk analyst: %w", err)
	}
	return Patch{
		ConversationLog:   []ConversationLogEntry{{RoleLabel: "aggressive_risk_analyst", System: system, User: user}},
		RiskDebateHistory: []RiskDebateRoundEntry{{Persona: "aggressive", Round: round, Content: turn, Timestamp: time.Now()}},
		Debate:            &DebatePatch{Aggressive: &turn, Risk: strPtr(appendTranscript(state.Debate.Risk, "Aggressive", turn))},
		Metadata:          &MetadataPatch{RiskRound: &round},
	}, nil
}

func nodeConservative(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	round := state.Metadata.RiskRound
	system := personas.SystemPrompt(personas.ConservativeAnalyst)
	plan := traderPlanOf(state)
	user := personas.ConservativeMessage(state.Symbol, plan, state.Debate.Risk, state.Debate.Aggressive, state.Debate.Neutral)
	turn, err := personas.Runner(ctx, deps.Model, system, user)
	if err != nil {
		return Patch{}, fmt.Errorf("conservative risk analyst: %w", err)
	}
	return Patch{
		ConversationLog:   []ConversationLogEntry{{RoleLabel: "conservative_risk_analyst", System: system, User: user}},
		RiskDebateHistory: []RiskDebateRoundEntry{{Persona: "conservative", Round: round, Content: turn, Timestamp: time.Now()}},
		Debate:            &DebatePatch{Conservative: &turn, Risk: strPtr(appendTranscript(state.Debate.Risk, "Conservative", turn))},
	}, nil
}

func nodeNeutral(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	round := state.Metadata.RiskRound
	system := personas.SystemPrompt(personas.NeutralAnalyst)
	plan := traderPlanOf(state)
	user := personas.NeutralMessage(state.Symbol, plan, state.Debate.Risk, state.Debate.Aggressive, state.Debate.Conservative)
	turn, err := personas.Runner(ctx, deps.Model, system, user)
	if err != nil {
		return Patch{}, fmt.Errorf("neutral risk analyst: %w", err)
	}
	continueDebate := round < deps.RiskDebateRounds
	return Patch{
		ConversationLog:   []ConversationLogEntry{{RoleLabel: "neutral_risk_analyst", System: system, User: user}},
		RiskDebateHistory: []RiskDebateRoundEntry{{Persona: "neutral", Round: round, Content: turn, Timestamp: time.Now()}},
		Debate:            &DebatePatch{Neutral: &turn, Risk: strPtr(appendTranscript(state.Debate.Risk, "Neutral", turn))},
		Metadata:          &MetadataPatch{RiskContinue: &continueDebate},
	}, nil
}

func riskShouldContinue(state *GraphState) bool {
	return state.Metadata.RiskContinue
}

func nodeRiskManager(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	progress.Emit(deps.Progress, deps.RunID, progress.StageRiskManager, "Risk manager deciding", state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())

	system := personas.SystemPrompt(personas.RiskManager)
	plan := traderPlanOf(state)
	user := personas.RiskManagerMessage(state.Symbol, plan, state.Debate.Risk, state.Metadata.RiskManagerMemories)
	out, err := personas.Runner(ctx, deps.Model, system, user)
	if err != nil {
		return Patch{}, fmt.Errorf("risk manager: %w", err)
	}
	token := decision.Extract(ctx, deps.ExtractorModel, out)
	return Patch{
		FinalDecision:   &out,
		ConversationLog: []ConversationLogEntry{{RoleLabel: "risk_manager", System: system, User: user}},
		Metadata:        &MetadataPatch{DecisionToken: &token},
	}, nil
}

// nodePersistMemories writes the three memory-bearing roles' outputs
// back to the memory store with bounded concurrency (spec §4.4:
// "PersistMemories: up to 3 concurrent writes"). Every write is best-
// effort per the all-settled policy in spec §5: a write failure is
// logged and does not fail the run or alter state.Result (spec §4.8).
func nodePersistMemories(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	type write struct {
		role string
		text string
	}
	writes := []write{
		{"research_manager", valueOr(state.InvestmentPlan)},
		{"trader", valueOr(state.TraderPlan)},
		{"risk_manager", valueOr(state.FinalDecision)},
	}
	situation := buildSituationSummary(state)

	var g errgroup.Group
	g.SetLimit(3)
	for _, w := range writes {
		w := w
		g.Go(func() error {
			if w.text == "" {
				return nil
			}
			if err := deps.Memory.Persist(ctx, w.role, state.Symbol, state.TradeDate, situation, w.text); err != nil {
				log.Warn().Err(err).Str("role", w.role).Str("symbol", state.Symbol).Msg("persist memory failed, continuing")
			}
			return nil
		})
	}
	_ = g.Wait()
	return Patch{}, nil
}

func nodeFinalize(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error) {
	progress.Emit(deps.Progress, deps.RunID, progress.StageFinalizing, "Finalizing decision", state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())

	completed := time.Now()
	elapsed := completed.Sub(state.Metadata.RunStartedAt).Milliseconds()

	result := &Decision{
		Symbol:             state.Symbol,
		TradeDate:          state.TradeDate,
		DecisionToken:      state.Metadata.DecisionToken,
		FinalTradeDecision: state.Metadata.DecisionToken,
		InvestmentPlan:     state.InvestmentPlan,
		TraderPlan:         state.TraderPlan,
		InvestmentJudge:    state.InvestmentPlan,
		RiskJudge:          state.FinalDecision,
		ModelID:            state.Metadata.ModelID,
		Analysts:           state.Metadata.EnabledAnalysts,
		ExecutionMs:        &elapsed,
		MarketReport:       state.Reports.Market,
		NewsReport:         state.Reports.News,
		SentimentReport:    state.Reports.Social,
		FundamentalsReport: state.Reports.Fundamentals,
		InvestmentDebate:   state.Debate.Investment,
		BullArgument:       nonEmptyPtr(state.Debate.Bull),
		BearArgument:       nonEmptyPtr(state.Debate.Bear),
		AggressiveArgument: nonEmptyPtr(state.Debate.Aggressive),
		ConservativeArgument: nonEmptyPtr(state.Debate.Conservative),
		NeutralArgument:    nonEmptyPtr(state.Debate.Neutral),
		RiskDebate:         state.Debate.Risk,
	}
	if result.DecisionToken == "" {
		result.DecisionToken = DecisionNoDecision
		result.FinalTradeDecision = DecisionNoDecision
	}

	completedUnix := completed.UnixMilli()
	return Patch{
		Result: result,
		Metadata: &MetadataPatch{
			RunCompletedAt: &completedUnix,
			ExecutionMs:    &elapsed,
		},
	}, nil
}

// buildSituationSummary renders the deterministic context key embedded
// for memory persistence and persona-reflection lookups (spec §3's
// PersonaMemory, R2: "the same inputs produce the same situation
// summary"). Sections appear in a fixed order and are skipped when
// empty so two runs with identical state always embed identical text.
func buildSituationSummary(state *GraphState) string {
	var b strings.Builder
	writeSection := func(label, content string) {
		if content == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(label)
		b.WriteString(":\n")
		b.WriteString(content)
	}
	if state.Reports.Market != nil {
		writeSection("market_report", *state.Reports.Market)
	}
	if state.Reports.News != nil {
		writeSection("news_report", *state.Reports.News)
	}
	if state.Reports.Social != nil {
		writeSection("social_report", *state.Reports.Social)
	}
	if state.Reports.Fundamentals != nil {
		writeSection("fundamentals_report", *state.Reports.Fundamentals)
	}
	writeSection("investment_debate", state.Debate.Investment)
	writeSection("risk_debate", state.Debate.Risk)
	writeSection("trader_plan", traderPlanOf(state))
	return b.String()
}

func reportsMap(r AnalystReports) map[string]string {
	m := make(map[string]string, 4)
	if r.Market != nil {
		m["market"] = *r.Market
	}
	if r.News != nil {
		m["news"] = *r.News
	}
	if r.Social != nil {
		m["social"] = *r.Social
	}
	if r.Fundamentals != nil {
		m["fundamentals"] = *r.Fundamentals
	}
	return m
}

func traderPlanOf(state *GraphState) string {
	if state.TraderPlan != nil {
		return *state.TraderPlan
	}
	return ""
}

func appendTranscript(existing, speaker, turn string) string {
	entry := fmt.Sprintf("%s: %s", speaker, turn)
	if existing == "" {
		return entry
	}
	return existing + "\n\n" + entry
}

func strPtr(s string) *string { return &s }

func valueOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
