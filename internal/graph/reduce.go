package graph

// Patch is a partial update returned by a node. Only the fields a node
// actually touches are set; Apply composes it into the shared state using
// a declared rule per field — append for logs and debate rounds,
// shallow-merge for the debate map and metadata, last-write-wins for
// scalar plans/results (spec §2, §9).
type Patch struct {
	Reports           AnalystReports
	InvestmentPlan    *string
	TraderPlan        *string
	FinalDecision     *string
	ConversationLog   []ConversationLogEntry
	Debate            *DebatePatch
	DebateHistory     []DebateRoundEntry
	RiskDebateHistory []RiskDebateRoundEntry
	ToolCalls         []ToolCallLogEntry
	Metadata          *MetadataPatch
	Result            *Decision
}

// DebatePatch shallow-merges into DebateMap: a non-nil field overwrites
// the corresponding DebateMap field; a nil field leaves it untouched.
type DebatePatch struct {
	Investment   *string
	Bull         *string
	Bear         *string
	Risk         *string
	Aggressive   *string
	Conservative *string
	Neutral      *string
}

// MetadataPatch shallow-merges into GraphMetadata.
type MetadataPatch struct {
	InvestRound          *int
	InvestContinue       *bool
	RiskRound            *int
	RiskContinue         *bool
	ManagerMemories      *string
	TraderMemories       *string
	RiskManagerMemories  *string
	ProgressRunID        *string
	ModelID              *string
	EnabledAnalysts      []string
	DecisionToken        *string
	RunCompletedAt       *int64 // unix millis, last-write-wins
	ExecutionMs          *int64
}

// Apply merges patch into state in place. A node that appends to a list
// exactly once per invocation and never re-reads its own prior appended
// output keeps this idempotent with respect to ordering under re-entry
// (Q1): nothing here re-derives state from what was already appended.
func Apply(state *GraphState, patch Patch) {
	if patch.Reports.Market != nil {
		state.Reports.Market = patch.Reports.Market
	}
	if patch.Reports.News != nil {
		state.Reports.News = patch.Reports.News
	}
	if patch.Reports.Social != nil {
		state.Reports.Social = patch.Reports.Social
	}
	if patch.Reports.Fundamentals != nil {
		state.Reports.Fundamentals = patch.Reports.Fundamentals
	}
	if patch.InvestmentPlan != nil {
		state.InvestmentPlan = patch.InvestmentPlan
	}
	if patch.TraderPlan != nil {
		state.TraderPlan = patch.TraderPlan
	}
	if patch.FinalDecision != nil {
		state.FinalDecision = patch.FinalDecision
	}
	if len(patch.ConversationLog) > 0 {
		state.ConversationLog = append(state.ConversationLog, patch.ConversationLog...)
	}
	if patch.Debate != nil {
		applyDebatePatch(&state.Debate, patch.Debate)
	}
	if len(patch.DebateHistory) > 0 {
		state.DebateHistory = append(state.DebateHistory, patch.DebateHistory...)
	}
	if len(patch.RiskDebateHistory) > 0 {
		state.RiskDebateHistory = append(state.RiskDebateHistory, patch.RiskDebateHistory...)
	}
	if len(patch.ToolCalls) > 0 {
		state.ToolCalls = append(state.ToolCalls, patch.ToolCalls...)
	}
	if patch.Metadata != nil {
		applyMetadataPatch(&state.Metadata, patch.Metadata)
	}
	if patch.Result != nil {
		state.Result = patch.Result
	}
}

func applyDebatePatch(d *DebateMap, p *DebatePatch) {
	if p.Investment != nil {
		d.Investment = *p.Investment
	}
	if p.Bull != nil {
		d.Bull = *p.Bull
	}
	if p.Bear != nil {
		d.Bear = *p.Bear
	}
	if p.Risk != nil {
		d.Risk = *p.Risk
	}
	if p.Aggressive != nil {
		d.Aggressive = *p.Aggressive
	}
	if p.Conservative != nil {
		d.Conservative = *p.Conservative
	}
	if p.Neutral != nil {
		d.Neutral = *p.Neutral
	}
}

func applyMetadataPatch(m *GraphMetadata, p *MetadataPatch) {
	if p.InvestRound != nil {
		m.InvestRound = *p.InvestRound
	}
	if p.InvestContinue != nil {
		m.InvestContinue = *p.InvestContinue
	}
	if p.RiskRound != nil {
		m.RiskRound = *p.RiskRound
	}
	if p.RiskContinue != nil {
		m.RiskContinue = *p.RiskContinue
	}
	if p.ManagerMemories != nil {
		m.ManagerMemories = *p.ManagerMemories
	}
	if p.TraderMemories != nil {
		m.TraderMemories = *p.TraderMemories
	}
	if p.RiskManagerMemories != nil {
		m.RiskManagerMemories = *p.RiskManagerMemories
	}
	if p.ProgressRunID != nil {
		m.ProgressRunID = *p.ProgressRunID
	}
	if p.ModelID != nil {
		m.ModelID = *p.ModelID
	}
	if len(p.EnabledAnalysts) > 0 {
		m.EnabledAnalysts = p.EnabledAnalysts
	}
	if p.DecisionToken != nil {
		m.DecisionToken = *p.DecisionToken
	}
	if p.RunCompletedAt != nil {
		m.RunCompletedAt = *p.RunCompletedAt
	}
	if p.ExecutionMs != nil {
		m.ExecutionMs = *p.ExecutionMs
	}
}
