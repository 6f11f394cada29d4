package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tradedesk/internal/llm"
	"tradedesk/internal/memory"
)

// stubModel always returns a fixed reply, closing over a call counter so
// tests can assert on the number of persona invocations.
type stubModel struct {
	reply string
	calls *int
}

func (s stubModel) Invoke(context.Context, []llm.Message) (string, error) {
	if s.calls != nil {
		*s.calls++
	}
	return s.reply, nil
}

func TestRunDecisionGraph_SingleRoundProducesDecision(t *testing.T) {
	calls := 0
	model := stubModel{reply: "Final Recommendation: BUY", calls: &calls}

	deps := Dependencies{
		Model:              model,
		Memory:             memory.Store{},
		InvestDebateRounds: 1,
		RiskDebateRounds:   1,
	}
	req := Request{
		Symbol:    "AAPL",
		TradeDate: "2026-07-30",
		ModelID:   "gpt-4o-mini",
		Analysts:  []string{"market", "news"},
		Context: Context{
			ChannelMarketTechnical: "uptrend",
			ChannelNewsCompany:     "solid earnings",
		},
	}

	result, err := RunDecisionGraph(context.Background(), deps, req, 0)
	require.NoError(t, err)
	require.Equal(t, "AAPL", result.Symbol)
	require.Equal(t, DecisionBuy, result.DecisionToken)
	require.NotNil(t, result.MarketReport)
	require.NotNil(t, result.NewsReport)
	require.Nil(t, result.SentimentReport, "disabled analysts must not appear in the decision (I5)")
	require.Nil(t, result.FundamentalsReport, "disabled analysts must not appear in the decision (I5)")
	require.NotNil(t, result.ExecutionMs)
}

func TestRunDecisionGraph_RecursionLimitExceeded(t *testing.T) {
	calls := 0
	model := stubModel{reply: "no clear final line here", calls: &calls}
	deps := Dependencies{
		Model:              model,
		Memory:             memory.Store{},
		InvestDebateRounds: 50,
		RiskDebateRounds:   50,
	}
	req := Request{Symbol: "AAPL", TradeDate: "2026-07-30", Analysts: []string{"market"}}

	_, err := RunDecisionGraph(context.Background(), deps, req, 5)
	require.Error(t, err)
}

func TestRunDecisionGraph_DebateRoundsAdvance(t *testing.T) {
	model := stubModel{reply: "an argument"}
	deps := Dependencies{
		Model:              model,
		Memory:             memory.Store{},
		InvestDebateRounds: 2,
		RiskDebateRounds:   1,
	}
	req := Request{Symbol: "MSFT", TradeDate: "2026-07-30", Analysts: []string{"market"}}

	result, err := RunDecisionGraph(context.Background(), deps, req, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.InvestmentDebate)
	require.Equal(t, 2, strings.Count(result.InvestmentDebate, "Bear: "), "two bear turns for two rounds")
	require.Equal(t, 2, strings.Count(result.InvestmentDebate, "Bull: "), "two bull turns for two rounds")
}
