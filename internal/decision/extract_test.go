package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"tradedesk/internal/graph"
	"tradedesk/internal/llm"
)

type stubModel struct {
	out string
	err error
}

func (s stubModel) Invoke(context.Context, []llm.Message) (string, error) {
	return s.out, s.err
}

func TestExtractDeterministic_StrictLine(t *testing.T) {
	text := "Analysis...\n\nFinal Recommendation: **BUY**\n"
	require.Equal(t, graph.DecisionBuy, ExtractDeterministic(text))
}

func TestExtractDeterministic_LastStrictLineWins(t *testing.T) {
	text := "Final Recommendation: HOLD\n...revised my view...\nFinal Decision: SELL"
	require.Equal(t, graph.DecisionSell, ExtractDeterministic(text))
}

func TestExtractDeterministic_WholeWordFallback(t *testing.T) {
	text := "Given the setup, I'd lean toward a SELL here given the downside risk."
	require.Equal(t, graph.DecisionSell, ExtractDeterministic(text))
}

func TestExtractDeterministic_NoDecision(t *testing.T) {
	text := "The situation is too uncertain to call right now."
	require.Equal(t, graph.DecisionNoDecision, ExtractDeterministic(text))
}

func TestExtract_ModelContractReplyWins(t *testing.T) {
	m := stubModel{out: "hold"}
	got := Extract(context.Background(), m, "Final Recommendation: BUY")
	require.Equal(t, graph.DecisionHold, got)
}

func TestExtract_ModelErrorFallsBackToDeterministic(t *testing.T) {
	m := stubModel{err: errors.New("boom")}
	got := Extract(context.Background(), m, "Final Recommendation: SELL")
	require.Equal(t, graph.DecisionSell, got)
}

func TestExtract_OutOfContractReplyFallsBack(t *testing.T) {
	m := stubModel{out: "I think it's a buy"}
	got := Extract(context.Background(), m, "Final Recommendation: BUY")
	require.Equal(t, graph.DecisionBuy, got)
}

func TestExtract_NilModelUsesDeterministic(t *testing.T) {
	got := Extract(context.Background(), nil, "Final Recommendation: HOLD")
	require.Equal(t, graph.DecisionHold, got)
}
