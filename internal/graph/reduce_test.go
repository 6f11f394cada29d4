package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApply_ScalarFieldsLastWriteWins(t *testing.T) {
	state := NewInitialState("AAPL", "2026-07-30", Context{}, time.Time{})
	plan := "first plan"
	Apply(state, Patch{InvestmentPlan: &plan})
	require.NotNil(t, state.InvestmentPlan)
	require.Equal(t, "first plan", *state.InvestmentPlan)

	revised := "revised plan"
	Apply(state, Patch{InvestmentPlan: &revised})
	require.Equal(t, "revised plan", *state.InvestmentPlan)
}

func TestApply_ListFieldsAppend(t *testing.T) {
	state := NewInitialState("AAPL", "2026-07-30", Context{}, time.Time{})
	Apply(state, Patch{ConversationLog: []ConversationLogEntry{{RoleLabel: "bull_researcher"}}})
	Apply(state, Patch{ConversationLog: []ConversationLogEntry{{RoleLabel: "bear_researcher"}}})
	require.Len(t, state.ConversationLog, 2)
	require.Equal(t, "bull_researcher", state.ConversationLog[0].RoleLabel)
	require.Equal(t, "bear_researcher", state.ConversationLog[1].RoleLabel)
}

func TestApply_DebateShallowMerge(t *testing.T) {
	state := NewInitialState("AAPL", "2026-07-30", Context{}, time.Time{})
	bull := "bull take"
	Apply(state, Patch{Debate: &DebatePatch{Bull: &bull}})
	require.Equal(t, "bull take", state.Debate.Bull)
	require.Empty(t, state.Debate.Bear)

	bear := "bear take"
	Apply(state, Patch{Debate: &DebatePatch{Bear: &bear}})
	require.Equal(t, "bull take", state.Debate.Bull)
	require.Equal(t, "bear take", state.Debate.Bear)
}

func TestApply_MetadataShallowMerge(t *testing.T) {
	state := NewInitialState("AAPL", "2026-07-30", Context{}, time.Time{})
	round := 1
	Apply(state, Patch{Metadata: &MetadataPatch{InvestRound: &round}})
	require.Equal(t, 1, state.Metadata.InvestRound)
	require.True(t, state.Metadata.InvestContinue)
}
