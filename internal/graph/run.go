package graph

import (
	"context"
	"fmt"
	"time"

	"tradedesk/internal/progress"
)

// nodeFunc is the signature every compiled node implements.
type nodeFunc func(ctx context.Context, deps Dependencies, state *GraphState) (Patch, error)

// nodeSpec pairs a node with the edge function that picks the next node
// name from post-patch state. next must be non-nil: an unconditional edge
// is a constNext function returning the fixed successor; a conditional
// edge inspects state (investmentShouldContinue / riskShouldContinue).
type nodeSpec struct {
	run  nodeFunc
	next func(state *GraphState) string
}

const (
	nodeLoadMemoriesName    = "load_memories"
	nodeAnalystsName        = "analysts"
	nodeBullName            = "bull"
	nodeBearName            = "bear"
	nodeResearchManagerName = "research_manager"
	nodeTraderName          = "trader"
	nodeAggressiveName      = "aggressive"
	nodeConservativeName    = "conservative"
	nodeNeutralName         = "neutral"
	nodeRiskManagerName     = "risk_manager"
	nodePersistMemoriesName = "persist_memories"
	nodeFinalizeName        = "finalize"
	nodeEnd                 = ""
)

// compiledGraph is the adjacency built once at package init (spec §9's
// REDESIGN note: "compile the graph once... rather than a runtime graph
// object"), grounded on other_examples' trading_agents-graph.go.go
// StateGraph wiring but expressed as a plain Go map instead of a runtime-
// constructed engine.
var compiledGraph = map[string]nodeSpec{
	nodeLoadMemoriesName: {run: nodeLoadMemories, next: constNext(nodeAnalystsName)},
	nodeAnalystsName:     {run: nodeAnalysts, next: constNext(nodeBearName)},
	nodeBearName:         {run: nodeBear, next: constNext(nodeBullName)},
	nodeBullName: {run: nodeBull, next: func(s *GraphState) string {
		if investmentShouldContinue(s) {
			return nodeBearName
		}
		return nodeResearchManagerName
	}},
	nodeResearchManagerName: {run: nodeResearchManager, next: constNext(nodeTraderName)},
	nodeTraderName:          {run: nodeTrader, next: constNext(nodeAggressiveName)},
	nodeAggressiveName:      {run: nodeAggressive, next: constNext(nodeConservativeName)},
	nodeConservativeName:    {run: nodeConservative, next: constNext(nodeNeutralName)},
	nodeNeutralName: {run: nodeNeutral, next: func(s *GraphState) string {
		if riskShouldContinue(s) {
			return nodeAggressiveName
		}
		return nodeRiskManagerName
	}},
	nodeRiskManagerName:     {run: nodeRiskManager, next: constNext(nodePersistMemoriesName)},
	nodePersistMemoriesName: {run: nodePersistMemories, next: constNext(nodeFinalizeName)},
	nodeFinalizeName:        {run: nodeFinalize, next: constNext(nodeEnd)},
}

func constNext(name string) func(*GraphState) string {
	return func(*GraphState) string { return name }
}

// RunDecisionGraph is the sole entry point (spec §4.4): it seeds initial
// state from req, walks compiledGraph from load_memories to the finalize
// node's END edge, and returns the Decision the finalize node produced.
// A visit counter enforces MaxRecursionLimit (spec §2's hard ceiling on
// total node visits per run) independent of the debate round counters,
// since a runaway conditional edge is a distinct failure mode from an
// intentionally long debate.
func RunDecisionGraph(ctx context.Context, deps Dependencies, req Request, maxRecursionLimit int) (*Decision, error) {
	state := NewInitialState(req.Symbol, req.TradeDate, req.Context, time.Now())
	state.Metadata.ModelID = req.ModelID
	state.Metadata.EnabledAnalysts = req.Analysts
	state.Metadata.ProgressRunID = deps.RunID
	state.Metadata.Payload = &req

	if deps.InvestDebateRounds <= 0 {
		deps.InvestDebateRounds = 1
	}
	if deps.RiskDebateRounds <= 0 {
		deps.RiskDebateRounds = 1
	}

	current := nodeLoadMemoriesName
	visits := 0
	for current != nodeEnd {
		visits++
		if maxRecursionLimit > 0 && visits > maxRecursionLimit {
			return nil, failRun(deps, state, fmt.Errorf("decision graph exceeded recursion limit (%d) at node %q", maxRecursionLimit, current))
		}
		spec, ok := compiledGraph[current]
		if !ok {
			return nil, failRun(deps, state, fmt.Errorf("decision graph: unknown node %q", current))
		}
		patch, err := spec.run(ctx, deps, state)
		if err != nil {
			return nil, failRun(deps, state, fmt.Errorf("decision graph node %q: %w", current, err))
		}
		Apply(state, patch)
		current = spec.next(state)
	}
	if state.Result == nil {
		return nil, failRun(deps, state, fmt.Errorf("decision graph completed without producing a result"))
	}
	return state.Result, nil
}

// failRun publishes the terminal finalizing/error progress event (spec
// §4.7, §7: "publishes a final progress event stage=finalizing,
// message=error text, percent=100 and rethrows") before returning err to
// the caller unchanged.
func failRun(deps Dependencies, state *GraphState, err error) error {
	progress.EmitError(deps.Progress, deps.RunID, err.Error(), state.Metadata.ModelID, state.Metadata.EnabledAnalysts, time.Now())
	return err
}
