// Package progress implements the progress publisher (C6): a fire-and-
// forget stage/percent/label event stream keyed by runId. Grounded on the
// teacher's callback-sink style (StepHook in the old agents engine,
// OnAssistant/OnDelta in the old ReAct engine) generalized from an
// in-process callback into an injected interface, so the engine stays
// oblivious to transport — exactly the posture spec.md §9 calls for.
package progress

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Stage is one of the closed set of pipeline stages (spec §4.7, §6).
type Stage string

const (
	StageQueued            Stage = "queued"
	StageAnalysts          Stage = "analysts"
	StageInvestmentDebate  Stage = "investment_debate"
	StageResearchManager   Stage = "research_manager"
	StageTrader            Stage = "trader"
	StageRiskDebate        Stage = "risk_debate"
	StageRiskManager       Stage = "risk_manager"
	StageFinalizing        Stage = "finalizing"
)

// stagePercent is the canonical percent-complete for each stage.
var stagePercent = map[Stage]int{
	StageQueued:           0,
	StageAnalysts:         15,
	StageInvestmentDebate: 45,
	StageResearchManager:  60,
	StageTrader:           70,
	StageRiskDebate:       85,
	StageRiskManager:      95,
	StageFinalizing:       100,
}

// Event is one progress notification.
type Event struct {
	RunID     string
	Stage     Stage
	Label     string
	Percent   int
	Message   string
	Iteration int
	ModelID   string
	Analysts  []string
	Timestamp time.Time
}

// Publisher is the injected sink the engine publishes events to. It is
// best-effort: Publish must not return an error and must never block the
// calling node on delivery.
type Publisher interface {
	Publish(e Event)
}

// LoggingPublisher is the default Publisher: it writes each event as a
// structured log line. Suitable standalone for cmd/tradedeskd and as a
// fallback when no external subscriber is wired.
type LoggingPublisher struct{}

func (LoggingPublisher) Publish(e Event) {
	log.Info().
		Str("run_id", e.RunID).
		Str("stage", string(e.Stage)).
		Str("label", e.Label).
		Int("percent", e.Percent).
		Str("model_id", e.ModelID).
		Msg("progress")
}

// NoopPublisher discards every event. Suppression for an absent runId is
// done by Emit and EmitError themselves, whatever the Publisher.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}

// Emit publishes stage's canonical event, unless runID is empty. now is
// injected so callers (tests, the graph) control the timestamp rather
// than this package reaching for time.Now at call sites that must stay
// deterministic.
func Emit(pub Publisher, runID string, stage Stage, label, modelID string, analysts []string, now time.Time) {
	if runID == "" || pub == nil {
		return
	}
	pub.Publish(Event{
		RunID:     runID,
		Stage:     stage,
		Label:     label,
		Percent:   stagePercent[stage],
		ModelID:   modelID,
		Analysts:  analysts,
		Timestamp: now,
	})
}

// EmitError publishes the terminal finalizing/error event the engine
// sends before rethrowing a fatal error (spec §4.4, §7).
func EmitError(pub Publisher, runID string, message string, modelID string, analysts []string, now time.Time) {
	if runID == "" || pub == nil {
		return
	}
	pub.Publish(Event{
		RunID:     runID,
		Stage:     StageFinalizing,
		Label:     "Workflow error",
		Percent:   stagePercent[StageFinalizing],
		Message:   message,
		ModelID:   modelID,
		Analysts:  analysts,
		Timestamp: now,
	})
}
