// Package decision implements the decision-token extractor (C5, spec
// §4.6): a strict-format LLM pass at temperature 0 with a deterministic
// regex fallback over the risk manager's text, so the token is always
// one of the canonical values. Grounded on the teacher's two-pass
// "ask the model, then regex-scrape its own output" pattern used for
// tool-call argument recovery in the old ReAct engine.
package decision

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"tradedesk/internal/graph"
	"tradedesk/internal/llm"
)

// finalLinePattern matches a "Final Recommendation/Decision/Verdict: BUY"
// style line, optionally markdown-bolded and headed, per spec §4.6.
var finalLinePattern = regexp.MustCompile(`(?im)^\s*#*\s*Final\s+(?:Recommendation|Decision|Verdict)\s*[:\-]\s*\**\s*(BUY|SELL|HOLD)\s*\**`)

// wholeWordPattern is the last-resort scan: the last whole-word match of
// BUY/SELL/HOLD anywhere in the text.
var wholeWordPattern = regexp.MustCompile(`(?i)\b(BUY|SELL|HOLD)\b`)

// ExtractDeterministic applies the ordered regex pass with no model
// call: first the strict "Final Recommendation:" line (last match wins,
// since the risk manager may restate it), then the last whole-word
// occurrence of BUY/SELL/HOLD, then graph.DecisionNoDecision.
func ExtractDeterministic(text string) string {
	if matches := finalLinePattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		return strings.ToUpper(matches[len(matches)-1][1])
	}
	if matches := wholeWordPattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		return strings.ToUpper(matches[len(matches)-1][1])
	}
	return graph.DecisionNoDecision
}

const extractorSystem = `You extract a single trading decision token from risk-manager text. Reply
with exactly one word: BUY, SELL, HOLD, or NO DECISION. No punctuation,
no explanation.`

// Extract runs the temp-0 extractor model when one is provided. A reply
// that is exactly one of the canonical tokens (case-insensitive) wins,
// even over a different token stated in riskManagerText; on any model
// error or an out-of-contract reply it falls back to ExtractDeterministic.
func Extract(ctx context.Context, model llm.ChatModel, riskManagerText string) string {
	if model == nil {
		return ExtractDeterministic(riskManagerText)
	}
	out, err := model.Invoke(ctx, []llm.Message{
		{Role: "system", Content: extractorSystem},
		{Role: "user", Content: fmt.Sprintf("Risk manager text:\n%s", riskManagerText)},
	})
	if err != nil {
		return ExtractDeterministic(riskManagerText)
	}
	token := strings.ToUpper(strings.TrimSpace(out))
	switch token {
	case graph.DecisionBuy, graph.DecisionSell, graph.DecisionHold, graph.DecisionNoDecision:
		return token
	default:
		return ExtractDeterministic(riskManagerText)
	}
}
