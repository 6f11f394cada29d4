// Package personas implements the twelve persona runnables (spec §4.2):
// pure functions from a narrow, persona-specific input view to a
// (system prompt, user message) pair, invoked through an llm.ChatModel.
// Grounded on the teacher's specialist-prompt style (short, directive
// system prompts addressed in second person, e.g.
// internal/specialists/*.go in the original tree) adapted to trading
// personas; no persona here sees the full GraphState, only the fields
// it needs (spec §4.2's narrow-view rule).
package personas

import (
	"context"
	"fmt"
	"strings"

	"tradedesk/internal/llm"
)

// Persona identifies one of the twelve roles.
type Persona string

const (
	MarketAnalyst       Persona = "market_analyst"
	NewsAnalyst         Persona = "news_analyst"
	SocialAnalyst       Persona = "social_analyst"
	FundamentalsAnalyst Persona = "fundamentals_analyst"
	BullResearcher      Persona = "bull_researcher"
	BearResearcher      Persona = "bear_researcher"
	ResearchManager     Persona = "research_manager"
	Trader              Persona = "trader"
	AggressiveAnalyst   Persona = "aggressive_risk_analyst"
	ConservativeAnalyst Persona = "conservative_risk_analyst"
	NeutralAnalyst      Persona = "neutral_risk_analyst"
	RiskManager         Persona = "risk_manager"
)

// Runner composes a system prompt and a user message and invokes model,
// returning only the model's reply. Callers already hold the (system,
// user) pair they passed in and use it for their ConversationLogEntry (I1).
func Runner(ctx context.Context, model llm.ChatModel, system, user string) (string, error) {
	out, err := model.Invoke(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return "", fmt.Errorf("persona invoke: %w", err)
	}
	return out, nil
}

// --- Analysts (spec §4.2, §5 analyst sub-graph) ---

const marketAnalystSystem = `You are a market technical analyst on a trading research desk. You read
price history and technical indicators and summarize what they say about
near-term direction. Be specific about levels, trends, and momentum.
Do not give a final trade decision; that is another team's job.`

func MarketAnalystMessage(symbol, tradeDate, priceHistory, technicalReport, tool string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nTrade date: %s\n\n", symbol, tradeDate)
	missing := false
	if technicalReport != "" {
		fmt.Fprintf(&b, "Technical report:\n%s\n\n", technicalReport)
	} else {
		missing = true
	}
	if priceHistory != "" {
		fmt.Fprintf(&b, "Price history:\n%s\n\n", priceHistory)
	} else {
		missing = true
	}
	writeToolInstruction(&b, missing, tool)
	b.WriteString("Write the market report.")
	return b.String()
}

const newsAnalystSystem = `You are a news analyst on a trading research desk. You read company and
global news and summarize what is material to the stock's near-term
outlook. Separate company-specific items from macro/global items.`

func NewsAnalystMessage(symbol, tradeDate, companyNews, globalNews, tool string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nTrade date: %s\n\n", symbol, tradeDate)
	missing := false
	if companyNews != "" {
		fmt.Fprintf(&b, "Company news:\n%s\n\n", companyNews)
	} else {
		missing = true
	}
	if globalNews != "" {
		fmt.Fprintf(&b, "Global news:\n%s\n\n", globalNews)
	} else {
		missing = true
	}
	writeToolInstruction(&b, missing, tool)
	b.WriteString("Write the news report.")
	return b.String()
}

const socialAnalystSystem = `You are a social-sentiment analyst on a trading research desk. You read
retail chatter (Reddit and similar) and summarize prevailing sentiment,
noting when it diverges from fundamentals or news.`

func SocialAnalystMessage(symbol, tradeDate, redditSummary, redditPosts, tool string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nTrade date: %s\n\n", symbol, tradeDate)
	missing := false
	if redditSummary != "" {
		fmt.Fprintf(&b, "Reddit summary:\n%s\n\n", redditSummary)
	} else {
		missing = true
	}
	if redditPosts != "" {
		fmt.Fprintf(&b, "Reddit posts:\n%s\n\n", redditPosts)
	} else {
		missing = true
	}
	writeToolInstruction(&b, missing, tool)
	b.WriteString("Write the social sentiment report.")
	return b.String()
}

const fundamentalsAnalystSystem = `You are a fundamentals analyst on a trading research desk. You read
balance sheet, cash flow, income statement, and insider transaction data
and summarize the company's financial health and any notable insider
activity.`

func FundamentalsAnalystMessage(symbol, tradeDate, summary, balanceSheet, cashflow, incomeStmt, insiderTxns, tool string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nTrade date: %s\n\n", symbol, tradeDate)
	missing := false
	for _, section := range []struct{ label, v string }{
		{"Fundamentals summary", summary},
		{"Balance sheet", balanceSheet},
		{"Cash flow", cashflow},
		{"Income statement", incomeStmt},
		{"Insider transactions", insiderTxns},
	} {
		if section.v != "" {
			fmt.Fprintf(&b, "%s:\n%s\n\n", section.label, section.v)
		} else {
			missing = true
		}
	}
	writeToolInstruction(&b, missing, tool)
	b.WriteString("Write the fundamentals report.")
	return b.String()
}

// --- Investment debate (spec §4.3, §4.2) ---

const bullSystem = `You are the Bull Researcher in an investment debate. Argue for a bullish
position on the stock using the analyst reports and any prior debate
history. Directly rebut the Bear's most recent point when one exists.
Be concise and concrete; cite the reports, don't just assert.`

func BullMessage(symbol string, reports map[string]string, history, bearLastTurn, reflections string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\n", symbol)
	writeReports(&b, reports)
	if reflections != "" {
		fmt.Fprintf(&b, "Relevant past reflections:\n%s\n\n", reflections)
	}
	if history != "" {
		fmt.Fprintf(&b, "Debate so far:\n%s\n\n", history)
	}
	if bearLastTurn != "" {
		fmt.Fprintf(&b, "Bear's last argument:\n%s\n\n", bearLastTurn)
	}
	b.WriteString("Give your bull argument for this round.")
	return b.String()
}

const bearSystem = `You are the Bear Researcher in an investment debate. Argue for a bearish
position on the stock using the analyst reports and any prior debate
history. Directly rebut the Bull's most recent point when one exists.
Be concise and concrete; cite the reports, don't just assert.`

func BearMessage(symbol string, reports map[string]string, history, bullLastTurn, reflections string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\n", symbol)
	writeReports(&b, reports)
	if reflections != "" {
		fmt.Fprintf(&b, "Relevant past reflections:\n%s\n\n", reflections)
	}
	if history != "" {
		fmt.Fprintf(&b, "Debate so far:\n%s\n\n", history)
	}
	if bullLastTurn != "" {
		fmt.Fprintf(&b, "Bull's last argument:\n%s\n\n", bullLastTurn)
	}
	b.WriteString("Give your bear argument for this round.")
	return b.String()
}

const researchManagerSystem = `You are the Research Manager. Read the full investment debate between
the Bull and Bear researchers and render a decisive investment plan:
which side's case is stronger, and what position the desk should take.
Do not hedge; pick a side and justify it.`

func ResearchManagerMessage(symbol, debateHistory, managerMemories string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\n", symbol)
	if managerMemories != "" {
		fmt.Fprintf(&b, "Relevant past lessons:\n%s\n\n", managerMemories)
	}
	fmt.Fprintf(&b, "Full investment debate:\n%s\n\n", debateHistory)
	b.WriteString("Write the investment plan.")
	return b.String()
}

// --- Trader (spec §4.2) ---

const traderSystem = `You are the Trader. Read the Research Manager's investment plan and
produce a concrete trading plan: entry considerations, sizing posture,
and risk framing. You do not set the final BUY/SELL/HOLD decision; risk
management does that after reviewing your plan.`

func TraderMessage(symbol string, reports map[string]string, investmentPlan, traderMemories string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\n", symbol)
	writeReports(&b, reports)
	if traderMemories != "" {
		fmt.Fprintf(&b, "Relevant past lessons:\n%s\n\n", traderMemories)
	}
	fmt.Fprintf(&b, "Investment plan:\n%s\n\n", investmentPlan)
	b.WriteString("Write the trader's plan.")
	return b.String()
}

// --- Risk debate (spec §4.3, §4.2) ---

const aggressiveSystem = `You are the Aggressive Risk Analyst in a three-way risk debate. Argue for
taking on more risk/conviction than the trader's plan proposes. Respond
to the Conservative and Neutral analysts' most recent points when they
exist.`

func AggressiveMessage(symbol, traderPlan, history, conservativeLastTurn, neutralLastTurn string) string {
	return riskTurnMessage(symbol, traderPlan, history, "Conservative", conservativeLastTurn, "Neutral", neutralLastTurn)
}

const conservativeSystem = `You are the Conservative Risk Analyst in a three-way risk debate. Argue
for reducing risk relative to the trader's plan. Respond to the
Aggressive and Neutral analysts' most recent points when they exist.`

func ConservativeMessage(symbol, traderPlan, history, aggressiveLastTurn, neutralLastTurn string) string {
	return riskTurnMessage(symbol, traderPlan, history, "Aggressive", aggressiveLastTurn, "Neutral", neutralLastTurn)
}

const neutralSystem = `You are the Neutral Risk Analyst in a three-way risk debate. Weigh the
Aggressive and Conservative positions and argue for the balanced middle
ground. Respond to both analysts' most recent points when they exist.`

func NeutralMessage(symbol, traderPlan, history, aggressiveLastTurn, conservativeLastTurn string) string {
	return riskTurnMessage(symbol, traderPlan, history, "Aggressive", aggressiveLastTurn, "Conservative", conservativeLastTurn)
}

func riskTurnMessage(symbol, traderPlan, history, labelA, turnA, labelB, turnB string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\n", symbol)
	fmt.Fprintf(&b, "Trader's plan:\n%s\n\n", traderPlan)
	if history != "" {
		fmt.Fprintf(&b, "Risk debate so far:\n%s\n\n", history)
	}
	if turnA != "" {
		fmt.Fprintf(&b, "%s's last argument:\n%s\n\n", labelA, turnA)
	}
	if turnB != "" {
		fmt.Fprintf(&b, "%s's last argument:\n%s\n\n", labelB, turnB)
	}
	b.WriteString("Give your argument for this round.")
	return b.String()
}

const riskManagerSystem = `You are the Risk Manager, the final decision authority. Read the
trader's plan and the full three-way risk debate, then render the final
decision. End your response with a line of the exact form:
"Final Recommendation: BUY" or "Final Recommendation: SELL" or
"Final Recommendation: HOLD".`

func RiskManagerMessage(symbol, traderPlan, riskDebateHistory, riskManagerMemories string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\n", symbol)
	if riskManagerMemories != "" {
		fmt.Fprintf(&b, "Relevant past lessons:\n%s\n\n", riskManagerMemories)
	}
	fmt.Fprintf(&b, "Trader's plan:\n%s\n\n", traderPlan)
	fmt.Fprintf(&b, "Full risk debate:\n%s\n\n", riskDebateHistory)
	b.WriteString("Write the final risk decision.")
	return b.String()
}

// SystemPrompt returns the fixed system prompt for a persona.
func SystemPrompt(p Persona) string {
	switch p {
	case MarketAnalyst:
		return marketAnalystSystem
	case NewsAnalyst:
		return newsAnalystSystem
	case SocialAnalyst:
		return socialAnalystSystem
	case FundamentalsAnalyst:
		return fundamentalsAnalystSystem
	case BullResearcher:
		return bullSystem
	case BearResearcher:
		return bearSystem
	case ResearchManager:
		return researchManagerSystem
	case Trader:
		return traderSystem
	case AggressiveAnalyst:
		return aggressiveSystem
	case ConservativeAnalyst:
		return conservativeSystem
	case NeutralAnalyst:
		return neutralSystem
	case RiskManager:
		return riskManagerSystem
	default:
		return ""
	}
}

func writeReports(b *strings.Builder, reports map[string]string) {
	for _, k := range []string{"market", "news", "social", "fundamentals"} {
		if v, ok := reports[k]; ok && v != "" {
			fmt.Fprintf(b, "%s report:\n%s\n\n", strings.Title(k), v)
		}
	}
}

// writeToolInstruction tells the model to invoke its fetch tool when one
// or more of its preloaded channels came back blank (spec §4.3: "instructs
// the model to invoke a named tool when that channel is blank").
func writeToolInstruction(b *strings.Builder, missing bool, tool string) {
	if missing && tool != "" {
		fmt.Fprintf(b, "Some of the data above was not preloaded; invoke %s to fetch it before writing the report.\n\n", tool)
	}
}
