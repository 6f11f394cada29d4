// Command tradedeskd runs a single trading-decision graph invocation
// from the command line: load config and .env, wire the providers and
// stores, run the graph, print the resulting Decision as JSON. Grounded
// on cmd/agentd/main.go's load-env/init-logger/load-config/init-otel
// wiring order.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tradedesk/internal/config"
	"tradedesk/internal/embeddings"
	"tradedesk/internal/graph"
	"tradedesk/internal/llm/providers"
	"tradedesk/internal/memory"
	"tradedesk/internal/observability"
	"tradedesk/internal/persistence"
	"tradedesk/internal/persistence/databases"
	"tradedesk/internal/persistence/sinks"
	"tradedesk/internal/progress"
)

func main() {
	symbol := flag.String("symbol", "", "ticker symbol to run a decision for")
	tradeDate := flag.String("date", "", "trade date (YYYY-MM-DD)")
	modelID := flag.String("model", "", "model id override (defaults to graph.default_trading_model)")
	analystsFlag := flag.String("analysts", "market,news,social,fundamentals", "comma-separated enabled analysts")
	configPath := flag.String("config", "tradedesk.yaml", "path to config file")
	flag.Parse()

	if *symbol == "" || *tradeDate == "" {
		fmt.Fprintln(os.Stderr, "usage: tradedeskd -symbol AAPL -date 2026-07-30")
		os.Exit(2)
	}

	config.LoadDotEnv(".env")
	observability.InitLogger("tradedesk.log", "info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	shutdown, err := observability.InitOTel(ctx, cfg.OTel)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	httpClient := observability.NewHTTPClient(nil)

	resolvedModel := cfg.Graph.DefaultTradingModel
	if *modelID != "" {
		resolvedModel = *modelID
	}
	chatModel, err := providers.CreateChatModel(cfg.LLM, resolvedModel, providers.DefaultTemperature, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct chat model")
	}
	extractorModel, err := providers.CreateChatModel(cfg.LLM, resolvedModel, 0, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct decision-extractor chat model")
	}

	dbManager, err := databases.NewManager(ctx, cfg.Vector)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init vector store")
	}
	defer dbManager.Close()

	var roleSummaries persistence.RoleSummaryStore = persistence.NewMemoryRoleSummaryStore()
	var sink sinks.Sink = sinks.NoopSink{}
	if cfg.Database.DSN != "" {
		pool, perr := databases.OpenPool(ctx, cfg.Database.DSN)
		if perr != nil {
			log.Warn().Err(perr).Msg("failed to open database pool, falling back to in-memory role summaries and a no-op sink")
		} else {
			if pgStore, serr := persistence.NewPostgresRoleSummaryStore(ctx, pool); serr == nil {
				roleSummaries = pgStore
			} else {
				log.Warn().Err(serr).Msg("failed to init role summary store")
			}
			if pgSink, serr := sinks.NewPostgresSink(ctx, pool); serr == nil {
				sink = pgSink
			} else {
				log.Warn().Err(serr).Msg("failed to init persistence sink")
			}
		}
	}

	memStore := memory.Store{
		RoleSummaries: roleSummaries,
		Vectors:       dbManager.Vector,
		Embedder:      embeddings.New(cfg.Embeddings, httpClient),
		UseDBMemories: cfg.Graph.UseDBMemories,
		TopK:          3,
	}

	runID := uuid.NewString()
	deps := graph.Dependencies{
		Model:              chatModel,
		ExtractorModel:     extractorModel,
		Memory:             memStore,
		Sink:               sink,
		Progress:           progress.LoggingPublisher{},
		RunID:              runID,
		InvestDebateRounds: cfg.Graph.InvestDebateRounds,
		RiskDebateRounds:   cfg.Graph.RiskDebateRounds,
	}

	req := graph.Request{
		Symbol:    strings.ToUpper(*symbol),
		TradeDate: *tradeDate,
		ModelID:   resolvedModel,
		Analysts:  splitAnalysts(*analystsFlag),
		Context:   graph.Context{},
	}

	result, err := graph.RunDecisionGraph(ctx, deps, req, cfg.Graph.MaxRecursionLimit)
	if err != nil {
		log.Fatal().Err(err).Str("symbol", req.Symbol).Msg("decision graph run failed")
	}

	if sink != nil {
		if werr := sink.WriteDecision(ctx, sinks.DecisionRow{
			RunID:          runID,
			Symbol:         result.Symbol,
			TradeDate:      result.TradeDate,
			DecisionToken:  result.DecisionToken,
			InvestmentPlan: valueOr(result.InvestmentPlan),
			TraderPlan:     valueOr(result.TraderPlan),
			RiskJudge:      valueOr(result.RiskJudge),
		}); werr != nil {
			log.Warn().Err(werr).Msg("failed to persist decision row")
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to marshal decision")
	}
	fmt.Println(string(out))
}

func splitAnalysts(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func valueOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
