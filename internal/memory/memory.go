// Package memory implements the two-store memory system (C4, spec
// §4.5): a structured role-summary store and a persona-vector store,
// with the role-summary store preferred whenever it has rows for a
// role. The vector store is also queried directly for bull/bear
// persona-specific reflections (Reflect), keyed by the deterministic
// situation summary the graph layer builds (spec §3's PersonaMemory).
// Grounded on the teacher's errgroup-fanned-out-lookup pattern
// (internal/rag's parallel retrieval) generalized to this pair of
// stores, and on internal/persistence/databases.VectorStore for the
// embedding half.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tradedesk/internal/embeddings"
	"tradedesk/internal/persistence"
	"tradedesk/internal/persistence/databases"
)

// Store composes both halves of the memory system behind one API.
type Store struct {
	RoleSummaries persistence.RoleSummaryStore
	Vectors       databases.VectorStore
	Embedder      *embeddings.Client
	UseDBMemories bool
	TopK          int
}

// Lookup returns the memory text to splice into a persona's prompt for
// role. Per spec §4.5: if UseDBMemories is set and the role-summary
// store has rows, use those (newest first, joined); otherwise fall back
// to a similarity search over the vector store keyed by queryText.
func (s Store) Lookup(ctx context.Context, role, symbol, tradeDate, queryText string) (string, error) {
	if s.UseDBMemories && s.RoleSummaries != nil {
		rows, err := s.RoleSummaries.Recent(ctx, role, s.topK())
		if err != nil {
			return "", fmt.Errorf("role summary lookup for %s: %w", role, err)
		}
		if len(rows) > 0 {
			return joinSummaries(rows), nil
		}
	}
	if s.Vectors == nil || s.Embedder == nil || queryText == "" {
		return "", nil
	}
	vecs, err := s.Embedder.Embed(ctx, []string{queryText})
	if err != nil || len(vecs) == 0 {
		return "", nil
	}
	results, err := s.Vectors.SimilaritySearch(ctx, vecs[0], s.topK(), map[string]string{"role": role})
	if err != nil {
		return "", fmt.Errorf("vector search for %s: %w", role, err)
	}
	return joinVectorResults(results), nil
}

// LoadAll fans out Lookup across the three memory-consuming roles
// (research manager, trader, risk manager) concurrently, per spec §5's
// all-settled policy: one role's lookup failure is logged and leaves
// that role's text empty rather than cancelling its siblings or failing
// the run, since stale/missing memory is degraded, not fatal.
func (s Store) LoadAll(ctx context.Context, symbol, tradeDate string, queries map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(queries))
	var mu sync.Mutex
	var g errgroup.Group
	for role, query := range queries {
		role, query := role, query
		g.Go(func() error {
			text, err := s.Lookup(ctx, role, symbol, tradeDate, query)
			if err != nil {
				log.Warn().Err(err).Str("role", role).Str("symbol", symbol).Msg("memory lookup failed, continuing without it")
				text = ""
			}
			mu.Lock()
			out[role] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// recommendationMaxLen is PersistMemories' stored-recommendation cap
// (spec §4.5, §3's PersonaMemory: "a truncated 240-char recommendation").
const recommendationMaxLen = 240

// Persist writes one role's summary to both stores. situation is the
// deterministic context key (buildSituationSummary) embedded for the
// vector store; text is the full prose, truncated to recommendationMaxLen
// before being stored alongside the embedding so a later similarity
// lookup has something to read back. Persistence is best-effort (spec
// §4.8): callers should log and continue rather than fail the run when
// this returns an error, and PersistMemories at the graph layer bounds
// concurrency to 3 simultaneous writes.
func (s Store) Persist(ctx context.Context, role, symbol, tradeDate, situation, text string) error {
	var firstErr error
	if s.RoleSummaries != nil {
		if err := s.RoleSummaries.Save(ctx, persistence.RoleSummary{
			Role: role, Symbol: symbol, TradeDate: tradeDate, Summary: text,
		}); err != nil {
			firstErr = fmt.Errorf("save role summary for %s: %w", role, err)
		}
	}
	if s.Vectors != nil && s.Embedder != nil && situation != "" {
		vecs, err := s.Embedder.Embed(ctx, []string{situation})
		if err == nil && len(vecs) > 0 {
			id := vectorID(role, symbol, tradeDate)
			if uerr := s.Vectors.Upsert(ctx, id, vecs[0], map[string]string{
				"role": role, "symbol": symbol, "trade_date": tradeDate,
				"situation":      situation,
				"recommendation": truncate(text, recommendationMaxLen),
			}); uerr != nil && firstErr == nil {
				firstErr = fmt.Errorf("upsert vector for %s: %w", role, uerr)
			}
		}
	}
	return firstErr
}

// reflectionTopK is the bull/bear persona-reflection fan-in width (spec
// §3's PersonaMemory: "read... by bull/bear nodes (persona-specific
// reflections, top-k=2)").
const reflectionTopK = 2

// Reflect returns persona-specific reflections for a debate node (bull or
// bear) from the persona-vector store only — these never consult the
// role-summary store, which is keyed to the three roles LoadAll loads
// once per run, not to individual debate personas.
func (s Store) Reflect(ctx context.Context, persona, situation string) (string, error) {
	if s.Vectors == nil || s.Embedder == nil || situation == "" {
		return "", nil
	}
	vecs, err := s.Embedder.Embed(ctx, []string{situation})
	if err != nil || len(vecs) == 0 {
		return "", nil
	}
	results, err := s.Vectors.SimilaritySearch(ctx, vecs[0], reflectionTopK, map[string]string{"role": persona})
	if err != nil {
		return "", fmt.Errorf("reflection search for %s: %w", persona, err)
	}
	return joinVectorResults(results), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (s Store) topK() int {
	if s.TopK > 0 {
		return s.TopK
	}
	return 3
}

func joinSummaries(rows []persistence.RoleSummary) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = r.Summary
	}
	return strings.Join(parts, "\n---\n")
}

func joinVectorResults(results []databases.VectorResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if rec, ok := r.Metadata["recommendation"]; ok && rec != "" {
			parts = append(parts, rec)
		}
	}
	return strings.Join(parts, "\n---\n")
}

func vectorID(role, symbol, tradeDate string) string {
	return strings.ToLower(role + ":" + symbol + ":" + tradeDate)
}
