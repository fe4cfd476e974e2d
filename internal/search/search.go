// Package search provides embedding-similarity search over initiatives and
// tasks.
//
// The query text is embedded with the configured provider and matched
// against the pgvector columns by cosine distance. Results from both entity
// kinds are merged into one relevance-ordered list.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/service/embedding"
	"github.com/heroarc/heroarc/internal/storage"
	"github.com/heroarc/heroarc/internal/telemetry"
)

// ErrUnavailable reports that similarity search needs an embedding provider
// and none is configured.
var ErrUnavailable = embedding.ErrDisabled

// MaxQueryLen caps similarity query text.
const MaxQueryLen = 8 * 1024

// Service runs similarity searches.
type Service struct {
	db       *storage.DB
	embedder embedding.Provider
	logger   *slog.Logger

	searchDuration metric.Float64Histogram
}

// New creates a search Service.
func New(db *storage.DB, embedder embedding.Provider, logger *slog.Logger) *Service {
	meter := telemetry.Meter("heroarc/search")
	dur, _ := meter.Float64Histogram("heroarc.search.duration",
		metric.WithDescription("Time to run a similarity search (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		db:             db,
		embedder:       embedder,
		logger:         logger,
		searchDuration: dur,
	}
}

// Similar returns the initiatives and tasks most similar to the query text,
// best match first. Score is cosine similarity in [-1, 1]; rows without an
// embedding never match.
func (s *Service) Similar(ctx context.Context, workspaceID uuid.UUID, query string, limit int) ([]model.SimilarResult, error) {
	if query == "" {
		return nil, model.Invalidf("search: query is required")
	}
	if len(query) > MaxQueryLen {
		return nil, model.Invalidf("search: query exceeds maximum length of %d bytes", MaxQueryLen)
	}
	if limit <= 0 {
		limit = 10
	}

	start := time.Now()
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	ins, err := s.db.SearchInitiativesByEmbedding(ctx, workspaceID, emb, limit)
	if err != nil {
		return nil, err
	}
	ts, err := s.db.SearchTasksByEmbedding(ctx, workspaceID, emb, limit)
	if err != nil {
		return nil, err
	}

	results := make([]model.SimilarResult, 0, len(ins)+len(ts))
	for _, hit := range ins {
		results = append(results, model.SimilarResult{
			EntityType: model.EntityInitiative,
			EntityID:   hit.Initiative.ID,
			Identifier: hit.Initiative.Identifier,
			Title:      hit.Initiative.Title,
			Score:      1 - hit.Distance,
		})
	}
	for _, hit := range ts {
		results = append(results, model.SimilarResult{
			EntityType: model.EntityTask,
			EntityID:   hit.Task.ID,
			Identifier: hit.Task.Identifier,
			Title:      hit.Task.Title,
			Score:      1 - hit.Distance,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.searchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return results, nil
}
