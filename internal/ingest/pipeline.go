package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/elonfeng/clawbeat/internal/store"
	"github.com/elonfeng/clawbeat/pkg/dispatch"
	"github.com/elonfeng/clawbeat/pkg/source"
)

// DefaultHistory is how many stored stories new items are clustered against.
const DefaultHistory = 200

// Repository is the slice of the store the pipeline needs.
type Repository interface {
	ListNewsItems(ctx context.Context, opts store.ListOpts) ([]dispatch.NewsItem, error)
	KnownURLs(ctx context.Context, urls []string) (map[string]bool, error)
	UpsertNewsItems(ctx context.Context, items []dispatch.NewsItem) error
}

// Result summarises one ingestion run.
type Result struct {
	Collected int `json:"collected"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
}

// Pipeline collects stories, groups coverage, and stores the result.
type Pipeline struct {
	repo    Repository
	sources []source.Source
	history int
}

// New creates a pipeline over the given sources.
func New(repo Repository, sources []source.Source, history int) *Pipeline {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Pipeline{repo: repo, sources: sources, history: history}
}

// Run performs one collection pass. A failing source is logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	var batch []dispatch.NewsItem
	for _, src := range p.sources {
		items, err := src.Collect(ctx)
		if err != nil {
			slog.Warn("collect failed", "source", src.Name(), "err", err)
			continue
		}
		slog.Info("collected", "source", src.Name(), "items", len(items))
		batch = append(batch, items...)
	}

	res := Result{Collected: len(batch)}
	if len(batch) == 0 {
		return res, nil
	}

	history, err := p.repo.ListNewsItems(ctx, store.ListOpts{Limit: p.history})
	if err != nil {
		return res, fmt.Errorf("load history: %w", err)
	}
	stored := lo.SliceToMap(history, func(item dispatch.NewsItem) (string, bool) {
		return item.URL, true
	})

	// Stories stored before the history window are left untouched.
	older, err := p.repo.KnownURLs(ctx, lo.FilterMap(batch, func(item dispatch.NewsItem, _ int) (string, bool) {
		return item.URL, !stored[item.URL]
	}))
	if err != nil {
		return res, fmt.Errorf("check stored urls: %w", err)
	}
	if len(older) > 0 {
		batch = lo.Reject(batch, func(item dispatch.NewsItem, _ int) bool { return older[item.URL] })
		slog.Debug("skipped stories outside history window", "count", len(older))
	}

	writes := source.Cluster(history, batch)
	res.Updated = lo.CountBy(writes, func(item dispatch.NewsItem) bool { return stored[item.URL] })
	res.Added = len(writes) - res.Updated

	if err := p.repo.UpsertNewsItems(ctx, writes); err != nil {
		return res, fmt.Errorf("store items: %w", err)
	}

	slog.Info("ingest complete", "collected", res.Collected, "added", res.Added, "updated", res.Updated)
	return res, nil
}
