package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

// DefaultFeedLimit is how many entries are read from the top of each feed.
const DefaultFeedLimit = 20

// RSS collects beat stories from the feeds of whitelisted publishers.
type RSS struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []dispatch.WhitelistEntry
	filter *Filter
	limit  int
	loc    *time.Location
	now    func() time.Time
}

// NewRSS creates a collector over every entry that has an RSS URL. Stories
// are dated with today's dispatch date in loc.
func NewRSS(entries []dispatch.WhitelistEntry, filter *Filter, limit int, loc *time.Location) *RSS {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	if filter == nil {
		filter = NewFilter(nil, nil)
	}
	return &RSS{
		client: &http.Client{Timeout: 10 * time.Second},
		parser: gofeed.NewParser(),
		feeds: lo.Filter(entries, func(e dispatch.WhitelistEntry, _ int) bool {
			return e.RSSURL != "" && e.RSSURL != "N/A"
		}),
		filter: filter,
		limit:  limit,
		loc:    loc,
		now:    time.Now,
	}
}

// WithClock sets the time source used for dispatch dates.
func (r *RSS) WithClock(now func() time.Time) *RSS {
	r.now = now
	return r
}

func (r *RSS) Name() string { return "rss" }

// Collect reads all feeds concurrently. A failing feed is logged and
// skipped; an error is returned only when every feed failed.
func (r *RSS) Collect(ctx context.Context) ([]dispatch.NewsItem, error) {
	var (
		results = make([][]dispatch.NewsItem, len(r.feeds))
		errs    = make([]error, len(r.feeds))
		wg      sync.WaitGroup
		sem     = make(chan struct{}, 5) // concurrency limit
	)

	for i, feed := range r.feeds {
		wg.Add(1)
		go func(i int, feed dispatch.WhitelistEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			items, err := r.collectFeed(ctx, feed)
			if err != nil {
				slog.Warn("rss feed failed", "feed", feed.SourceName, "err", err)
				errs[i] = err
				return
			}
			results[i] = items
		}(i, feed)
	}
	wg.Wait()

	if len(r.feeds) > 0 && lo.EveryBy(errs, func(err error) bool { return err != nil }) {
		return nil, fmt.Errorf("all rss feeds failed: %w", errors.Join(errs...))
	}
	return lo.Flatten(results), nil
}

func (r *RSS) collectFeed(ctx context.Context, feed dispatch.WhitelistEntry) ([]dispatch.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.RSSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.SourceName, err)
	}
	req.Header.Set("User-Agent", "clawbeat/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.SourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.SourceName, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.SourceName, err)
	}

	now := r.now()
	date := dispatch.FormatDispatchDate(now.In(r.loc))
	entries := parsed.Items
	if len(entries) > r.limit {
		entries = entries[:r.limit]
	}

	var items []dispatch.NewsItem
	for _, entry := range entries {
		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}
		if link == "" {
			continue
		}

		title := DisplayTitle(feed.SourceName, entry.Title)
		raw := entry.Description
		if raw == "" {
			raw = entry.Content
		}
		text := PlainText(raw)

		if !r.filter.Matches(title + " " + text) {
			continue
		}

		items = append(items, dispatch.NewsItem{
			URL:        link,
			Title:      title,
			Source:     RealSource(feed.SourceName, link, entry.Title),
			Date:       date,
			InsertedAt: now.UTC(),
			Summary:    summarize(text),
			SourceType: feed.SourceType.Normalize(),
			Tags:       entry.Categories,
		})
	}

	return items, nil
}
