package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/elonfeng/clawbeat/internal/ingest"
	"github.com/elonfeng/clawbeat/pkg/alert"
	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

// Default cron specs, evaluated in the curator's civil zone.
const (
	DefaultCollectSpec = "*/30 * * * *"
	DefaultPublishSpec = "0 17 * * *"
)

// Collector runs one ingestion pass.
type Collector interface {
	Run(ctx context.Context) (ingest.Result, error)
}

// Repository is the slice of the store publishing needs.
type Repository interface {
	Snapshot(ctx context.Context, window int) (dispatch.Snapshot, error)
	MarkDispatchAlerted(ctx context.Context, date string) (bool, error)
}

// Scheduler runs periodic collection and the daily spotlight announcement.
type Scheduler struct {
	repo        Repository
	collector   Collector
	curator     *dispatch.Curator
	alertMgr    *alert.Manager
	collectSpec string
	publishSpec string
	window      int
}

// New creates a new scheduler.
func New(
	repo Repository,
	collector Collector,
	curator *dispatch.Curator,
	alertMgr *alert.Manager,
	collectSpec, publishSpec string,
	window int,
) *Scheduler {
	if collectSpec == "" {
		collectSpec = DefaultCollectSpec
	}
	if publishSpec == "" {
		publishSpec = DefaultPublishSpec
	}
	return &Scheduler{
		repo:        repo,
		collector:   collector,
		curator:     curator,
		alertMgr:    alertMgr,
		collectSpec: collectSpec,
		publishSpec: publishSpec,
		window:      window,
	}
}

// Run collects once, then runs both jobs on their cron specs. Blocks until
// ctx is cancelled and in-flight jobs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.curator.Location()))

	if _, err := c.AddFunc(s.collectSpec, func() { s.Collect(ctx) }); err != nil {
		return fmt.Errorf("schedule collect %q: %w", s.collectSpec, err)
	}
	if _, err := c.AddFunc(s.publishSpec, func() {
		if err := s.Publish(ctx); err != nil {
			slog.Error("publish failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule publish %q: %w", s.publishSpec, err)
	}

	slog.Info("scheduler: initial collection")
	s.Collect(ctx)

	c.Start()
	slog.Info("scheduler: running", "collect", s.collectSpec, "publish", s.publishSpec, "zone", s.curator.Location().String())

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("scheduler: stopped")
	return ctx.Err()
}

// Collect runs one ingestion pass and logs the outcome.
func (s *Scheduler) Collect(ctx context.Context) {
	if _, err := s.collector.Run(ctx); err != nil {
		slog.Error("collect failed", "err", err)
	}
}

// Publish announces today's spotlight. Each dispatch day is announced at
// most once, even across restarts.
func (s *Scheduler) Publish(ctx context.Context) error {
	if s.alertMgr == nil || !s.alertMgr.HasNotifiers() {
		return nil
	}

	date := s.curator.Today().Key()
	snap, err := s.repo.Snapshot(ctx, s.window)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	slots := s.curator.Spotlight(snap, date)
	if len(slots) == 0 {
		slog.Info("publish: no spotlight", "date", date)
		return nil
	}

	first, err := s.repo.MarkDispatchAlerted(ctx, date)
	if err != nil {
		return err
	}
	if !first {
		slog.Info("publish: already announced", "date", date)
		return nil
	}

	if err := s.alertMgr.Broadcast(ctx, alert.NewSpotlightNotification(date, slots)); err != nil {
		return fmt.Errorf("broadcast %s: %w", date, err)
	}
	slog.Info("publish: announced", "date", date, "slots", len(slots))
	return nil
}
