package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/clawbeat/internal/config"
	"github.com/elonfeng/clawbeat/internal/ingest"
	"github.com/elonfeng/clawbeat/internal/scheduler"
	"github.com/elonfeng/clawbeat/internal/store"
	"github.com/elonfeng/clawbeat/pkg/alert"
	"github.com/elonfeng/clawbeat/pkg/dispatch"
	"github.com/elonfeng/clawbeat/pkg/server"
	"github.com/elonfeng/clawbeat/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// openStore opens the database and, when the config lists publishers,
// makes that list the stored whitelist.
func openStore(ctx context.Context, cfg *config.Config) (*store.SQLStore, error) {
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if len(cfg.Whitelist) > 0 {
		entries := lo.Map(cfg.Whitelist, func(w config.WhitelistEntry, _ int) dispatch.WhitelistEntry {
			return dispatch.WhitelistEntry{
				SourceName: w.SourceName,
				WebsiteURL: w.WebsiteURL,
				RSSURL:     w.RSSURL,
				SourceType: dispatch.SourceType(w.SourceType),
			}
		})
		if err := db.ReplaceWhitelist(ctx, entries); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

func buildCurator(cfg *config.Config) *dispatch.Curator {
	return dispatch.NewCurator(cfg.Dispatch.Weights, cfg.Dispatch.Location(), cfg.Dispatch.PageSize)
}

func buildPipeline(ctx context.Context, cfg *config.Config, db *store.SQLStore) (*ingest.Pipeline, error) {
	whitelist, err := db.ListWhitelist(ctx)
	if err != nil {
		return nil, err
	}

	var sources []source.Source
	if cfg.Sources.RSS.Enabled {
		filter := source.NewFilter(cfg.Sources.Keywords, cfg.Sources.ExcludeKeywords)
		sources = append(sources, source.NewRSS(whitelist, filter, cfg.Sources.RSS.LimitPerFeed, cfg.Dispatch.Location()))
	}
	return ingest.New(db, sources, cfg.Sources.HistoryWindow), nil
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func buildServer(cfg *config.Config, db *store.SQLStore, pipeline *ingest.Pipeline, port int) *server.Server {
	if port == 0 {
		port = cfg.Server.Port
	}
	return server.New(db, buildCurator(cfg), pipeline, server.Options{
		Port:           port,
		PageSize:       cfg.Dispatch.PageSize,
		MaxPageSize:    cfg.Dispatch.MaxPageSize,
		Window:         cfg.Dispatch.Window,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
}

// withStore loads config, opens the store and runs fn.
func withStore(ctx context.Context, fn func(cfg *config.Config, db *store.SQLStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cfg, db)
}

func runCollect(ctx context.Context) error {
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		pipeline, err := buildPipeline(ctx, cfg, db)
		if err != nil {
			return err
		}
		res, err := pipeline.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "collected %d stories: %d new, %d updated\n", res.Collected, res.Added, res.Updated)
		return nil
	})
}

func runPage(ctx context.Context, page, pageSize int, jsonOutput bool) error {
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		snap, err := db.Snapshot(ctx, cfg.Dispatch.Window)
		if err != nil {
			return err
		}
		view := buildCurator(cfg).Page(snap, page, min(pageSize, cfg.Dispatch.MaxPageSize))

		if jsonOutput {
			return printJSON(view)
		}

		if view.TotalItems == 0 {
			fmt.Println("no stories yet (try collecting first: clawbeat collect)")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "page %d of %d (%d stories)\n", view.CurrentPage, view.TotalPages, view.TotalItems)
		for _, day := range view.Days {
			fmt.Fprintf(w, "\n== %s ==\n", day.Day)
			for _, slot := range day.Spotlight {
				fmt.Fprintf(w, "  *%d\t%s\t%s\t[%s]\n", slot.Slot, slot.Origin, slot.Title, source.DisplaySource(slot.Source))
			}
			for _, item := range day.River {
				mark := lo.Ternary(item.Verified, "✓", " ")
				fmt.Fprintf(w, "  %d\t%s %d\t%s\t[%s]\n", item.Position+1, mark, item.Score, item.Title, source.DisplaySource(item.Source))
			}
		}
		return w.Flush()
	})
}

func runSpotlight(ctx context.Context, date string, jsonOutput bool) error {
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		curator := buildCurator(cfg)
		if date == "" {
			date = curator.Today().Key()
		}
		if dispatch.ParseDispatchDate(date) == 0 {
			return fmt.Errorf("invalid dispatch date %q, want MM-DD-YYYY", date)
		}

		snap, err := db.Snapshot(ctx, cfg.Dispatch.Window)
		if err != nil {
			return err
		}
		slots := curator.Spotlight(snap, date)

		if jsonOutput {
			return printJSON(slots)
		}
		if len(slots) == 0 {
			fmt.Printf("no spotlight for %s\n", dispatch.DayKey(date))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SLOT\tORIGIN\tSCORE\tSOURCE\tTITLE")
		for _, s := range slots {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", s.Slot, s.Origin, s.Score, source.DisplaySource(s.Source), s.Title)
		}
		return w.Flush()
	})
}

func runOverrideSet(ctx context.Context, args []string, title, src, summary string, tags []string) error {
	slot, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", args[1], err)
	}
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		o := dispatch.Override{
			DispatchDate: args[0],
			Slot:         slot,
			URL:          args[2],
			Title:        title,
			Source:       src,
			Summary:      summary,
			Tags:         tags,
		}
		// Fill blanks from the stored story, if there is one.
		if item, err := db.GetNewsItem(ctx, o.URL); err == nil {
			o.Title = lo.CoalesceOrEmpty(o.Title, item.Title)
			o.Source = lo.CoalesceOrEmpty(o.Source, item.Source)
			o.Summary = lo.CoalesceOrEmpty(o.Summary, item.Summary)
			if len(o.Tags) == 0 {
				o.Tags = item.Tags
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := db.UpsertOverride(ctx, o); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "pinned %s to slot %d of %s\n", o.URL, o.Slot, dispatch.DayKey(o.DispatchDate))
		return nil
	})
}

func runOverrideRemove(ctx context.Context, args []string) error {
	slot, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", args[1], err)
	}
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		return db.DeleteOverride(ctx, args[0], slot)
	})
}

func runOverrideList(ctx context.Context, date string) error {
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		overrides, err := db.ListOverrides(ctx, date)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tSLOT\tURL\tTITLE\tTAGS")
		for _, o := range overrides {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", o.DispatchDate, o.Slot, o.URL, o.Title, strings.Join(o.Tags, ","))
		}
		return w.Flush()
	})
}

func runEditionAdd(ctx context.Context, isoDate string) error {
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		return db.AddEditionDate(ctx, isoDate)
	})
}

func runServe(ctx context.Context, port int) error {
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		pipeline, err := buildPipeline(ctx, cfg, db)
		if err != nil {
			return err
		}
		return buildServer(cfg, db, pipeline, port).ListenAndServe(ctx)
	})
}

func runDaemon(ctx context.Context, port int) error {
	return withStore(ctx, func(cfg *config.Config, db *store.SQLStore) error {
		pipeline, err := buildPipeline(ctx, cfg, db)
		if err != nil {
			return err
		}

		sched := scheduler.New(db, pipeline, buildCurator(cfg), buildAlertManager(cfg),
			cfg.Schedule.Collect, cfg.Schedule.Publish, cfg.Dispatch.Window)
		srv := buildServer(cfg, db, pipeline, port)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("scheduler: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return srv.ListenAndServe(ctx)
		})

		err = g.Wait()
		slog.Info("shut down")
		return err
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
