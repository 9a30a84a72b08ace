package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logFormat string
	verbose   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clawbeat",
		Short:         "Curate the daily ClawBeat dispatch",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional.
			_ = godotenv.Load()
			return setupLogger(logFormat, verbose)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(collectCmd())
	root.AddCommand(pageCmd())
	root.AddCommand(spotlightCmd())
	root.AddCommand(overrideCmd())
	root.AddCommand(editionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func setupLogger(format string, debug bool) error {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	var h slog.Handler
	switch format {
	case "text", "":
		h = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Collect stories from whitelisted feeds once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context())
		},
	}
}

func pageCmd() *cobra.Command {
	var (
		page       int
		pageSize   int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Print one page of the dispatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPage(cmd.Context(), page, pageSize, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "stories per page (default: from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func spotlightCmd() *cobra.Command {
	var (
		date       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "spotlight",
		Short: "Print the resolved spotlight of one dispatch day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpotlight(cmd.Context(), date, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "dispatch date MM-DD-YYYY (default: today)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func overrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage editorial spotlight pins",
	}

	var title, src, summary string
	var tags []string
	set := &cobra.Command{
		Use:   "set DATE SLOT URL",
		Short: "Pin a story to a spotlight slot",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			return runOverrideSet(c.Context(), args, title, src, summary, tags)
		},
	}
	set.Flags().StringVar(&title, "title", "", "headline shown in the slot")
	set.Flags().StringVar(&src, "source", "", "source shown in the slot")
	set.Flags().StringVar(&summary, "summary", "", "summary shown in the slot")
	set.Flags().StringSliceVar(&tags, "tag", nil, "tags shown in the slot")

	rm := &cobra.Command{
		Use:   "rm DATE SLOT",
		Short: "Remove a spotlight pin",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return runOverrideRemove(c.Context(), args)
		},
	}

	ls := &cobra.Command{
		Use:   "ls [DATE]",
		Short: "List spotlight pins",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			date := ""
			if len(args) == 1 {
				date = args[0]
			}
			return runOverrideList(c.Context(), date)
		},
	}

	cmd.AddCommand(set, rm, ls)
	return cmd
}

func editionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edition",
		Short: "Record published daily editions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add YYYY-MM-DD",
		Short: "Mark a date as having a daily edition",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runEditionAdd(c.Context(), args[0])
		},
	})
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
