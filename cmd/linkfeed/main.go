package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/linkfeed/internal/config"
	"github.com/IshaanNene/linkfeed/internal/engine"
	"github.com/IshaanNene/linkfeed/internal/fetcher"
	"github.com/IshaanNene/linkfeed/internal/observability"
	"github.com/IshaanNene/linkfeed/internal/storage"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linkfeed [flags] URL...",
		Short: "linkfeed turns the links of a web page into an RSS feed",
		Long: `linkfeed downloads one or more start pages, collects their links and
writes a feed with one item per link. With --follow every linked page is
downloaded too, and the item title, date, author, categories and body are
located through XPath, CSS selectors, regexes and page metadata.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         runFeed,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	config.RegisterFlags(rootCmd.Flags())

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// runFeed executes the root command.
func runFeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	if err := config.Validate(cfg); err != nil {
		return fail(cfg, logger, args, err)
	}
	for _, rawURL := range args {
		if err := config.ValidateURL(rawURL); err != nil {
			return fail(cfg, logger, args, fmt.Errorf("invalid URL %q: %w", rawURL, err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := fetcher.NewSession(&cfg.Fetcher, logger)
	if err != nil {
		return fail(cfg, logger, args, err)
	}
	httpFetcher := fetcher.NewHTTPFetcher(&cfg.Fetcher, session, logger)
	defer httpFetcher.Close()

	metrics := observability.NewMetrics(logger)
	eng, err := engine.New(cfg, httpFetcher, session, metrics, logger)
	if err != nil {
		return fail(cfg, logger, args, err)
	}

	if cfg.Feed.Test {
		if err := eng.TestReport(ctx, args, cmd.OutOrStdout()); err != nil {
			logger.Error("test run failed", "error", err)
			return err
		}
		return nil
	}

	logger.Info("building feed", "urls", args, "follow", cfg.Feed.Follow, "max_links", cfg.Links.MaxLinks)

	start := time.Now()
	feed, err := eng.Run(ctx, args)
	if err != nil {
		return fail(cfg, logger, args, err)
	}

	writer, err := storage.NewFeedWriter(cfg.Output.Format, logger)
	if err != nil {
		return fail(cfg, logger, args, err)
	}
	if err := storage.NewOutput(cfg.Output.Path, writer, logger).Write(feed); err != nil {
		logger.Error("writing feed failed", "error", err)
		return err
	}

	if cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Warn("writing metrics failed", "error", err)
		}
	}

	logger.Info("done",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"items", len(feed.Items),
		"metrics", metrics.Snapshot(),
	)
	return nil
}

// fail logs err and, unless disabled, writes a feed describing it in place
// of the regular one. It always returns err so the process exits non-zero.
func fail(cfg *config.Config, logger *slog.Logger, args []string, err error) error {
	logger.Error("feed generation failed", "error", err)

	if cfg.Output.NoExceptionFeed {
		return err
	}

	writer, werr := storage.NewFeedWriter(cfg.Output.Format, logger)
	if werr != nil {
		writer = storage.NewRSSWriter(logger)
	}
	feed := storage.ExceptionFeed(err, os.Args, args, time.Now())
	if werr := storage.NewOutput(cfg.Output.Path, writer, logger).Write(feed); werr != nil {
		logger.Error("writing exception feed failed", "error", werr)
		return errors.Join(err, werr)
	}
	return err
}
