package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"signal-screener/internal/catalog"
	"signal-screener/internal/logger"
	"signal-screener/internal/normalize"
	"signal-screener/internal/reportlog"
	"signal-screener/internal/store"
	"signal-screener/internal/trace"
	"signal-screener/internal/types"
)

var version = "dev"

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	shutdownCtx := context.Background()
	if terr := trace.Shutdown(shutdownCtx); terr != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown tracer: %v\n", terr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "screener",
		Short: "Headline normalization and threshold stock screening",
		Long: `screener collects market headlines, rewrites $SYMBOL mentions to company
names, and classifies tickers as take_profit, stop_loss or hold from their
price move over a lookback window.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "config.yaml", "Configuration file path")

	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newHeadlinesCmd())
	root.AddCommand(newScreenCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func configFromFlags(cmd *cobra.Command) (*store.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return loadConfig(cmd.Context(), path)
}

// newNormalizeCmd rewrites text given as arguments, or stdin line by line
func newNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Replace $SYMBOL tokens with catalog titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}

			path := cfg.Catalog.Path
			if cmd.Flags().Changed("catalog") {
				path, _ = cmd.Flags().GetString("catalog")
			}
			cat, err := loadCatalog(ctx, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if list, _ := cmd.Flags().GetBool("list"); list {
				return listCatalog(out, cat)
			}
			if len(args) > 0 {
				fmt.Fprintln(out, normalize.Text(strings.Join(args, " "), cat))
				return nil
			}
			return normalizeStream(cmd.InOrStdin(), out, cat)
		},
	}
	cmd.Flags().String("catalog", "", "Ticker catalog path (overrides config; empty disables)")
	cmd.Flags().Bool("list", false, "Print every catalog symbol and title instead of normalizing")
	return cmd
}

// listCatalog prints one "SYMBOL<TAB>title" line per entry, by symbol
func listCatalog(out io.Writer, cat *catalog.Catalog) error {
	for _, sym := range cat.Symbols() {
		e, _ := cat.Entry(sym)
		if _, err := fmt.Fprintf(out, "%s\t%s\n", e.Symbol, e.Title); err != nil {
			return err
		}
	}
	return nil
}

func normalizeStream(in io.Reader, out io.Writer, titles normalize.Lookup) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if _, err := fmt.Fprintln(out, normalize.Text(sc.Text(), titles)); err != nil {
			return err
		}
	}
	return sc.Err()
}

// newHeadlinesCmd aggregates headlines from configured sources
func newHeadlinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headlines",
		Short: "Fetch and normalize headlines from configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(ctx, cfg.Catalog.Path)
			if err != nil {
				return err
			}
			agg, err := initializeAggregator(cfg, cat)
			if err != nil {
				return err
			}

			ids, _ := cmd.Flags().GetStringSlice("source")
			asJSON, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if asJSON {
				return writeJSON(out, agg.Collect(ctx, ids))
			}
			for _, h := range agg.Aggregate(ctx, ids) {
				fmt.Fprintln(out, h)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("source", nil, "Source ids to fetch (default: all, in config order)")
	cmd.Flags().Bool("json", false, "Print per-source results as JSON")
	return cmd
}

// newScreenCmd screens an explicit ticker list or a sector universe
func newScreenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Classify tickers against stop-loss and take-profit thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			if _, err := loadCatalog(ctx, cfg.Catalog.Path); err != nil {
				return err
			}
			s, err := initializeScreener(ctx, cfg)
			if err != nil {
				return err
			}

			tickers, _ := cmd.Flags().GetStringSlice("tickers")
			sector, _ := cmd.Flags().GetString("sector")
			risk, _ := cmd.Flags().GetString("risk")
			format, _ := cmd.Flags().GetString("format")

			profile := types.Profile{Sector: sector, RiskTolerance: risk}
			if profile.Sector == "" {
				profile.Sector = cfg.Profile.Sector
			}
			if profile.RiskTolerance == "" {
				profile.RiskTolerance = cfg.Profile.RiskTolerance
			}

			th, err := cfg.RiskThresholds(profile.RiskTolerance)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("stop-loss") {
				th.StopLoss, _ = cmd.Flags().GetFloat64("stop-loss")
			}
			if cmd.Flags().Changed("take-profit") {
				th.TakeProfit, _ = cmd.Flags().GetFloat64("take-profit")
			}
			profile.Thresholds = &th

			var report *types.Report
			if len(tickers) > 0 {
				report, err = s.Screen(ctx, tickers, th)
			} else {
				report, err = s.ScreenProfile(ctx, profile)
			}
			if err != nil {
				var thErr *types.InvalidThresholdError
				if errors.As(err, &thErr) {
					logger.Error(ctx, "Rejected screening request", "field", thErr.Field, "value", thErr.Value)
				}
				return err
			}

			if journal, _ := cmd.Flags().GetBool("journal"); journal {
				if err := reportlog.New(cfg.ReportLog.Dir).Append(report); err != nil {
					logger.Warn(ctx, "Failed to journal report", "error", err)
				}
			}

			return writeReport(cmd.OutOrStdout(), report, format)
		},
	}
	cmd.Flags().StringSlice("tickers", nil, "Tickers to screen (default: the sector universe)")
	cmd.Flags().String("sector", "", "Investment sector (default from config profile)")
	cmd.Flags().String("risk", "", "Risk tolerance: Low, Medium or High (default from config profile)")
	cmd.Flags().Float64("stop-loss", 0, "Stop-loss fraction in (0,1], overrides the risk default")
	cmd.Flags().Float64("take-profit", 0, "Take-profit fraction in (0,1], overrides the risk default")
	cmd.Flags().String("format", "json", "Output format: json, table or csv")
	cmd.Flags().Bool("journal", false, "Append the report to the report journal")
	return cmd
}

// newRunCmd screens the configured profile on a cron schedule until
// interrupted
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Aggregate headlines and screen the configured profile on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(ctx, cfg.Catalog.Path)
			if err != nil {
				return err
			}
			agg, err := initializeAggregator(cfg, cat)
			if err != nil {
				return err
			}
			s, err := initializeScreener(ctx, cfg)
			if err != nil {
				return err
			}
			journal := reportlog.New(cfg.ReportLog.Dir)

			profile := types.Profile{Sector: cfg.Profile.Sector, RiskTolerance: cfg.Profile.RiskTolerance}
			tick := func() {
				compressOldReports(ctx, journal, cfg.ReportLog.RetentionDays)
				cleanupQuoteCache(ctx, cfg)

				headlines := agg.Aggregate(ctx, nil)
				logger.Info(ctx, "Headlines aggregated", "count", len(headlines))

				report, err := s.ScreenProfile(ctx, profile)
				if err != nil {
					logger.ErrorWithErr(ctx, "Scheduled screening failed", err)
					return
				}
				if err := journal.Append(report); err != nil {
					logger.Warn(ctx, "Failed to journal report", "error", err)
				}
				logger.Info(ctx, "Scheduled screening completed",
					"run_id", report.RunID,
					"selected", report.Selected,
				)
			}

			c := cron.New()
			if _, err := c.AddFunc(cfg.Schedule.Cron, tick); err != nil {
				return fmt.Errorf("invalid schedule.cron %q: %w", cfg.Schedule.Cron, err)
			}

			logger.Info(ctx, "Screener started", "schedule", cfg.Schedule.Cron, "sector", profile.Sector, "risk", profile.RiskTolerance)
			tick()
			c.Start()

			<-ctx.Done()
			logger.Info(ctx, "Shutting down...")
			<-c.Stop().Done()
			return nil
		},
	}
}

// newHistoryCmd prints the reports journaled on one day
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled screening reports for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}

			dateStr, _ := cmd.Flags().GetString("date")
			format, _ := cmd.Flags().GetString("format")

			day := time.Now().UTC()
			if dateStr != "" {
				day, err = time.Parse(time.DateOnly, dateStr)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", dateStr)
				}
			}

			reports, err := reportlog.New(cfg.ReportLog.Dir).ReadDay(day)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no reports journaled on %s", day.Format(time.DateOnly))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, reports)
			}
			for i := range reports {
				if err := writeReport(out, &reports[i], format); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().String("date", "", "Journal day as YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().String("format", "table", "Output format: json, table or csv")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "screener %s\n", version)
		},
	}
}
