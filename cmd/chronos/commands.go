package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"chronos/internal/config"
	"chronos/internal/ics"
	appLog "chronos/internal/log"
	"chronos/internal/model"
	"chronos/internal/reminder"
	"chronos/internal/schedule"
	"chronos/internal/web"
)

// cliFlags holds values shared by every subcommand.
type cliFlags struct {
	configPath string
	listen     string
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:           "chronos",
		Short:         "Timeline of tasks and events with a daily agenda",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Bare "chronos" runs the server.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "./chronos.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&flags.listen, "listen", "", "HTTP listen address (overrides config if set)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and daily digest",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), flags)
			},
		},
		&cobra.Command{
			Use:   "agenda [YYYY-MM-DD]",
			Short: "Print the ordered agenda for a day (default today)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore(cmd.Context(), flags)
				if err != nil {
					return err
				}
				date := store.Today()
				if len(args) == 1 {
					if date, err = model.ParseDate(args[0]); err != nil {
						return err
					}
				}
				return printAgenda(cmd.OutOrStdout(), store, date)
			},
		},
		&cobra.Command{
			Use:   "vault",
			Short: "Print every item in insertion order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openStore(cmd.Context(), flags)
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), store.Items(), store.Today())
			},
		},
		&cobra.Command{
			Use:   "month [YYYY-MM]",
			Short: "Print busy days of a month (default this month)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore(cmd.Context(), flags)
				if err != nil {
					return err
				}
				today := store.Today()
				year, month := today.Year, today.Month
				if len(args) == 1 {
					t, err := time.Parse("2006-01", args[0])
					if err != nil {
						return fmt.Errorf("month must be YYYY-MM: %w", err)
					}
					year, month = t.Year(), t.Month()
				}
				return printMonth(cmd.OutOrStdout(), store, year, month)
			},
		},
		&cobra.Command{
			Use:   "export",
			Short: "Write the timeline as an iCalendar document to stdout",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openStore(cmd.Context(), flags)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), ics.Export(store.Items(), store.Location(), time.Now()))
				return err
			},
		},
	)
	return root
}

// loadConfig reads the config file, applies CLI overrides and the log level.
func loadConfig(flags *cliFlags) (*config.Config, error) {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	return conf, nil
}

// buildStore creates the store in the configured zone, seeds it and
// imports the configured ICS subscriptions once. The returned Refresher is
// nil when no subscriptions are configured.
func buildStore(ctx context.Context, conf *config.Config) (*schedule.Store, *ics.Refresher, error) {
	loc, err := conf.Location()
	if err != nil {
		return nil, nil, err
	}

	store := schedule.New(
		schedule.WithLocation(loc),
		schedule.WithNotifier(reminder.LogSink{}),
	)
	if conf.SeedSample {
		schedule.SeedSample(store, store.Today())
	}

	if len(conf.ICS) == 0 {
		return store, nil, nil
	}
	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		sources = append(sources, ics.Source{ID: c.ID, URL: c.URL})
	}
	im := ics.NewImporter(store, ics.NewFetcher(conf.CacheDir, nil))
	refresher, err := ics.NewRefresher(im, sources, conf.HorizonDays, conf.RefreshCron)
	if err != nil {
		return nil, nil, err
	}
	if _, err := refresher.RunOnce(ctx); err != nil {
		return nil, nil, err
	}
	return store, refresher, nil
}

func openStore(ctx context.Context, flags *cliFlags) (*schedule.Store, error) {
	conf, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	store, _, err := buildStore(ctx, conf)
	return store, err
}

func runServe(parent context.Context, flags *cliFlags) error {
	appLog.Info("chronos starting", "version", version)

	conf, err := loadConfig(flags)
	if err != nil {
		return err
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"digest", conf.DigestCron,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"seed_sample", conf.SeedSample,
		"ics_count", len(conf.ICS),
	)

	if parent == nil {
		parent = context.Background()
	}
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	store, refresher, err := buildStore(ctx, conf)
	if err != nil {
		return err
	}
	if refresher != nil {
		if err := refresher.Start(ctx); err != nil {
			return err
		}
	}

	digest, err := reminder.NewDigest(store, conf.DigestCron)
	if err != nil {
		return err
	}
	if err := digest.Start(ctx); err != nil {
		return err
	}

	srv := web.NewServer(store, conf.WeekStart)
	if err := srv.ListenAndServe(ctx, conf.Listen); err != nil {
		return err
	}
	appLog.Info("chronos exiting")
	return nil
}

func printAgenda(w io.Writer, store *schedule.Store, date model.Date) error {
	items := store.ItemsForDate(date)
	fmt.Fprintf(w, "%s (%d items)\n", date, len(items))
	return printItems(w, items, store.Today())
}

func printItems(w io.Writer, items []model.TimelineItem, today model.Date) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.Date, it.Kind, whenLabel(it), it.Title, statusLabel(it, today))
	}
	return tw.Flush()
}

func printMonth(w io.Writer, store *schedule.Store, year int, month time.Month) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range store.MonthSummary(year, month) {
		mark := ""
		if d.HasMissed {
			mark = "missed"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", d.Date, d.Count, mark)
	}
	fmt.Fprintf(tw, "remaining\t%d\t\n", store.Remaining())
	return tw.Flush()
}

func whenLabel(it model.TimelineItem) string {
	switch {
	case it.IsEvent() && it.Event.AllDay:
		return "all day"
	case it.IsEvent():
		return it.Event.Start.String() + "-" + it.Event.End.String()
	case it.IsTask() && it.Task.DeadlineDate != nil:
		return "due " + it.Task.DeadlineDate.String()
	default:
		return "-"
	}
}

func statusLabel(it model.TimelineItem, today model.Date) string {
	switch {
	case !it.IsTask():
		return ""
	case it.Task.Completed:
		return "done"
	case it.IsMissed(today):
		return "missed"
	default:
		return string(it.Task.Priority)
	}
}
