package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/collector"
	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/db"
	"github.com/billmal071/narubooks/internal/logging"
	"github.com/billmal071/narubooks/internal/metrics"
	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/notify"
	"github.com/billmal071/narubooks/internal/snapshot"
	"github.com/billmal071/narubooks/internal/tui"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect holdings and write the snapshot",
	Long: `Enumerate the region's libraries, page through every library's holdings,
deduplicate and write the snapshot. Running narubooks with no subcommand
does the same.

A library that fails keeps whatever was collected before the failure and
the run continues; the run still exits 0. Failures are listed in the
snapshot's "failures" field.

Examples:
  narubooks collect
  narubooks collect --popular --scope global
  narubooks collect --output site/public/books.json --metrics /var/lib/node_exporter/narubooks.prom`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	addCollectFlags(collectCmd)
}

func addCollectFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "snapshot path (overrides output.path)")
	cmd.Flags().String("region", "", "region to collect (overrides naru.region)")
	cmd.Flags().String("scope", "", "dedupe scope: library or global (overrides collect.dedupe_scope)")
	cmd.Flags().Int("max-pages", 0, "page cap per library (overrides collect.library_max_pages)")
	cmd.Flags().Bool("popular", false, "also collect each library's loan ranking")
	cmd.Flags().String("metrics", "", "write Prometheus metrics to this textfile")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	cmd.Flags().Bool("no-notify", false, "skip the desktop notification")
}

// applyCollectFlags copies explicitly set flags over the loaded config
func applyCollectFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("output") {
		cfg.Output.Path = getString(cmd, "output")
	}
	if cmd.Flags().Changed("region") {
		cfg.Naru.Region = getString(cmd, "region")
	}
	if cmd.Flags().Changed("scope") {
		cfg.Collect.DedupeScope = getString(cmd, "scope")
	}
	if cmd.Flags().Changed("max-pages") {
		cfg.Collect.LibraryMaxPages, _ = cmd.Flags().GetInt("max-pages")
	}
	if cmd.Flags().Changed("popular") {
		cfg.Collect.IncludePopular, _ = cmd.Flags().GetBool("popular")
	}
	if cmd.Flags().Changed("metrics") {
		cfg.Output.MetricsPath = getString(cmd, "metrics")
	}
	if noNotify, _ := cmd.Flags().GetBool("no-notify"); noNotify {
		cfg.Notify.Enabled = false
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	applyCollectFlags(cmd, cfg)

	// Missing key is fatal before any network activity
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := naru.NewClientFromConfig(cfg)
	opts := collector.OptionsFromConfig(cfg)
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
		opts.Progress = os.Stderr
	}
	c := collector.New(client, collector.SourceFromConfig(cfg, client), opts)

	var run *db.Run
	if db.Ready() {
		r, err := db.StartRun(cfg.Naru.Region)
		if err != nil {
			logging.Warn().Err(err).Msg("run will not be recorded")
		} else {
			run = r
		}
	}

	logging.Info().
		Str("region", cfg.Naru.Region).
		Str("output", cfg.Output.Path).
		Str("scope", string(opts.DedupeScope)).
		Msg("collection started")

	snap, summary, err := c.Run(cmd.Context())
	if err != nil {
		finishRun(run, db.RunFailed, nil, "", err)
		notify.RunFailed(err.Error())
		return fmt.Errorf("collection failed: %w", err)
	}
	summary.Log(logging.Logger())

	if err := snapshot.Write(cfg.Output.Path, snap); err != nil {
		finishRun(run, db.RunFailed, summary, "", err)
		notify.RunFailed(err.Error())
		return err
	}

	if cfg.Output.MetricsPath != "" {
		if err := metrics.WriteTextfile(cfg.Output.MetricsPath); err != nil {
			logging.Warn().Err(err).Str("path", cfg.Output.MetricsPath).Msg("failed to write metrics")
		}
	}

	status := db.RunOK
	if summary.LibrariesFailed > 0 {
		status = db.RunPartial
	}
	finishRun(run, status, summary, cfg.Output.Path, nil)
	notify.RunComplete(summary.Unique, summary.Libraries, summary.LibrariesFailed)

	printSummary(os.Stdout, snap, summary, cfg.Output.Path)
	return nil
}

func finishRun(run *db.Run, status db.RunStatus, summary *collector.Summary, output string, runErr error) {
	if run == nil {
		return
	}
	run.Status = status
	run.OutputPath = output
	if summary != nil {
		run.Libraries = summary.Libraries
		run.LibrariesFailed = summary.LibrariesFailed
		run.Collected = summary.Collected
		run.Unique = summary.Unique
		run.Duplicates = summary.Duplicates
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	if err := db.FinishRun(run); err != nil {
		logging.Warn().Err(err).Str("run", run.ID).Msg("failed to record run result")
	}
}

func printSummary(w io.Writer, snap *snapshot.Snapshot, s *collector.Summary, path string) {
	fmt.Fprintln(w, tui.TitleStyle.Render(fmt.Sprintf("%s snapshot written", snap.Region)))
	fmt.Fprintf(w, "  %s: %s libraries\n", snap.Libraries.MarkedKey, tui.AccentStyle.Render(tui.FormatCount(s.Marked)))
	fmt.Fprintf(w, "  others: %s libraries\n", tui.AccentStyle.Render(tui.FormatCount(s.Others)))
	fmt.Fprintf(w, "  books: %s unique of %s collected (%s duplicates removed)\n",
		tui.AccentStyle.Render(tui.FormatCount(s.Unique)), tui.FormatCount(s.Collected), tui.FormatCount(s.Duplicates))
	if s.Popular > 0 {
		fmt.Fprintf(w, "  popular: %s ranked entries\n", tui.FormatCount(s.Popular))
	}
	if len(snap.Failures) > 0 {
		header := fmt.Sprintf("  %d failures:", len(snap.Failures))
		if s.LibrariesFailed > 0 {
			header = fmt.Sprintf("  %d of %d libraries incomplete:", s.LibrariesFailed, s.Libraries)
		}
		fmt.Fprintln(w, tui.WarningStyle.Render(header))
		for _, f := range snap.Failures {
			fmt.Fprintln(w, tui.DimStyle.Render(fmt.Sprintf("    %s (%s) %s: %s", f.Library, f.LibraryCode, f.Stage, f.Error)))
		}
	}
	fmt.Fprintln(w, tui.DimStyle.Render("  → "+path))
}

// getString safely gets a string flag value
func getString(cmd *cobra.Command, name string) string {
	val, _ := cmd.Flags().GetString(name)
	return val
}
