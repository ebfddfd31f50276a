package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/db"
	"github.com/billmal071/narubooks/internal/snapshot"
	"github.com/billmal071/narubooks/internal/tui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Check a snapshot for consistency",
	Long: `Load a snapshot and check that its counts agree with its content, that
library codes are unique and that book ids are unique within a library.
The path defaults to output.path, then output.fallback_path.

Examples:
  narubooks verify
  narubooks verify site/public/books.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	var (
		snap *snapshot.Snapshot
		path string
		err  error
	)
	if len(args) == 1 {
		path = args[0]
		snap, err = snapshot.Load(path)
	} else {
		snap, path, err = snapshot.LoadWithFallback(cfg.Output.Path, cfg.Output.FallbackPath)
	}
	if err != nil {
		return err
	}

	fmt.Printf("🔍 %s\n", path)
	fmt.Printf("    Updated:   %s\n", snap.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("    Region:    %s\n", snap.Region)
	fmt.Printf("    Libraries: %d (%s %d, others %d)\n",
		len(snap.Libraries.All()), snap.Libraries.MarkedKey, len(snap.Libraries.Marked), len(snap.Libraries.Others))
	fmt.Printf("    Books:     %s\n", tui.FormatCount(len(snap.Books)))
	if len(snap.Failures) > 0 {
		fmt.Printf("    Failures:  %d\n", len(snap.Failures))
	}

	if db.Ready() {
		if last, err := db.LastSuccessfulRun(); err == nil && last != nil && last.FinishedAt != nil {
			fmt.Printf("    Last run:  %s (%s)\n", last.ID[:8], last.FinishedAt.Local().Format("2006-01-02 15:04"))
		}
	}
	fmt.Println()

	err = snapshot.Verify(snap)
	var verr *snapshot.VerifyError
	if errors.As(err, &verr) {
		for _, p := range verr.Problems {
			fmt.Printf("    ❌ %s\n", p)
		}
		return fmt.Errorf("snapshot failed verification with %d problem(s)", len(verr.Problems))
	}
	if err != nil {
		return err
	}

	fmt.Println("    ✓ Snapshot is consistent")
	return nil
}
