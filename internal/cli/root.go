package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/db"
	"github.com/billmal071/narubooks/internal/logging"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "narubooks",
	Short: "Collect public-library holdings from 정보나루 into a JSON snapshot",
	Long: `narubooks polls the 정보나루 (data4library.kr) API for the libraries of a
region and their holdings, and writes one deduplicated JSON snapshot for a
static site to read.

Run without a subcommand to collect. The API key is read from NARU_API_KEY,
JEONGBONAROU_API_KEY or API_KEY (a .env file in the working directory works too).

Examples:
  narubooks                               Collect into public/books.json
  narubooks --region 서울특별시 -o out.json  Collect another region
  narubooks libraries                     Show the library groups
  narubooks books --search 한강 --sort latest
  narubooks browse --library 다사도서관
  narubooks search "소년이 온다"            Live search with caching
  narubooks holdings 9788936434120        Which libraries hold an ISBN`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize config
		if err := config.Init(cfgFile); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		cfg := config.Get()

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		format := cfg.Log.Format
		if logFormat != "" {
			format = logFormat
		}
		logging.Init(logging.Config{Level: level, Format: format})

		// History and the search cache are optional for a collection run
		if err := db.Init(); err != nil {
			logging.Warn().Err(err).Str("path", config.GetDBPath()).Msg("state database unavailable; run history and search cache disabled")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		db.Close()
	},
	RunE: runCollect,
}

// Execute runs the root command; SIGINT or SIGTERM cancels it
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/narubooks/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json (overrides log.format)")

	addCollectFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(librariesCmd)
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(holdingsCmd)
	rootCmd.AddCommand(popularCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

// Verbose returns whether verbose mode is enabled
func Verbose() bool {
	return verbose
}

// Printf prints if verbose mode is enabled
func Printf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

// Errorf prints an error message to stderr
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// Successf prints a success message
func Successf(format string, args ...interface{}) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// requireDB fails commands that cannot work without the state database
func requireDB() error {
	if !db.Ready() {
		return fmt.Errorf("state database is not available (%s)", config.GetDBPath())
	}
	return nil
}

// requireDBRun is requireDB as a PreRunE hook
func requireDBRun(cmd *cobra.Command, args []string) error {
	return requireDB()
}
