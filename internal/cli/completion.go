package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/db"
	"github.com/billmal071/narubooks/internal/snapshot"
	"github.com/billmal071/narubooks/internal/tui"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for narubooks.

To load completions:

Bash:
  $ source <(narubooks completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ narubooks completion bash > /etc/bash_completion.d/narubooks
  # macOS:
  $ narubooks completion bash > /usr/local/etc/bash_completion.d/narubooks

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ narubooks completion zsh > "${fpath[1]}/_narubooks"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ narubooks completion fish | source

  # To load completions for each session, execute once:
  $ narubooks completion fish > ~/.config/fish/completions/narubooks.fish

PowerShell:
  PS> narubooks completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> narubooks completion powershell > narubooks.ps1
  # and source this file from your PowerShell profile.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	// Add dynamic completion for run IDs
	historyShowCmd.ValidArgsFunction = completeRunIDs
}

// completeRunIDs provides dynamic completion for recorded run IDs.
// Completion skips PersistentPreRunE, so config and db are opened here.
func completeRunIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := config.Init(cfgFile); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	if err := db.Init(); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer db.Close()

	runs, err := db.ListRuns(30)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var completions []string
	for _, r := range runs {
		// Format: "ID\tdate (status)"
		completion := fmt.Sprintf("%s\t%s (%s)", r.ID[:8], r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status)
		completions = append(completions, completion)
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeLibraryCodes completes library codes from the last snapshot
func completeLibraryCodes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := config.Init(cfgFile); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	cfg := config.Get()
	snap, _, err := snapshot.LoadWithFallback(cfg.Output.Path, cfg.Output.FallbackPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var completions []string
	for _, lib := range snap.Libraries.All() {
		completions = append(completions, fmt.Sprintf("%s\t%s", lib.Code, tui.Truncate(lib.Name, 40)))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
