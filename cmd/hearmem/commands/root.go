// Package commands contains all CLI commands for hearmem.
//
// This package uses the Cobra library for CLI management. Each command
// is defined in its own file and registered in init().
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/app"
	"github.com/nithinv16/hearmem/internal/config"
	"github.com/nithinv16/hearmem/internal/logger"
)

var (
	// cfgFile holds the path to the config file (from --config flag)
	cfgFile string

	// verbose enables detailed output
	verbose bool

	// quiet suppresses all output except errors
	quiet bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hearmem",
	Short: "Personal conversation memory engine",
	Long: `Hearmem stores conversation sessions locally, indexes them for
search, and maintains references, bookmarks and layered memories over
them.

Examples:
  # Record an exchange in the active session
  hearmem chat "I finally slept eight hours"

  # Search past conversations
  hearmem search "sleep"

  # Save a reference to the current moment
  hearmem ref add --title "Sleep win" --tags sleep,progress

  # Retrieve memories relevant to a topic
  hearmem recall "work stress"

  # Export references as Markdown
  hearmem export --format markdown --out refs.md`,

	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !quiet {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .hearmem.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
}

// loadConfig builds the effective configuration, honoring the --config,
// --verbose and --quiet flags.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if verbose && !quiet {
		cfg.Output.Verbose = true
		cfg.Logging.Level = logger.LevelDebug.String()
	}
	if quiet {
		cfg.Output.Quiet = true
		cfg.Logging.Level = logger.LevelError.String()
	}
	return cfg, nil
}

// openApp wires the engine for one command invocation. The caller must
// Close it.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// closeApp closes the app, logging rather than failing the command.
func closeApp(ctx context.Context, a *app.App) {
	if err := a.Close(ctx); err != nil {
		a.Log.Error("closing: %v", err)
	}
}

// isVerbose returns true if verbose mode is enabled
func isVerbose() bool {
	return verbose && !quiet
}
