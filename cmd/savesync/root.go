package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/app"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/config"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/log"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/output"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

// appOpts are applied to every App a command opens, after the defaults.
var appOpts []func(o *app.Options)

// Command group IDs for organizing help output
const (
	GroupSync        = "sync"
	GroupMaintenance = "maintenance"
	GroupConfig      = "config"
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	var (
		verbose bool
		quiet   bool
	)

	rootCmd := &cobra.Command{
		Use:   "savesync",
		Short: "Cloud-first save sync and cache for game clients",
		Long: `savesync keeps a player's saves and progress in sync with the save service.

The service is authoritative. Reads are served from a short-lived local
cache, and saves are written to a local slot before they go to the cloud,
so nothing is lost while the service is unreachable.`,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "help" {
				return nil
			}

			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}

			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			logger := log.New(cmd.ErrOrStderr(), verbose || cfg.Log.Verbose, quiet)
			cmd.SetContext(log.WithLogger(ctx, logger))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupSync, Title: "Sync Commands:"},
		&cobra.Group{ID: GroupMaintenance, Title: "Maintenance Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	// Sync commands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newIdentityCmd())
	rootCmd.AddCommand(newSavesCmd())
	rootCmd.AddCommand(newProgressCmd())

	// Maintenance commands
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newDoctorCmd())

	// Config commands
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// Execute loads config, sets up the context and runs the command tree.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx = config.WithConfig(ctx, &cfg)
	ctx = output.WithPrinter(ctx, os.Stdout)
	styles.Init(cfg.UI, os.Stdout)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'savesync -h' for help")
		os.Exit(1)
	}
}

// openApp builds the App for a command. Commands that only touch local
// state pass offline, which lets them run without a server_url.
func openApp(cmd *cobra.Command, offline bool, optFns ...func(o *app.Options)) (*app.App, error) {
	ctx := cmd.Context()
	cfg := *config.FromContext(ctx)

	opts := []func(o *app.Options){func(o *app.Options) {
		o.Logger = log.FromContext(ctx)
		o.Notifier = output.NewNotifier(output.New(cmd.ErrOrStderr()))
		if offline && cfg.ServerURL == "" {
			o.Client = remote.Offline{}
		}
	}}
	opts = append(opts, optFns...)
	return app.New(cfg, append(opts, appOpts...)...)
}

// closeApp shuts a down, logging instead of failing the command.
func closeApp(ctx context.Context, a *app.App) {
	if err := a.Shutdown(context.WithoutCancel(ctx)); err != nil {
		log.FromContext(ctx).Warn("shutdown", zap.Error(err))
	}
}
