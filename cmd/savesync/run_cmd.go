package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/app"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/log"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/output"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

// shutdownTimeout bounds the final progress save and session end.
const shutdownTimeout = 5 * time.Second

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the sync service until interrupted",
		GroupID: GroupSync,
		Long: `Run the sync service until interrupted.

Opens a session for the active player, loads the autosave slot and the
stored progress, then keeps the session alive and follows identity
changes made by other processes. On Ctrl-C it pushes pending progress
and ends the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, false, func(o *app.Options) { o.WatchIdentity = true })
			if err != nil {
				return err
			}
			return runService(ctx, a)
		},
	}

	return cmd
}

// runService starts a, reports the startup result and blocks until ctx is
// done.
func runService(ctx context.Context, a *app.App) error {
	res, err := a.Start(ctx)
	if err != nil {
		closeApp(ctx, a)
		return err
	}
	printStart(output.FromContext(ctx), res)

	<-ctx.Done()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(sctx); err != nil {
		log.FromContext(ctx).Warn("shutdown", zap.Error(err))
	}
	return nil
}

func printStart(out *output.Printer, res app.StartResult) {
	if res.Identity == "" {
		out.Printf("%s No identity set, running without cloud sync\n",
			styles.WarningStyle.Render(styles.SymbolWarn))
		return
	}
	out.Printf("Player %s\n", styles.Bold.Render(res.Identity))

	out.Check(res.Session != "", "session %s", valueOr(res.Session, "not opened"))

	switch {
	case res.Load.OK():
		out.Check(true, "slot %d loaded from %s", res.Load.Artifact.Slot, styles.FormatSource(res.Load.Source))
	case errors.Is(res.Load.Err, remote.ErrNotFound):
		out.Printf("%s no save yet, starting fresh\n", styles.MutedStyle.Render(styles.SymbolPending))
	default:
		out.Check(false, "load failed: %v", res.Load.Err)
	}

	switch {
	case res.ProgressErr == nil:
		out.Check(true, "progress %s", formatPercent(res.Progress.ProgressPercentage))
	case errors.Is(res.ProgressErr, remote.ErrNotFound):
		out.Printf("%s no progress yet\n", styles.MutedStyle.Render(styles.SymbolPending))
	default:
		out.Check(false, "progress unavailable: %v", res.ProgressErr)
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
