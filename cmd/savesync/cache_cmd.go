package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/output"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/prompt"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/static"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cache",
		Short:   "Inspect and clean the local cache",
		GroupID: GroupMaintenance,
		Long: `Inspect and clean the local cache.

The cache only speeds up reads; the service stays authoritative, so
clearing it never loses data.`,
		Example: `  savesync cache stats                 # Entries per identity
  savesync cache prune --older-than 2h # Drop old entries
  savesync cache clear --all -f        # Drop everything`,
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCachePruneCmd())
	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entries per identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			st, err := a.Cache().Stats()
			if err != nil {
				return fmt.Errorf("scan cache: %w", err)
			}

			out := output.FromContext(ctx)
			if jsonOut {
				return out.JSON(st)
			}
			if st.Total == 0 {
				out.Println(styles.MutedStyle.Render("Cache is empty"))
				return nil
			}
			out.Print(static.RenderTable(static.StatsHeaders, static.StatsRows(st, time.Now())))
			out.Printf("\n%d entries, backend %s\n", st.Total, a.Config().Cache.Backend)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func newCachePruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old and unreadable entries",
		Long: `Remove cache entries older than --older-than, and any entry that cannot
be parsed. Defaults to cache.stale_after.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			maxAge := olderThan
			if maxAge <= 0 {
				maxAge = a.Config().Cache.StaleAfter
			}
			n := a.Cache().EvictStale(maxAge)
			output.FromContext(ctx).Printf("%s Removed %d %s older than %s\n",
				styles.SuccessStyle.Render(styles.SymbolOK), n, entries(n), maxAge)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Maximum entry age (default: cache.stale_after)")

	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var (
		all      bool
		force    bool
		identity string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached entries of a player",
		Long: `Remove cached entries of the active player, of --identity, or of every
player with --all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			var ids []string
			switch {
			case all:
				st, err := a.Cache().Stats()
				if err != nil {
					return fmt.Errorf("scan cache: %w", err)
				}
				for id := range st.Scopes {
					if id != "" {
						ids = append(ids, id)
					}
				}
				sort.Strings(ids)
				if len(ids) > 0 && !force {
					ok, err := confirmClearAll(cmd, len(ids))
					if err != nil || !ok {
						return err
					}
				}
			case identity != "":
				ids = []string{identity}
			default:
				id, ok := a.Identity()
				if !ok {
					return fmt.Errorf("no identity set: use --identity or --all")
				}
				ids = []string{id}
			}

			out := output.FromContext(ctx)
			for _, id := range ids {
				n := len(a.Cache().Keys(id))
				a.Cache().Invalidate(id)
				out.Printf("%s Cleared %d %s for %s\n",
					styles.SuccessStyle.Render(styles.SymbolOK), n, entries(n), styles.Bold.Render(id))
			}
			if len(ids) == 0 {
				out.Println(styles.MutedStyle.Render("Cache is empty"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear every player")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation for --all")
	cmd.Flags().StringVar(&identity, "identity", "", "Clear this player instead of the active one")
	cmd.MarkFlagsMutuallyExclusive("all", "identity")

	return cmd
}

// confirmClearAll asks before clearing n players. Without a terminal it
// refuses, so scripts have to pass --force.
func confirmClearAll(cmd *cobra.Command, n int) (bool, error) {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !styles.IsTerminal(in) {
		return false, fmt.Errorf("clearing %d players needs confirmation: use --force", n)
	}
	res, err := prompt.Confirm(fmt.Sprintf("Clear cached data of %d players?", n), in, cmd.ErrOrStderr())
	if err != nil {
		return false, err
	}
	if res.Cancelled || !res.Confirmed {
		output.FromContext(cmd.Context()).Println("Cancelled")
		return false, nil
	}
	return true, nil
}

func entries(n int) string {
	if n == 1 {
		return "entry"
	}
	return "entries"
}
