package main

import (
	"github.com/spf13/cobra"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/doctor"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/output"
)

func newDoctorCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:     "doctor",
		Short:   "Diagnose and repair issues",
		GroupID: GroupMaintenance,
		Args:    cobra.NoArgs,
		Long: `Diagnose and repair local save sync state.

Checks:
- Identity file is readable
- Cache holds only the active player's entries, none corrupt or stale
- Local save slots are readable
- Save service answers (when server_url is set)`,
		Example: `  savesync doctor          # Check for issues
  savesync doctor --fix    # Auto-fix recoverable issues`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			cfg := a.Config()
			env := doctor.Env{
				Cache:      a.Cache(),
				Local:      a.Local(),
				Identity:   a.Resolver(),
				DataDir:    a.DataDir(),
				StaleAfter: cfg.Cache.StaleAfter,
			}
			if cfg.ServerURL != "" {
				env.Client = a.Client()
			}
			return doctor.Run(ctx, env, fix, output.FromContext(ctx))
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Auto-fix recoverable issues")

	return cmd
}
