package main

import (
	"github.com/spf13/cobra"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/output"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "identity",
		Short:   "Show or change the active player",
		Aliases: []string{"id"},
		GroupID: GroupSync,
		Long: `Show or change the active player.

The identity set here is persisted and shared with every game process on
this machine. Switching drops the previous player's cached data.`,
		Example: `  savesync identity           # Show the active identity
  savesync identity set u42    # Switch to player u42
  savesync identity clear      # Log out`,
		Args: cobra.NoArgs,
		RunE: runIdentityShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active identity",
		Args:  cobra.NoArgs,
		RunE:  runIdentityShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <identity>",
		Short: "Switch to another player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			if err := a.SwitchIdentity(ctx, args[0]); err != nil {
				return err
			}
			id, _ := a.Identity()
			output.FromContext(ctx).Printf("%s Active identity: %s\n",
				styles.SuccessStyle.Render(styles.SymbolOK), styles.Bold.Render(id))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "clear",
		Short:   "Forget the persisted identity",
		Aliases: []string{"logout"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			if err := a.Logout(ctx); err != nil {
				return err
			}
			out := output.FromContext(ctx)
			if id, ok := a.Identity(); ok {
				out.Printf("Identity cleared, falling back to %s\n", styles.Bold.Render(id))
			} else {
				out.Println("Identity cleared")
			}
			return nil
		},
	})

	return cmd
}

func runIdentityShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	out := output.FromContext(ctx)
	id, ok := a.Identity()
	if !ok {
		out.Println(styles.MutedStyle.Render("No identity set"))
		return nil
	}

	source := "config"
	if a.Resolver().Persisted() == id {
		source = "persisted"
	}
	out.Printf("%s %s\n", styles.Bold.Render(id), styles.MutedStyle.Render("("+source+")"))
	return nil
}
