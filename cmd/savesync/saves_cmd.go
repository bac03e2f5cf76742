package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/output"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/static"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

func newSavesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "saves",
		Short:   "List, load and push saves",
		GroupID: GroupSync,
		Example: `  savesync saves list                   # Saves of the active player
  savesync saves load 1 -o slot1.json   # Fetch slot 1
  savesync saves push 2 game.json       # Upload game.json to slot 2`,
	}

	cmd.AddCommand(newSavesListCmd())
	cmd.AddCommand(newSavesLoadCmd())
	cmd.AddCommand(newSavesPushCmd())

	return cmd
}

func newSavesListCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List the saves of the active player",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			stop := startSpinner(cmd, "Fetching saves...")
			saves, err := a.ListSaves(ctx)
			stop()
			if err != nil {
				return err
			}

			out := output.FromContext(ctx)
			if jsonOut {
				if saves == nil {
					saves = []remote.SaveSummary{}
				}
				return out.JSON(saves)
			}
			if len(saves) == 0 {
				out.Println(styles.MutedStyle.Render("No saves"))
				return nil
			}
			out.Print(static.FormatSavesTable(saves, time.Now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func newSavesLoadCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "load <slot>",
		Short: "Load a save",
		Long: `Load a save, preferring a fresh cache entry, then the service, then the
local slot.

The artifact is printed as JSON, or written to --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			stop := startSpinner(cmd, fmt.Sprintf("Loading slot %d...", slot))
			res := a.LoadGame(ctx, slot)
			stop()
			if res.Reinitialize {
				return fmt.Errorf("slot %d belongs to another player, start a new game: %w", slot, res.Err)
			}
			if res.Err != nil {
				return res.Err
			}

			out := output.FromContext(ctx)
			if outFile == "" {
				return out.JSON(res.Artifact)
			}
			data, err := json.MarshalIndent(res.Artifact, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return err
			}
			out.Printf("%s Loaded slot %d from %s into %s\n",
				styles.SuccessStyle.Render(styles.SymbolOK), slot, styles.FormatSource(res.Source), outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Write the artifact to a file")

	return cmd
}

func newSavesPushCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "push <slot> <file>",
		Short: "Save a game state to a slot",
		Long: `Save a game state to a slot.

The file holds the game state as JSON. It is written to the local slot
first and then uploaded; an upload failure leaves the local copy in place.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			blob, err := readJSONFile(args[1])
			if err != nil {
				return err
			}
			name := title
			if name == "" {
				name = "Slot " + strconv.Itoa(slot)
			}

			ctx := cmd.Context()
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			stop := startSpinner(cmd, fmt.Sprintf("Saving slot %d...", slot))
			now := time.Now().UTC()
			res, err := a.SaveGame(ctx, remote.SaveArtifact{
				Slot:      slot,
				Blob:      blob,
				Metadata:  remote.SaveMetadata{Title: name, Timestamp: now},
				Timestamp: now,
			})
			stop()
			if err != nil {
				return err
			}

			out := output.FromContext(ctx)
			if res.CloudErr != nil {
				out.Printf("%s Slot %d saved locally only: %v\n",
					styles.WarningStyle.Render(styles.SymbolWarn), slot, res.CloudErr)
				return nil
			}
			out.Printf("%s Slot %d saved\n", styles.SuccessStyle.Render(styles.SymbolOK), slot)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Save title shown in listings")

	return cmd
}

// parseSlot parses a positive slot number.
func parseSlot(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid slot %q: must be a positive number", s)
	}
	return n, nil
}

// readJSONFile reads path ("-" for stdin) and checks that it holds JSON.
func readJSONFile(path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: not valid JSON", path)
	}
	return json.RawMessage(data), nil
}
