package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/output"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/static"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

// progressSource names the CLI as an autosave source.
const progressSource = "cli"

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "progress",
		Short:   "Show or push player progress",
		GroupID: GroupSync,
		Example: `  savesync progress show            # Stored progress of the active player
  savesync progress push stats.json  # Push counters from a file`,
	}

	cmd.AddCommand(newProgressShowCmd())
	cmd.AddCommand(newProgressPushCmd())

	return cmd
}

func newProgressShowCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			stop := startSpinner(cmd, "Fetching progress...")
			rec, err := a.LoadProgress(ctx)
			stop()
			if err != nil {
				return err
			}

			out := output.FromContext(ctx)
			if jsonOut {
				return out.JSON(rec)
			}
			out.Print(static.RenderTable([]string{"COUNTER", "VALUE"}, progressRows(rec)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func newProgressPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Push progress counters",
		Long: `Push progress counters read from a JSON file ("-" for stdin).

The file uses the service's field names, e.g.
  {"coins": 120, "score": 900, "completedQuests": 4}

A record identical to the last accepted one is not sent again. The
progress percentage is computed by the service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readJSONFile(args[0])
			if err != nil {
				return err
			}
			var rec remote.ProgressRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			ctx := cmd.Context()
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			stop := startSpinner(cmd, "Saving progress...")
			a.ProgressChanged(progressSource, rec)
			err = a.FlushProgress(ctx)
			stop()
			if err != nil {
				return err
			}

			out := output.FromContext(ctx)
			if pct, ok := a.Progress(); ok {
				out.Printf("%s Progress saved: %s\n",
					styles.SuccessStyle.Render(styles.SymbolOK), formatPercent(pct))
			} else {
				out.Printf("%s Progress saved\n", styles.SuccessStyle.Render(styles.SymbolOK))
			}
			return nil
		},
	}

	return cmd
}

func progressRows(rec remote.ProgressRecord) [][]string {
	answered := strconv.Itoa(rec.CorrectAnswers) + "/" + strconv.Itoa(rec.TotalQuestionsAnswered)
	rows := [][]string{
		{"progress", formatPercent(rec.ProgressPercentage)},
		{"stage", strconv.Itoa(rec.CurrentStage)},
		{"quests", strconv.Itoa(rec.CompletedQuests)},
		{"coins", strconv.Itoa(rec.Coins)},
		{"score", strconv.Itoa(rec.Score)},
		{"answers", answered},
		{"playtime", formatPlaytime(rec.PlayTimeSeconds)},
	}
	if !rec.LastUpdated.IsZero() {
		rows = append(rows, []string{"updated", rec.LastUpdated.Local().Format("2006-01-02 15:04")})
	}
	return rows
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

func formatPlaytime(seconds int) string {
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
