package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/progress"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

// startSpinner shows message on stderr while a remote call runs and returns
// the function that clears it. Nothing is drawn when stderr is not a
// terminal.
func startSpinner(cmd *cobra.Command, message string) func() {
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok || !styles.IsTerminal(f) {
		return func() {}
	}
	sp := progress.NewSpinner(f, message)
	sp.Start()
	return sp.Stop
}
