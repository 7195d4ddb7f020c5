package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Move aged recent entries into the durable tier",
		Run:   runConsolidate,
	}

	cmd.Flags().Duration("age", 0, "Minimum age to move (default: memory.consolidate_age)")

	RootCmd.AddCommand(cmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	age := a.cfg.Memory.ConsolidateAge
	if cmd.Flags().Changed("age") {
		age, _ = cmd.Flags().GetDuration("age")
	}

	moved, err := a.store.Consolidate(cmd.Context(), age)
	if err != nil {
		a.fail(cmd.Context(), "consolidate", err)
	}

	res := struct {
		Moved int    `json:"moved"`
		Age   string `json:"age"`
	}{moved, age.Round(time.Second).String()}
	printResult(res, func(w io.Writer) { fmt.Fprintln(w, moved) })
}
