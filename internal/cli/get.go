package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agency1/hippocampus/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Recall a memory by key",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	key := args[0]

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	e, tier, ok := a.store.Get(key)
	if !ok {
		a.fail(cmd.Context(), "get", fmt.Errorf("%s: not found", key))
	}

	printResult(store.Listing{
		Key:          e.Key,
		Tier:         tier,
		CreatedAt:    e.CreatedAt,
		AccessWeight: e.AccessWeight,
		Embedded:     e.Searchable(),
		Payload:      e.Payload,
	}, func(w io.Writer) {
		if s, ok := e.Text(); ok {
			fmt.Fprintln(w, s)
			return
		}
		fmt.Fprintf(w, "%v\n", e.Payload)
	})
}
