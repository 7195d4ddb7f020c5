package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "feedback KEY",
		Short: "Reinforce or weaken a memory",
		Long:  "Positive feedback adds one to the access weight; --negative subtracts one, never going below zero.",
		Args:  cobra.ExactArgs(1),
		Run:   runFeedback,
	}

	cmd.Flags().Bool("negative", false, "Weaken instead of reinforce")

	RootCmd.AddCommand(cmd)
}

type feedbackResult struct {
	Key          string `json:"key"`
	Found        bool   `json:"found"`
	AccessWeight int    `json:"access_weight"`
}

func runFeedback(cmd *cobra.Command, args []string) {
	negative, _ := cmd.Flags().GetBool("negative")
	key := args[0]

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	found, err := a.store.Feedback(cmd.Context(), key, !negative)
	if err != nil {
		a.fail(cmd.Context(), "feedback", err)
	}

	res := feedbackResult{Key: key, Found: found}
	if e, _, ok := a.store.Get(key); ok {
		res.AccessWeight = e.AccessWeight
	}
	printResult(res, func(w io.Writer) {
		if !found {
			fmt.Fprintf(w, "%s: not found\n", key)
			return
		}
		fmt.Fprintf(w, "%s\t%d\n", key, res.AccessWeight)
	})
}
