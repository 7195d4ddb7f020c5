package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Rank memories by similarity to a query",
		Long:  "Like context, but prints key, tier, similarity and access weight for each match.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	addRankingFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	topK, threshold := rankingFlags(cmd, a)
	matches, err := a.store.Search(cmd.Context(), query, topK, threshold)
	if _, err := warnings(err); err != nil {
		a.fail(cmd.Context(), "search", err)
	}
	if err != nil {
		a.logger.Warn("search degraded", "err", err)
	}

	printResult(matches, func(w io.Writer) {
		for _, m := range matches {
			fmt.Fprintf(w, "%.4f\t%s\t%s\t%d\t%v\n", m.Similarity, m.Key, m.Tier, m.AccessWeight, m.Payload)
		}
	})
}
