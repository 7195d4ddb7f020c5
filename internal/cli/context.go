package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Recall the payloads most similar to a query",
		Long:  "Embed the query, rank entries from both tiers by cosine similarity and print the best payloads.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	addRankingFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func addRankingFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("top-k", "k", 0, "Max results (default: memory.top_k)")
	cmd.Flags().Float64P("threshold", "t", 0, "Minimum similarity (default: memory.similarity_threshold)")
}

func rankingFlags(cmd *cobra.Command, a *app) (int, float64) {
	topK, threshold := a.cfg.Memory.TopK, a.cfg.Memory.SimilarityThreshold
	if cmd.Flags().Changed("top-k") {
		topK, _ = cmd.Flags().GetInt("top-k")
	}
	if cmd.Flags().Changed("threshold") {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	return topK, threshold
}

func runContext(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	topK, threshold := rankingFlags(cmd, a)
	payloads, err := a.store.GetContext(cmd.Context(), query, topK, threshold)
	if _, err := warnings(err); err != nil {
		a.fail(cmd.Context(), "context", err)
	}
	if err != nil {
		a.logger.Warn("context degraded", "err", err)
	}

	printResult(payloads, func(w io.Writer) {
		for _, p := range payloads {
			fmt.Fprintf(w, "%v\n", p)
		}
	})
}
