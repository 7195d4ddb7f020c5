package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agency1/hippocampus/internal/model"
	"github.com/agency1/hippocampus/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().String("tier", "", "Filter by tier: recent or durable")
	cmd.Flags().IntP("limit", "l", 20, "Max results (0 for all)")
	cmd.Flags().Bool("keys-only", false, "Only output keys")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	tier, _ := cmd.Flags().GetString("tier")
	limit, _ := cmd.Flags().GetInt("limit")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")

	if tier != "" && tier != string(model.TierRecent) && tier != string(model.TierDurable) {
		exitErr("list", fmt.Errorf("unknown tier %q", tier))
	}

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	var items []store.Listing
	for _, l := range a.store.List() {
		if tier != "" && string(l.Tier) != tier {
			continue
		}
		items = append(items, l)
		if limit > 0 && len(items) == limit {
			break
		}
	}

	if keysOnly {
		for _, l := range items {
			fmt.Fprintf(stdout, "%s\t%s\n", l.Tier, l.Key)
		}
		return
	}

	printResult(items, func(w io.Writer) {
		for _, l := range items {
			fmt.Fprintf(w, "%s\t%s\t%d\t%v\n", l.Key, l.Tier, l.AccessWeight, l.Payload)
		}
	})
}
