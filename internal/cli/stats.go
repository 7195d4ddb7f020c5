package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agency1/hippocampus/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsResult struct {
	Backend   string `json:"backend"`
	Path      string `json:"path,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	store.Stats
}

func runStats(cmd *cobra.Command, args []string) {
	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	res := statsResult{Backend: a.cfg.Memory.Backend, Stats: a.store.Stats()}
	if a.cfg.Memory.Backend != "postgres" {
		res.Path = a.cfg.Memory.Path
		if info, err := os.Stat(res.Path); err == nil {
			res.SizeBytes = info.Size()
		}
	}

	printResult(res, func(w io.Writer) {
		fmt.Fprintf(w, "backend:  %s\n", res.Backend)
		fmt.Fprintf(w, "recent:   %d/%d\n", res.RecentEntries, res.RecentCapacity)
		fmt.Fprintf(w, "durable:  %d\n", res.DurableEntries)
		fmt.Fprintf(w, "embedded: %d\n", res.Embedded)
	})
}
