package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export durable memories as JSON",
		Long:  "Export every durable memory, including its embedding, as a JSON array ordered by creation time.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	printResult(a.store.Export(), nil)
}
