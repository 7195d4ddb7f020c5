package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agency1/hippocampus/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from JSON",
		Long:  "Import memories from JSON (file or stdin) into the durable tier. Expects the format produced by export; existing keys are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	var entries []*model.Entry
	if err := decodeJSON(data, &entries); err != nil {
		exitErr("parse json", err)
	}

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	imported, err := a.store.Import(cmd.Context(), entries)
	if err != nil {
		a.fail(cmd.Context(), "import", err)
	}

	fmt.Fprintf(stdout, `{"ok":true,"imported":%d}`+"\n", imported)
}
