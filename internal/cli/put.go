package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agency1/hippocampus/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long: "Store a memory. Content can be a positional arg or piped via stdin. " +
			"Entries go to the durable tier unless --recent is set; the recent tier only lives for the process.",
		Run: runPut,
	}

	cmd.Flags().Bool("recent", false, "Store in the recent tier instead of the durable tier")
	cmd.Flags().Bool("json", false, "Parse content as a JSON payload")

	RootCmd.AddCommand(cmd)
}

type putResult struct {
	Key      string     `json:"key"`
	Tier     model.Tier `json:"tier"`
	Durable  bool       `json:"durable"`
	Warnings []string   `json:"warnings,omitempty"`
}

func runPut(cmd *cobra.Command, args []string) {
	recent, _ := cmd.Flags().GetBool("recent")
	asJSON, _ := cmd.Flags().GetBool("json")

	content, err := readContent(args)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	var payload any = strings.TrimSpace(content)
	if asJSON {
		if err := decodeJSON([]byte(content), &payload); err != nil {
			exitErr("parse json", err)
		}
	}

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(cmd.Context())

	key, err := a.store.Store(cmd.Context(), payload, !recent)
	if key == "" {
		a.fail(cmd.Context(), "put", err)
	}

	res := putResult{Key: key, Tier: model.TierDurable, Durable: !recent}
	if recent {
		res.Tier = model.TierRecent
	}
	if isDurability(err) {
		res.Durable = false
		res.Warnings = append(res.Warnings, err.Error())
		printResult(res, nil)
		a.fail(cmd.Context(), "put", err)
	}
	if res.Warnings, err = warnings(err); err != nil {
		a.fail(cmd.Context(), "put", err)
	}
	printResult(res, func(w io.Writer) { fmt.Fprintln(w, key) })
}

// readContent joins args, or reads piped stdin when there are none.
func readContent(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	b, err := io.ReadAll(stdin)
	return string(b), err
}
