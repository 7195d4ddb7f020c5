package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agency1/hippocampus/internal/brain"
)

func init() {
	cmd := &cobra.Command{
		Use:   "task [content]",
		Short: "Process one task as a conversational turn",
		Long:  "Remember the task content and report it with its related memories. Content can be a positional arg or piped via stdin.",
		Run:   runTask,
	}

	cmd.Flags().String("id", "", "Task id (default: key of the content)")
	cmd.Flags().Bool("keep", true, "Move the task into the durable tier afterwards")

	RootCmd.AddCommand(cmd)
}

func runTask(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	keep, _ := cmd.Flags().GetBool("keep")
	content, err := readContent(args)
	if err != nil {
		exitErr("read stdin", err)
	}

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}

	res := newBrain(a).ProcessTask(cmd.Context(), brain.Task{ID: id, Content: content})
	if res.Success && keep {
		keepRecent(a)
	}
	a.Close(cmd.Context())

	printResult(res, func(w io.Writer) {
		if !res.Success {
			fmt.Fprintln(w, res.Error)
			return
		}
		for _, c := range res.Result.Context {
			fmt.Fprintln(w, c.Text)
		}
	})
	if !res.Success {
		os.Exit(1)
	}
}
