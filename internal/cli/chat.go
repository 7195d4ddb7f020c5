package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agency1/hippocampus/internal/brain"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session",
		Long: `Read signals line by line. Each line is remembered and answered with related memories.

Commands:
  :good KEY   reinforce a memory
  :bad KEY    weaken a memory
  :stats      show memory statistics
  :quit       leave (also EOF)

Aged entries are consolidated in the background.`,
		Run: runChat,
	}

	cmd.Flags().Bool("keep", true, "Consolidate every remaining recent entry on exit")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	keep, _ := cmd.Flags().GetBool("keep")

	a, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close(context.Background())

	b := newBrain(a)

	ctx, cancel := context.WithCancel(cmd.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.RunConsolidation(ctx, a.cfg.Memory.ConsolidateInterval, a.cfg.Memory.ConsolidateAge)
	}()

	chat(ctx, b, stdin, stdout)

	cancel()
	<-done
	if keep {
		keepRecent(a)
	}
}

// keepRecent moves every recent entry into the durable tier so the session
// survives the process.
func keepRecent(a *app) {
	moved, err := a.store.Consolidate(context.Background(), -1)
	if err != nil {
		a.fail(context.Background(), "consolidate on exit", err)
	}
	if moved > 0 {
		a.logger.Info("kept session memories", "moved", moved)
	}
}

func newBrain(a *app) *brain.Brain {
	return brain.New(a.store, a.cfg.BrainConfig(),
		brain.WithLogger(a.logger),
		brain.WithTokenCounter(brain.TiktokenCounter(a.logger)))
}

// chat runs the read-eval loop until EOF or :quit.
func chat(ctx context.Context, b *brain.Brain, in io.Reader, out io.Writer) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if quit := chatCommand(ctx, b, line, out); quit {
				return
			}
			continue
		}

		turn, err := b.ProcessSignal(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "[%s] remembered as %s\n", turn.ID, turn.Key)
		for _, c := range turn.Context {
			fmt.Fprintf(out, "  %.2f %s %s\n", c.Similarity, c.Key, c.Text)
		}
		for _, w := range turn.Warnings {
			fmt.Fprintf(out, "  warning: %s\n", w)
		}
	}
}

func chatCommand(ctx context.Context, b *brain.Brain, line string, out io.Writer) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":good", ":bad":
		if len(fields) != 2 {
			fmt.Fprintf(out, "usage: %s KEY\n", fields[0])
			return false
		}
		found, err := b.Feedback(ctx, fields[1], fields[0] == ":good")
		switch {
		case err != nil:
			fmt.Fprintf(out, "error: %v\n", err)
		case !found:
			fmt.Fprintf(out, "%s: not found\n", fields[1])
		default:
			fmt.Fprintln(out, "ok")
		}
	case ":stats":
		res := b.Stats()
		fmt.Fprintf(out, "recent %d/%d, durable %d\n", res.RecentEntries, res.RecentCapacity, res.DurableEntries)
	default:
		fmt.Fprintf(out, "unknown command %s\n", fields[0])
	}
	return false
}
