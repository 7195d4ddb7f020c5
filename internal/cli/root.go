// Package cli implements the hippocampus CLI commands.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agency1/hippocampus/internal/config"
	"github.com/agency1/hippocampus/internal/embedding"
	"github.com/agency1/hippocampus/internal/logging"
	"github.com/agency1/hippocampus/internal/persist"
	"github.com/agency1/hippocampus/internal/store"
)

var (
	configPath string
	dbPath     string
	formatFlag string

	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
	exit             = os.Exit
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "hippocampus",
	Short: "Two-tier semantic memory for agents",
	Long: "A small memory engine for conversational agents. New entries land in a bounded recent tier, " +
		"age into a persisted durable tier, and are recalled by embedding similarity.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $HIPPOCAMPUS_CONFIG or ~/.hippocampus/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Durable store path (default: $HIPPOCAMPUS_DB or ~/.hippocampus/long_term_memory.json)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Memory.Path = dbPath
	}
	return cfg, nil
}

// app bundles what a command needs and tears it down in order.
type app struct {
	cfg    *config.Config
	store  *store.MemoryStore
	emb    embedding.Embedder
	logger *slog.Logger
	logs   io.Closer
	closed bool
}

func openStore(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, logs, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	pcfg := cfg.PersistConfig()
	pcfg.Logger = logger
	p, err := persist.Open(pcfg)
	if err != nil {
		logs.Close()
		return nil, err
	}
	emb, err := embedding.Build(cfg.Embedding, logger)
	if err != nil {
		p.Close()
		logs.Close()
		return nil, err
	}
	s, err := store.New(ctx, store.Options{
		Persister:    p,
		Embedder:     emb,
		Capacity:     cfg.Memory.Capacity,
		EmbedTimeout: cfg.Memory.EmbedTimeout,
		Logger:       logger,
	})
	if err != nil {
		closeEmbedder(emb)
		p.Close()
		logs.Close()
		return nil, err
	}
	return &app{cfg: cfg, store: s, emb: emb, logger: logger, logs: logs}, nil
}

// Close flushes the store and releases the embedder and log file. It is
// safe to call more than once.
func (a *app) Close(ctx context.Context) {
	if a.closed {
		return
	}
	a.closed = true
	if err := a.store.Close(context.WithoutCancel(ctx)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: close store: %v\n", err)
	}
	closeEmbedder(a.emb)
	a.logs.Close()
}

// fail closes a before exiting so a failed durable write gets its final
// flush attempt.
func (a *app) fail(ctx context.Context, msg string, err error) {
	a.Close(ctx)
	exitErr(msg, err)
}

// closeEmbedder stops background work held by e, such as the query cache.
func closeEmbedder(e embedding.Embedder) {
	if c, ok := e.(interface{ Close() }); ok {
		c.Close()
	}
}

// printResult writes v as indented JSON, or through text when --format=text
// and a text rendering exists.
func printResult(v any, text func(io.Writer)) {
	if strings.EqualFold(formatFlag, "text") && text != nil {
		text(stdout)
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(stdout, string(b))
}

// warnings splits err into soft warnings. A hard error is returned as is.
func warnings(err error) ([]string, error) {
	if err == nil {
		return nil, nil
	}
	if !store.IsSoft(err) {
		return nil, err
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out, nil
	}
	return []string{err.Error()}, nil
}

// decodeJSON unmarshals data keeping numbers exact as json.Number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func isDurability(err error) bool {
	var de *store.DurabilityError
	return errors.As(err, &de)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	exit(1)
}
