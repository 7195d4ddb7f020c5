package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agency1/hippocampus/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
