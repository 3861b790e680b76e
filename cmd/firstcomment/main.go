package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/firstcomment/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
