package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hejijunhao/authbayes/internal/cli"
)

func main() {
	// Set up graceful shutdown. The pipeline stops at the next chunk boundary.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, stopping after the current chunk...\n", sig)
		cancel()
	}()

	cli.Execute(ctx)
}
