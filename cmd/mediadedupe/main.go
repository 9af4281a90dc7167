package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mediadedupe/mediadedupe/cmd/mediadedupe/commands"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	setupInterruptHandler(cancel)

	app := &cli.App{
		Name:  "mediadedupe",
		Usage: "find and organize near-duplicate photos and videos",
		Commands: []*cli.Command{
			commands.RunCommand(),
			commands.StatsCommand(),
			commands.ListCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if ctx.Err() != nil {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// setupInterruptHandler cancels ctx on SIGINT/SIGTERM so in-flight
// pipeline stages stop at their next cooperative checkpoint instead of
// being killed mid-write.
func setupInterruptHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupt received, finishing in-flight work...")
		cancel()
	}()
}
