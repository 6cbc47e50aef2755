// Package main is the entry point for the forage CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/forage/cmd/forage/commands"
	"go.trai.ch/forage/internal/app"
	"go.trai.ch/forage/internal/core/domain"
	_ "go.trai.ch/forage/internal/wiring"
)

// Exit codes: fetch failures are distinguishable from bad invocations and
// from everything else so scripts can react to each.
const (
	exitOK    = 0
	exitFetch = 1
	exitUsage = 2
	exitOther = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available if initialization failed.
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		return exitOther
	}
	defer func() {
		_ = components.Telemetry.Close()
	}()

	cli := commands.New(components.App)

	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		switch {
		case errors.Is(err, domain.ErrFetchFailed), errors.Is(err, domain.ErrVerifyFailed):
			return exitFetch
		case errors.Is(err, domain.ErrUsage):
			return exitUsage
		default:
			return exitOther
		}
	}
	return exitOK
}
