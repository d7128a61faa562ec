// Package main provides the grc-migrate CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-mdmigrate"
)

// Exit codes.
const (
	exitSuccess         = 0
	exitFailure         = 1
	exitDowngradeRefuse = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case mdmigrate.IsDowngradeRefused(err):
		fmt.Fprintln(os.Stderr, mdmigrate.ErrDowngradeNotSupported)
		return exitDowngradeRefuse
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "interrupted")
		return exitFailure
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
}
