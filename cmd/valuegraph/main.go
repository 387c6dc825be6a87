package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/valuegraph/internal/app"
	"github.com/vk/valuegraph/internal/cli"
	"github.com/vk/valuegraph/internal/hcl"
)

// main is the entrypoint for the valuegraph application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		stop()
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitFailure)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Results go to outW, logs and usage to logW.
func run(ctx context.Context, outW, logW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, logW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Instantiate the concrete HCL loader to pass to the app.
	valuegraphApp, err := app.NewApp(logW, appConfig, hcl.NewLoader())
	if err != nil {
		return fmt.Errorf("application startup failed: %w", err)
	}

	if err := valuegraphApp.Run(ctx, outW); err != nil {
		if errors.Is(err, app.ErrUnsatisfied) {
			return &cli.ExitError{Code: cli.ExitUnsatisfied, Message: err.Error()}
		}
		return err
	}
	return nil
}
