package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/confirm"
	"github.com/Veraticus/tally/internal/feed"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Detect transactions from a live event feed",
		Long: `Read screen and notification events as JSON lines and record every payment
they describe. Each detection is shown for confirmation on the terminal; without a
terminal, or with --silent, transactions are saved in the background.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	cmd.Flags().String("input", "", "read events from this file instead of stdin")
	cmd.Flags().String("tty", "/dev/tty", "terminal used for confirmation prompts")
	cmd.Flags().Bool("silent", false, "save every detection without asking")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	ttyPath, _ := cmd.Flags().GetString("tty")
	silent, _ := cmd.Flags().GetBool("silent")

	ctx := cmd.Context()
	settings := store.Settings()

	db, err := initStorage(ctx, settings)
	if err != nil {
		return common.NewUserError("failed to open the ledger", err)
	}
	defer func() { _ = db.Close() }()

	var input io.Reader = cmd.InOrStdin()
	if inputPath != "" {
		f, err := os.Open(config.ExpandPath(inputPath))
		if err != nil {
			return fmt.Errorf("failed to open event feed: %w", err)
		}
		defer func() { _ = f.Close() }()
		input = f
	}

	var presenter confirm.Presenter
	if !silent {
		tty, err := os.Open(ttyPath)
		if err != nil {
			slog.Warn("No terminal for confirmations, saving in the background", "tty", ttyPath, "error", err)
		} else {
			defer func() { _ = tty.Close() }()
			presenter = cli.NewPrompter(tty, cmd.OutOrStdout())
		}
	}

	p := newPipeline(store, db, pipelineOptions{Presenter: presenter})

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx = handler.HandleInterrupts(ctx, p.outcomes.Summary)

	if store.Watch(p.engine.ApplySettings) {
		slog.Info("Watching configuration for changes", "file", store.Path())
	}

	reader := feed.NewReader(input, feed.Options{Buffer: settings.Feed.Buffer})
	readErr := make(chan error, 1)
	go func() { readErr <- reader.Run(ctx) }()

	slog.Info("Watching for transactions", "interactive", presenter != nil)
	runErr := p.engine.Run(ctx, reader.Events())
	p.Close()

	if runErr == nil {
		// The feed ended on its own; report how it ended.
		runErr = <-readErr
	}
	if dropped := reader.Dropped(); dropped > 0 {
		slog.Warn("Events dropped while the engine was busy", "count", dropped)
	}

	if !handler.WasInterrupted() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Feed finished: "+p.outcomes.Summary())); err != nil {
			slog.Warn("Failed to write summary", "error", err)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
