package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/confirm"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/feed"
	"github.com/Veraticus/tally/internal/service"
)

func replayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Run a recorded event feed through the detector",
		Long: `Replay a JSON-lines event recording. Every event is analyzed immediately, the
duplicate window follows the recorded timestamps, and detections are saved without
confirmation.`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}

	cmd.Flags().Bool("no-progress", false, "hide the progress bar")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	ctx := cmd.Context()

	path := config.ExpandPath(args[0])
	f, err := os.Open(path)
	if err != nil {
		return common.NewUserError("cannot open recording", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	db, err := initStorage(ctx, store.Settings())
	if err != nil {
		return common.NewUserError("failed to open the ledger", err)
	}
	defer func() { _ = db.Close() }()

	var progress io.Writer
	if !noProgress {
		progress = cmd.ErrOrStderr()
	}

	summary, err := replayFeed(ctx, store, db, f, info.Size(), progress)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Replay finished", summary.render()))
	return err
}

type replaySummary struct {
	statuses map[engine.Status]int
	saved    int
	failed   int
	skipped  int64
}

func (s replaySummary) render() string {
	statuses := make([]engine.Status, 0, len(s.statuses))
	for status := range s.statuses {
		statuses = append(statuses, status)
	}
	slices.Sort(statuses)

	rows := make([][]string, 0, len(statuses)+3)
	for _, status := range statuses {
		rows = append(rows, []string{status.String(), strconv.Itoa(s.statuses[status])})
	}
	rows = append(rows,
		[]string{"malformed", strconv.FormatInt(s.skipped, 10)},
		[]string{"saved", strconv.Itoa(s.saved)},
		[]string{"failed", strconv.Itoa(s.failed)},
	)
	return cli.RenderTable([]string{"Result", "Events"}, rows)
}

// replayFeed runs a recorded feed synchronously and waits until every detection is
// written. progress, when non-nil, receives a byte progress bar of size bytes.
func replayFeed(ctx context.Context, src config.Source, ledger service.Storage, r io.Reader, size int64, progress io.Writer) (replaySummary, error) {
	in := r
	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Replaying events...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		in = io.TeeReader(r, bar)
	}

	p := newPipeline(src, ledger, pipelineOptions{Synchronous: true, UseEventTime: true})
	reader := feed.NewReader(in, feed.Options{Buffer: src.Settings().Feed.Buffer, Blocking: true})

	readErr := make(chan error, 1)
	go func() { readErr <- reader.Run(ctx) }()

	runErr := p.engine.Run(ctx, reader.Events())
	p.Close()
	if runErr != nil {
		return replaySummary{}, runErr
	}
	if err := <-readErr; err != nil {
		return replaySummary{}, err
	}

	if bar != nil {
		_ = bar.Finish()
	}

	return replaySummary{
		statuses: p.engine.Counts(),
		saved:    p.outcomes.get(confirm.Saved),
		failed:   p.outcomes.get(confirm.Failed),
		skipped:  reader.Skipped(),
	}, nil
}
